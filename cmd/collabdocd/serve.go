package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/collabdoc/engine/internal/coldstore"
	"github.com/collabdoc/engine/internal/config"
	"github.com/collabdoc/engine/internal/engine"
	"github.com/collabdoc/engine/internal/hotstore"
	"github.com/collabdoc/engine/internal/log"
	"github.com/collabdoc/engine/internal/metrics"
)

// fileConfig is the on-disk YAML shape serve reads (flags override it).
type fileConfig struct {
	DataDir               string `yaml:"data_dir"`
	MetricsAddr           string `yaml:"metrics_addr"`
	MaxIdleTime           string `yaml:"max_idle_time"`
	MaxTransactionHistory int    `yaml:"max_transaction_history"`
	SnapshotInterval      string `yaml:"snapshot_interval"`
	SnapshotTxThreshold   int    `yaml:"snapshot_tx_threshold"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("parse config: %w", err)
	}
	return fc, nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document engine and expose its metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		maxIdleTime, _ := cmd.Flags().GetDuration("max-idle-time")

		fc, err := loadFileConfig(configPath)
		if err != nil {
			return err
		}
		if fc.DataDir != "" {
			dataDir = fc.DataDir
		}
		if fc.MetricsAddr != "" {
			metricsAddr = fc.MetricsAddr
		}
		if fc.MaxIdleTime != "" {
			if d, err := time.ParseDuration(fc.MaxIdleTime); err == nil {
				maxIdleTime = d
			}
		}

		cold, err := coldstore.NewFileStore(dataDir + "/cold")
		if err != nil {
			return fmt.Errorf("open cold store: %w", err)
		}
		hot, err := hotstore.NewFileStore(dataDir + "/hot")
		if err != nil {
			return fmt.Errorf("open hot store: %w", err)
		}

		registry := prometheus.NewRegistry()
		collector := metrics.NewPromCollector(registry)

		types := registerDocumentTypes(fc.MaxTransactionHistory, fc.SnapshotInterval, fc.SnapshotTxThreshold)
		engineCfg := config.EngineConfig{
			MaxIdleTime: maxIdleTime,
			Types:       types,
		}

		eng := engine.New(engineCfg, cold, hot, 1, newTxID, time.Now().UnixMilli, collector)
		eng.StartIdleEviction(time.Minute)
		defer eng.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		server := &http.Server{Addr: metricsAddr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			log.Logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Logger.Info().Msg("shutdown signal received")
		case err := <-errCh:
			log.Logger.Error().Err(err).Msg("metrics server error")
		}

		_ = server.Close()
		log.Logger.Info().Msg("shutdown complete")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("config", "", "Path to a YAML config file")
	serveCmd.Flags().String("data-dir", "./data", "Directory for cold snapshots and WAL files")
	serveCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics on")
	serveCmd.Flags().Duration("max-idle-time", config.DefaultMaxIdleTime, "Evict instances idle for at least this long")
}

func newTxID() string {
	return uuid.NewString()
}
