package main

import (
	"time"

	"github.com/collabdoc/engine/internal/config"
	"github.com/collabdoc/engine/internal/schema"
	"github.com/collabdoc/engine/internal/value"
)

// noteSchema describes a small collaborative note: a title, a body, an
// ordered list of tags, and a checklist of {text, done} items. It exists to
// give serve a concrete, non-trivial document type to exercise —
// Record, List, and nested Record-in-List all in one shape.
func noteSchema() schema.Node {
	checklistItem := schema.NewRecord(map[string]schema.Field{
		"text": {Name: "text", Schema: schema.NewScalar(schema.ScalarString), Kind: schema.FieldWithDefault, Default: value.String("")},
		"done": {Name: "done", Schema: schema.NewScalar(schema.ScalarBoolean), Kind: schema.FieldWithDefault, Default: value.Bool(false)},
	})

	return schema.NewRecord(map[string]schema.Field{
		"title": {Name: "title", Schema: schema.NewScalar(schema.ScalarString), Kind: schema.FieldWithDefault, Default: value.String("")},
		"body":  {Name: "body", Schema: schema.NewScalar(schema.ScalarString), Kind: schema.FieldWithDefault, Default: value.String("")},
		"tags": {Name: "tags", Kind: schema.FieldWithDefault, Default: value.List(),
			Schema: schema.NewList(schema.NewScalar(schema.ScalarString))},
		"checklist": {Name: "checklist", Kind: schema.FieldWithDefault, Default: value.List(),
			Schema: schema.NewList(checklistItem)},
	})
}

// registerDocumentTypes builds the set of document types this process
// serves. historyCap/snapshotInterval/txThreshold come from the resolved
// serve configuration. A zero historyCap falls back to config's default
// history capacity; a zero (or unparsable) snapshotInterval or a zero
// txThreshold disables that snapshot trigger.
func registerDocumentTypes(historyCap int, snapshotInterval string, txThreshold int) map[string]config.DocumentTypeConfig {
	interval, _ := time.ParseDuration(snapshotInterval)

	return map[string]config.DocumentTypeConfig{
		"note": {
			Schema:                noteSchema(),
			Initial:               config.ConstantInitial(value.Map(nil)),
			MaxTransactionHistory: historyCap,
			SnapshotInterval:      interval,
			SnapshotTxThreshold:   txThreshold,
		},
	}
}
