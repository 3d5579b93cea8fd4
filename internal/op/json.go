package op

import (
	"encoding/json"

	"github.com/collabdoc/engine/internal/path"
	"github.com/collabdoc/engine/internal/value"
)

// wireOp mirrors the spec.md §6 wire shape for Op:
// {kind: string, path: string (encoded tokens), payload: json}.
type wireOp struct {
	Kind    Kind        `json:"kind"`
	Path    string      `json:"path"`
	Payload value.Value `json:"payload"`
}

// MarshalJSON renders o per the WalEntry wire shape.
func (o Op) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireOp{
		Kind:    o.Kind,
		Path:    o.Path.Encode(),
		Payload: o.Payload,
	})
}

// UnmarshalJSON parses o from the wire shape, decoding the path string back
// into a functional Path (tokens/append/concat/pop/shift all work on the
// result, per spec.md §6).
func (o *Op) UnmarshalJSON(data []byte) error {
	var w wireOp
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.Kind = w.Kind
	o.Path = path.Decode(w.Path)
	o.Payload = w.Payload
	return nil
}

// wireTransaction mirrors {id, ops: [Op], timestamp}.
type wireTransaction struct {
	ID        string `json:"id"`
	Ops       []Op   `json:"ops"`
	Timestamp int64  `json:"timestamp"`
}

func (tx Transaction) MarshalJSON() ([]byte, error) {
	ops := tx.Ops
	if ops == nil {
		ops = []Op{}
	}
	return json.Marshal(wireTransaction{ID: tx.ID, Ops: ops, Timestamp: tx.Timestamp})
}

func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var w wireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	tx.ID = w.ID
	tx.Ops = w.Ops
	tx.Timestamp = w.Timestamp
	return nil
}
