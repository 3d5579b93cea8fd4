package op

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/collabdoc/engine/internal/path"
)

// bsonOp is the at-rest shape persisted by HotStore; the path is stored as
// its encoded string form for the same reason it is on the wire: Path
// itself carries no BSON codec, only its stable encoding does.
type bsonOp struct {
	Kind    Kind        `bson:"kind"`
	Path    string      `bson:"path"`
	Payload bson.RawValue `bson:"payload"`
}

func (o Op) MarshalBSONValue() (byte, []byte, error) {
	t, data, err := bson.MarshalValue(o.Payload)
	if err != nil {
		return 0, nil, fmt.Errorf("op: marshal payload: %w", err)
	}
	doc := bsonOp{
		Kind: o.Kind,
		Path: o.Path.Encode(),
		Payload: bson.RawValue{
			Type:  bson.Type(t),
			Value: data,
		},
	}
	vt, vdata, err := bson.MarshalValue(doc)
	if err != nil {
		return 0, nil, fmt.Errorf("op: marshal: %w", err)
	}
	return byte(vt), vdata, nil
}

func (o *Op) UnmarshalBSONValue(t byte, data []byte) error {
	raw := bson.RawValue{Type: bson.Type(t), Value: data}
	var doc bsonOp
	if err := raw.Unmarshal(&doc); err != nil {
		return fmt.Errorf("op: unmarshal: %w", err)
	}
	o.Kind = doc.Kind
	o.Path = path.Decode(doc.Path)

	if err := doc.Payload.Unmarshal(&o.Payload); err != nil {
		return fmt.Errorf("op: unmarshal payload: %w", err)
	}
	return nil
}

type bsonTransaction struct {
	ID        string `bson:"id"`
	Ops       []Op   `bson:"ops"`
	Timestamp int64  `bson:"timestamp"`
}

func (tx Transaction) MarshalBSONValue() (byte, []byte, error) {
	ops := tx.Ops
	if ops == nil {
		ops = []Op{}
	}
	t, data, err := bson.MarshalValue(bsonTransaction{ID: tx.ID, Ops: ops, Timestamp: tx.Timestamp})
	if err != nil {
		return 0, nil, fmt.Errorf("transaction: marshal: %w", err)
	}
	return byte(t), data, nil
}

func (tx *Transaction) UnmarshalBSONValue(t byte, data []byte) error {
	raw := bson.RawValue{Type: bson.Type(t), Value: data}
	var doc bsonTransaction
	if err := raw.Unmarshal(&doc); err != nil {
		return fmt.Errorf("transaction: unmarshal: %w", err)
	}
	tx.ID = doc.ID
	tx.Ops = doc.Ops
	tx.Timestamp = doc.Timestamp
	return nil
}
