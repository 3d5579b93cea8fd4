package value

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MarshalBSONValue and UnmarshalBSONValue let Value participate directly in
// BSON-encoded structs (StoredDoc, WalEntry) the way the teacher's
// pkg/storage/bson.go converts application documents to/from bson.D —
// generalized here to an arbitrary dynamic value instead of a flat table
// row.
func (v Value) MarshalBSONValue() (byte, []byte, error) {
	t, data, err := bson.MarshalValue(toBSONNative(v))
	if err != nil {
		return 0, nil, fmt.Errorf("value: marshal bson: %w", err)
	}
	return byte(t), data, nil
}

func (v *Value) UnmarshalBSONValue(t byte, data []byte) error {
	raw := bson.RawValue{Type: bson.Type(t), Value: data}

	var native interface{}
	if err := raw.Unmarshal(&native); err != nil {
		return fmt.Errorf("value: unmarshal bson: %w", err)
	}

	parsed, err := fromBSONNative(native)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// toBSONNative mirrors ToNative but emits bson.D for maps and bson.A for
// lists so the mongo driver encodes field order and nesting the way the
// rest of the driver ecosystem expects.
func toBSONNative(v Value) interface{} {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindList:
		arr := make(bson.A, len(v.List))
		for i, e := range v.List {
			arr[i] = toBSONNative(e)
		}
		return arr
	case KindMap:
		doc := bson.D{}
		for k, e := range v.Map {
			doc = append(doc, bson.E{Key: k, Value: toBSONNative(e)})
		}
		return doc
	default:
		return nil
	}
}

// fromBSONNative converts the interface{} produced by bson.RawValue.Unmarshal
// (primitive.A, bson.D / primitive.M, numeric kinds the driver chooses) back
// into Value.
func fromBSONNative(in interface{}) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case string:
		return String(t), nil
	case bson.A:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			v, err := fromBSONNative(e)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	case bson.D:
		out := make(map[string]Value, len(t))
		for _, e := range t {
			v, err := fromBSONNative(e.Value)
			if err != nil {
				return Value{}, err
			}
			out[e.Key] = v
		}
		return Map(out), nil
	case bson.M:
		out := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := fromBSONNative(e)
			if err != nil {
				return Value{}, err
			}
			out[k] = v
		}
		return Map(out), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported bson native type %T", in)
	}
}
