package schema

import "github.com/collabdoc/engine/internal/value"

// ApplyDefaults recursively fills missing defaults into partial for node,
// per Rule 8. Required fields without defaults that remain missing stay
// missing — the caller decides whether that is acceptable.
func ApplyDefaults(node Node, partial value.Value) value.Value {
	rec, ok := node.(*Record)
	if !ok {
		if partial.IsNull() {
			if iv, ok := node.InitialState(); ok {
				return iv
			}
		}
		return partial
	}

	out := map[string]value.Value{}
	if existing, ok := partial.AsMap(); ok {
		for k, v := range existing {
			out[k] = v
		}
	}
	for name, f := range rec.Fields {
		if _, present := out[name]; present {
			out[name] = ApplyDefaults(f.Schema, out[name])
			continue
		}
		switch f.Kind {
		case FieldWithDefault:
			out[name] = f.Default
		default:
			if iv, ok := f.Schema.InitialState(); ok {
				out[name] = iv
			}
		}
	}
	return value.Map(out)
}
