package value

import "encoding/json"

// MarshalJSON renders v as the plain JSON a client would send: null, bool,
// number, string, array, or object — no wrapper, mirroring how Op payloads
// travel on the wire per spec.md §6.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToNative(v))
}

// UnmarshalJSON parses a plain JSON value into v.
func (v *Value) UnmarshalJSON(data []byte) error {
	var native interface{}
	if err := json.Unmarshal(data, &native); err != nil {
		return err
	}
	parsed, err := FromNative(native)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
