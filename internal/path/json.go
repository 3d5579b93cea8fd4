package path

import "encoding/json"

// OperationPath is the discriminant written into every JSON-encoded Path,
// so that a path object can be told apart from a bare JSON string.
const OperationPath = "OperationPath"

type wireForm struct {
	Discriminant string `json:"$type"`
	Encoded      string `json:"encoded"`
}

// MarshalJSON encodes p as its stable string form wrapped with the
// OperationPath discriminant.
func (p Path) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireForm{
		Discriminant: OperationPath,
		Encoded:      p.Encode(),
	})
}

// UnmarshalJSON decodes a value produced by MarshalJSON. It also accepts a
// bare JSON string for leniency with hand-written fixtures, but anything
// produced by this package round-trips through the discriminant form.
func (p *Path) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		*p = Decode(bare)
		return nil
	}

	var w wireForm
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Decode(w.Encoded)
	return nil
}
