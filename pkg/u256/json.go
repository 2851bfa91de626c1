package u256

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the value as a quoted decimal string
func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON accepts a quoted decimal or hex string, or a bare JSON number
// with an integral value such as 42, 1e18 or 100.0
func (u *Uint256) UnmarshalJSON(data []byte) error {
	v, err := unmarshalText(data)
	if err != nil {
		return err
	}
	if v != nil {
		*u = *v
	}
	return nil
}

// Hex is a Uint256 that encodes to JSON in canonical 0x form
type Hex Uint256

// MarshalJSON encodes the value as a quoted canonical hex string
func (h Hex) MarshalJSON() ([]byte, error) {
	return json.Marshal(Uint256(h).Hex())
}

// UnmarshalJSON accepts either text form
func (h *Hex) UnmarshalJSON(data []byte) error {
	v, err := unmarshalText(data)
	if err != nil {
		return err
	}
	if v != nil {
		*h = Hex(*v)
	}
	return nil
}

// unmarshalText returns nil for JSON null
func unmarshalText(data []byte) (*Uint256, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if len(data) == 0 || data[0] != '"' {
		v, err := ParseDecimal(string(data))
		if err != nil {
			return nil, err
		}
		return &v, nil
	}

	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	v, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
