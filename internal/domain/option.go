package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Option is one selectable entry returned by the backend. Identity is ID.
type Option struct {
	ID    string
	Label string
}

type wireOption struct {
	ID    json.RawMessage `json:"id"`
	Label *string         `json:"label"`
	Name  *string         `json:"name"`
}

// UnmarshalJSON accepts {"id": 3, "name": "..."} as well as
// {"id": "3", "label": "..."}.
func (o *Option) UnmarshalJSON(data []byte) error {
	var wire wireOption
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := decodeID(wire.ID)
	if err != nil {
		return err
	}
	label := ""
	switch {
	case wire.Label != nil:
		label = *wire.Label
	case wire.Name != nil:
		label = *wire.Name
	}
	*o = Option{ID: id, Label: label}
	return o.Validate()
}

// MarshalJSON writes the {id, label} shape.
func (o Option) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	}{ID: o.ID, Label: o.Label})
}

// Validate ensures the option can be rendered and selected.
func (o Option) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return invalidOptionError("missing id")
	}
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", invalidOptionError("missing id")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", invalidOptionError(fmt.Sprintf("id %s is neither string nor number", raw))
	}
	return n.String(), nil
}
