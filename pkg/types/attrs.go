package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Attribute value types. Every entity attribute is one of these variants so
// validation and diffing stay well-typed.
const (
	AttrText   = "text"
	AttrNumber = "number"
	AttrBool   = "bool"
	AttrList   = "list"
)

// validAttrTypes is the set of recognized attribute value types.
var validAttrTypes = map[string]bool{
	AttrText:   true,
	AttrNumber: true,
	AttrBool:   true,
	AttrList:   true,
}

// ErrInvalidAttrType is returned when an attribute carries an unknown type tag.
var ErrInvalidAttrType = errors.New("invalid attribute value type")

// AttrValue is a tagged union of the supported attribute value variants.
// Only the field matching Type is meaningful.
type AttrValue struct {
	Type   string
	Text   string
	Number float64
	Bool   bool
	List   []string
}

// Attrs is the free-form attribute map carried by entities, keyed by
// attribute name.
type Attrs map[string]AttrValue

// TextValue returns a text attribute value.
func TextValue(s string) AttrValue { return AttrValue{Type: AttrText, Text: s} }

// NumberValue returns a numeric attribute value.
func NumberValue(f float64) AttrValue { return AttrValue{Type: AttrNumber, Number: f} }

// BoolValue returns a boolean attribute value.
func BoolValue(b bool) AttrValue { return AttrValue{Type: AttrBool, Bool: b} }

// ListValue returns a list attribute value.
func ListValue(items ...string) AttrValue { return AttrValue{Type: AttrList, List: items} }

// Equal reports whether two attribute values hold the same variant and payload.
func (v AttrValue) Equal(o AttrValue) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case AttrText:
		return v.Text == o.Text
	case AttrNumber:
		return v.Number == o.Number
	case AttrBool:
		return v.Bool == o.Bool
	case AttrList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != o.List[i] {
				return false
			}
		}
		return true
	}
	return false
}

// attrValueJSON is the wire form of an AttrValue.
type attrValueJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the value as {"type": ..., "value": ...}.
func (v AttrValue) MarshalJSON() ([]byte, error) {
	var payload any
	switch v.Type {
	case AttrText:
		payload = v.Text
	case AttrNumber:
		payload = v.Number
	case AttrBool:
		payload = v.Bool
	case AttrList:
		list := v.List
		if list == nil {
			list = []string{}
		}
		payload = list
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAttrType, v.Type)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(attrValueJSON{Type: v.Type, Value: raw})
}

// UnmarshalJSON decodes the {"type": ..., "value": ...} wire form.
func (v *AttrValue) UnmarshalJSON(data []byte) error {
	var wire attrValueJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if !validAttrTypes[wire.Type] {
		return fmt.Errorf("%w: %q", ErrInvalidAttrType, wire.Type)
	}
	out := AttrValue{Type: wire.Type}
	switch wire.Type {
	case AttrText:
		if err := json.Unmarshal(wire.Value, &out.Text); err != nil {
			return err
		}
	case AttrNumber:
		if err := json.Unmarshal(wire.Value, &out.Number); err != nil {
			return err
		}
	case AttrBool:
		if err := json.Unmarshal(wire.Value, &out.Bool); err != nil {
			return err
		}
	case AttrList:
		if err := json.Unmarshal(wire.Value, &out.List); err != nil {
			return err
		}
	}
	*v = out
	return nil
}

// Equal reports whether two attribute maps hold the same keys and values.
func (a Attrs) Equal(o Attrs) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a copy of the attribute map. List payloads are copied.
func (a Attrs) Clone() Attrs {
	if a == nil {
		return nil
	}
	out := make(Attrs, len(a))
	for k, v := range a {
		if v.List != nil {
			v.List = append([]string(nil), v.List...)
		}
		out[k] = v
	}
	return out
}
