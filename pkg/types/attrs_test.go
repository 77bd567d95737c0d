package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttrValueJSON(t *testing.T) {
	tests := []struct {
		name  string
		value AttrValue
		want  string
	}{
		{"text", TextValue("sword of dawn"), `{"type":"text","value":"sword of dawn"}`},
		{"number", NumberValue(42.5), `{"type":"number","value":42.5}`},
		{"bool", BoolValue(true), `{"type":"bool","value":true}`},
		{"list", ListValue("north", "south"), `{"type":"list","value":["north","south"]}`},
		{"empty list", ListValue(), `{"type":"list","value":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.value)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))

			var back AttrValue
			require.NoError(t, json.Unmarshal(raw, &back))
			assert.True(t, tt.value.Equal(back), "round trip should preserve value")
		})
	}
}

func TestAttrValueUnknownType(t *testing.T) {
	var v AttrValue
	err := json.Unmarshal([]byte(`{"type":"blob","value":"x"}`), &v)
	assert.ErrorIs(t, err, ErrInvalidAttrType)

	_, err = json.Marshal(AttrValue{Type: "blob"})
	assert.ErrorIs(t, err, ErrInvalidAttrType)
}

func TestAttrsEqual(t *testing.T) {
	a := Attrs{"mood": TextValue("grim"), "age": NumberValue(31)}
	b := Attrs{"age": NumberValue(31), "mood": TextValue("grim")}
	c := Attrs{"mood": TextValue("bright"), "age": NumberValue(31)}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Attrs{"mood": TextValue("grim")}))
}

func TestAttrsClone(t *testing.T) {
	orig := Attrs{"titles": ListValue("knight", "warden")}
	cp := orig.Clone()

	cp["titles"].List[0] = "usurper"
	assert.Equal(t, "knight", orig["titles"].List[0], "clone must not share list storage")

	assert.Nil(t, Attrs(nil).Clone())
}
