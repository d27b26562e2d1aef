package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = String("test")
	var _ Value = Int(42)
	var _ Value = Bool(true)
	var _ Value = Array{String("a"), Int(1)}
	var _ Value = Object{"key": String("value")}
}

func TestObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := Object{
		"a":  Int(1),
		"A":  Int(2),
		"aa": Int(3),
		"aA": Int(4),
		"Aa": Int(5),
		"AA": Int(6),
	}

	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aA", "aa"}, obj.SortedKeys())
}

func TestObjectGetDottedPath(t *testing.T) {
	obj := Object{
		"title": String("x"),
		"owner": Object{"name": String("ann")},
	}

	v, ok := obj.Get("owner.name")
	assert.True(t, ok)
	assert.Equal(t, String("ann"), v)

	_, ok = obj.Get("owner.age")
	assert.False(t, ok)

	_, ok = obj.Get("title.more")
	assert.False(t, ok)
}

func TestObjectJSONRoundTrip(t *testing.T) {
	obj := Object{
		"b":    Int(2),
		"a":    String("x"),
		"list": Array{Bool(true), Null{}},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2,"list":[true,null]}`, string(data))

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, Equal(obj, back))
}

func TestObjectUnmarshalRejectsFloats(t *testing.T) {
	var obj Object
	err := json.Unmarshal([]byte(`{"n":1.5}`), &obj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"same string", String("a"), String("a"), true},
		{"different kinds", String("1"), Int(1), false},
		{"nulls", Null{}, Null{}, true},
		{"arrays", Array{Int(1), Int(2)}, Array{Int(1), Int(2)}, true},
		{"array order", Array{Int(1), Int(2)}, Array{Int(2), Int(1)}, false},
		{"objects", Object{"a": Int(1)}, Object{"a": Int(1)}, true},
		{"object extra key", Object{"a": Int(1)}, Object{"a": Int(1), "b": Int(2)}, false},
		{"nil values", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"s":    "x",
		"i":    7,
		"u":    uint8(3),
		"b":    true,
		"n":    nil,
		"list": []any{int64(1), "two"},
		"yaml": map[any]any{"k": "v"},
		"num":  json.Number("12"),
	})
	require.NoError(t, err)

	want := Object{
		"s":    String("x"),
		"i":    Int(7),
		"u":    Int(3),
		"b":    Bool(true),
		"n":    Null{},
		"list": Array{Int(1), String("two")},
		"yaml": Object{"k": String("v")},
		"num":  Int(12),
	}
	assert.True(t, Equal(want, v))
}

func TestFromAnyRejects(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"float64", 3.14},
		{"float32", float32(1)},
		{"json float", json.Number("1.0")},
		{"nested float", map[string]any{"a": []any{1.5}}},
		{"non-string key", map[any]any{1: "x"}},
		{"struct", struct{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromAny(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestToAny(t *testing.T) {
	obj := Object{
		"s":    String("x"),
		"i":    Int(7),
		"list": Array{Bool(false), Null{}},
	}

	assert.Equal(t, map[string]any{
		"s":    "x",
		"i":    int64(7),
		"list": []any{false, nil},
	}, obj.ToAny())
}

func TestObjectFromAny(t *testing.T) {
	obj, err := ObjectFromAny(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, Object{"a": Int(1)}, obj)

	_, err = ObjectFromAny("scalar")
	assert.Error(t, err)
}
