package graphval

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyValueRoundTrip(t *testing.T) {
	cases := []PropertyValue{
		Null(),
		Bool(true),
		Int(-42),
		Float(3.14),
		String("hello"),
		Vector([]float32{1, 2, 3}),
		Array([]PropertyValue{Int(1), String("a")}),
		Object(map[string]PropertyValue{"k": Bool(false)}),
	}
	for _, v := range cases {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var got PropertyValue
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, v.Equal(got), "round trip mismatch for kind %s", v.Kind)
	}
}

func TestPropertyValueEqual(t *testing.T) {
	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Int(2)))
	assert.False(t, Int(1).Equal(Float(1)))
	assert.True(t, Vector([]float32{1, 2}).Equal(Vector([]float32{1, 2})))
	assert.False(t, Vector([]float32{1, 2}).Equal(Vector([]float32{1, 3})))
}

func TestVectorDim(t *testing.T) {
	v := Vector([]float32{1, 2, 3, 4})
	assert.Equal(t, 4, v.Dim())
	assert.Equal(t, 0, Int(1).Dim())
}

func TestAsVector(t *testing.T) {
	vec, ok := Vector([]float32{1, 2}).AsVector()
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, vec)

	vec, ok = Array([]PropertyValue{Float(0.5), Int(2)}).AsVector()
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, 2}, vec)

	_, ok = Array([]PropertyValue{String("x")}).AsVector()
	assert.False(t, ok)
	_, ok = String("x").AsVector()
	assert.False(t, ok)
}

func TestIsLiveAt(t *testing.T) {
	assert.True(t, IsLiveAt(5, 0, 10))
	assert.False(t, IsLiveAt(5, 0, 3))
	assert.True(t, IsLiveAt(5, 20, 10))
	assert.False(t, IsLiveAt(5, 8, 10))
}
