package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShapeString(t *testing.T) {
	assert.Equal(t, "scalar", Sync(ShapeScalar).String())
	assert.Equal(t, "deferred value-record", Deferred(ShapeRecord).String())
	assert.Equal(t, "ShapeKind(9)", ShapeKind(9).String())
	assert.Equal(t, "enumeration State", EnumOf("State").String())
	assert.Equal(t, "deferred reference Track", RefOf("Track").Async().String())
}

func TestParseShape(t *testing.T) {
	tests := map[string]Shape{
		"none":                  Sync(ShapeNone),
		"enumeration":           Sync(ShapeEnum),
		"enum":                  Sync(ShapeEnum),
		"Value-Record":          Sync(ShapeRecord),
		"reference":             Sync(ShapeRef),
		"scalar":                Sync(ShapeScalar),
		"deferred scalar":       Deferred(ShapeScalar),
		"deferred  none":        Deferred(ShapeNone),
		" deferred reference ":  Deferred(ShapeRef),
		"enum State":            EnumOf("State"),
		"Deferred record Track": RecordOf("Track").Async(),
	}
	for input, want := range tests {
		got, err := ParseShape(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseShape("float")
	assert.Error(t, err)
	_, err = ParseShape("deferred")
	assert.Error(t, err)
	_, err = ParseShape("scalar Volume")
	assert.Error(t, err)
	_, err = ParseShape("enum State extra")
	assert.Error(t, err)
}

func TestShapeRoundTrip(t *testing.T) {
	for k := ShapeNone; k <= ShapeScalar; k++ {
		shapes := []Shape{Sync(k), Deferred(k)}
		if k.Typed() {
			shapes = append(shapes, Shape{Kind: k, Type: "T"}, Shape{Kind: k, Type: "T"}.Async())
		}
		for _, s := range shapes {
			parsed, err := ParseShape(s.String())
			require.NoError(t, err)
			assert.Equal(t, s, parsed)
		}
	}
}

func TestShapeAccepts(t *testing.T) {
	assert.True(t, Sync(ShapeScalar).Accepts(Scalar(1)))
	assert.True(t, Deferred(ShapeScalar).Accepts(Scalar(1)))
	assert.False(t, Sync(ShapeScalar).Accepts(Enum{Type: "State"}))
	assert.True(t, Sync(ShapeNone).Accepts(nil))
	assert.True(t, Sync(ShapeNone).Accepts(Void{}))
	assert.False(t, Sync(ShapeRecord).Accepts(nil))
	assert.True(t, EnumOf("State").Accepts(Enum{Type: "State", Ordinal: 2}))
	assert.False(t, EnumOf("State").Accepts(Enum{Type: "Mode", Ordinal: 2}))
	assert.True(t, Sync(ShapeEnum).Accepts(Enum{Type: "Mode"}))
}

func TestShapeAsyncNow(t *testing.T) {
	s := RecordOf("Track")
	assert.True(t, s.Async().Deferred)
	assert.False(t, s.Deferred)
	assert.Equal(t, s, s.Async().Now())
}
