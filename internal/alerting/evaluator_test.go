package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLeafEval_Operators(t *testing.T) {
	ctx := map[string]any{
		"weather": map[string]any{
			"temperature": 38.0,
			"humidity":    25.0,
			"condition":   "Chuva fraca",
		},
		"user": map[string]any{
			"experience": "iniciante",
		},
		"datetime": map[string]any{
			"month": "Julho",
		},
	}

	tests := []struct {
		name     string
		field    string
		operator string
		value    any
		want     bool
	}{
		{"eq string match", "user.experience", OperatorEq, "iniciante", true},
		{"eq string no match", "user.experience", OperatorEq, "avancado", false},
		{"eq numeric cross-type", "weather.temperature", OperatorEq, 38, true},
		{"ne match", "user.experience", OperatorNe, "avancado", true},
		{"ne no match", "user.experience", OperatorNe, "iniciante", false},
		{"gt true", "weather.temperature", OperatorGt, 35.0, true},
		{"gt equal is false", "weather.temperature", OperatorGt, 38.0, false},
		{"gte equal is true", "weather.temperature", OperatorGte, 38.0, true},
		{"lt true", "weather.humidity", OperatorLt, 30.0, true},
		{"lt false", "weather.temperature", OperatorLt, 30.0, false},
		{"lte equal is true", "weather.humidity", OperatorLte, 25.0, true},
		{"contains match", "weather.condition", OperatorContains, "chuva", true},
		{"contains case insensitive", "weather.condition", OperatorContains, "CHUVA", true},
		{"contains no match", "weather.condition", OperatorContains, "neve", false},
		{"in match", "datetime.month", OperatorIn, []any{"Junho", "Julho"}, true},
		{"in no match", "datetime.month", OperatorIn, []any{"Janeiro"}, false},
		{"in non-list value", "datetime.month", OperatorIn, "Julho", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf := &Leaf{Field: tt.field, Operator: tt.operator, Value: tt.value}
			assert.Equal(t, tt.want, leaf.Eval(ctx))
		})
	}
}

func TestLeafEval_MissingPathIsNil(t *testing.T) {
	ctx := map[string]any{"weather": map[string]any{"temperature": 20.0}}

	gt := &Leaf{Field: "weather.wind_speed", Operator: OperatorGt, Value: 5.0}
	assert.False(t, gt.Eval(ctx), "missing path must fail numeric comparisons")

	eq := &Leaf{Field: "soil.moisture", Operator: OperatorEq, Value: 10.0}
	assert.False(t, eq.Eval(ctx))

	// ne against a missing value holds: nil differs from any literal.
	ne := &Leaf{Field: "soil.moisture", Operator: OperatorNe, Value: 10.0}
	assert.True(t, ne.Eval(ctx))
}

func TestLeafEval_CoercionFailureIsFalse(t *testing.T) {
	ctx := map[string]any{"weather": map[string]any{"condition": "Céu limpo"}}

	leaf := &Leaf{Field: "weather.condition", Operator: OperatorGt, Value: 5.0}
	assert.False(t, leaf.Eval(ctx), "non-numeric context value must not match")
}

func TestLeafEval_NumericStrings(t *testing.T) {
	ctx := map[string]any{"weather": map[string]any{"temperature": "38.5"}}

	leaf := &Leaf{Field: "weather.temperature", Operator: OperatorGt, Value: 35}
	assert.True(t, leaf.Eval(ctx), "numeric strings coerce for comparison")
}

func TestLookupPath(t *testing.T) {
	ctx := map[string]any{
		"cultures": map[string]any{
			"0": map[string]any{"type": "tomate"},
		},
	}

	assert.Equal(t, "tomate", lookupPath(ctx, "cultures.0.type"))
	assert.Nil(t, lookupPath(ctx, "cultures.1.type"))
	assert.Nil(t, lookupPath(ctx, "cultures.0.type.deeper"))
}
