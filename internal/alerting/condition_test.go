package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingNode records evaluations so short-circuiting is observable.
type countingNode struct {
	result bool
	calls  int
}

func (n *countingNode) Eval(_ map[string]any) bool {
	n.calls++
	return n.result
}

func TestParseConditions_EmptyMatchesEverything(t *testing.T) {
	for _, doc := range []string{"", "{}", "null"} {
		tree, err := ParseConditions(doc)
		require.NoError(t, err)
		assert.Nil(t, tree)
	}
}

func TestParseConditions_Leaf(t *testing.T) {
	tree, err := ParseConditions(`{"field":"weather.temperature","operator":"gt","value":35}`)
	require.NoError(t, err)

	assert.True(t, tree.Eval(map[string]any{
		"weather": map[string]any{"temperature": 40.0},
	}))
	assert.False(t, tree.Eval(map[string]any{
		"weather": map[string]any{"temperature": 20.0},
	}))
}

func TestParseConditions_NestedCombinators(t *testing.T) {
	doc := `{
		"operator": "AND",
		"operands": [
			{"field": "weather.humidity", "operator": "lt", "value": 30},
			{"operator": "OR", "operands": [
				{"field": "weather.temperature", "operator": "gt", "value": 20},
				{"field": "weather.days_without_rain", "operator": "gte", "value": 7}
			]}
		]
	}`
	tree, err := ParseConditions(doc)
	require.NoError(t, err)

	assert.True(t, tree.Eval(map[string]any{
		"weather": map[string]any{"humidity": 25.0, "temperature": 22.0},
	}))
	assert.True(t, tree.Eval(map[string]any{
		"weather": map[string]any{"humidity": 25.0, "temperature": 15.0, "days_without_rain": 9.0},
	}))
	assert.False(t, tree.Eval(map[string]any{
		"weather": map[string]any{"humidity": 50.0, "temperature": 22.0},
	}))
}

func TestParseConditions_Not(t *testing.T) {
	doc := `{"operator":"NOT","operands":[{"field":"datetime.season","operator":"eq","value":"inverno"}]}`
	tree, err := ParseConditions(doc)
	require.NoError(t, err)

	assert.False(t, tree.Eval(map[string]any{
		"datetime": map[string]any{"season": "inverno"},
	}))
	assert.True(t, tree.Eval(map[string]any{
		"datetime": map[string]any{"season": "verao"},
	}))
}

func TestParseConditions_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid json", `{"field":`},
		{"unknown operator", `{"field":"a","operator":"between","value":1}`},
		{"missing operator", `{"field":"a","value":1}`},
		{"leaf missing field", `{"operator":"gt","value":1}`},
		{"not with two operands", `{"operator":"NOT","operands":[{"field":"a","operator":"eq","value":1},{"field":"b","operator":"eq","value":2}]}`},
		{"malformed nested operand", `{"operator":"AND","operands":[{"operator":"???"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConditions(tt.doc)
			assert.Error(t, err)
		})
	}
}

func TestAndOr_ShortCircuit(t *testing.T) {
	falseNode := &countingNode{result: false}
	unreached := &countingNode{result: true}
	and := &And{Operands: []Node{falseNode, unreached}}
	assert.False(t, and.Eval(nil))
	assert.Equal(t, 1, falseNode.calls)
	assert.Zero(t, unreached.calls, "AND must stop at the first false operand")

	trueNode := &countingNode{result: true}
	skipped := &countingNode{result: false}
	or := &Or{Operands: []Node{trueNode, skipped}}
	assert.True(t, or.Eval(nil))
	assert.Equal(t, 1, trueNode.calls)
	assert.Zero(t, skipped.calls, "OR must stop at the first true operand")
}

func TestAndOr_EmptyOperands(t *testing.T) {
	assert.True(t, (&And{}).Eval(nil))
	assert.False(t, (&Or{}).Eval(nil))
}
