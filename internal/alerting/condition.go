package alerting

import (
	"encoding/json"
	"fmt"
)

// Node is one node of a parsed condition tree. Trees are parsed once from
// their stored JSON and evaluated repeatedly against context snapshots.
type Node interface {
	// Eval reports whether the condition holds for the given context.
	// Combinators short-circuit; leaves never panic on bad data.
	Eval(ctx map[string]any) bool
}

// Leaf compares a dot-path context value against a literal.
type Leaf struct {
	Field    string
	Operator string
	Value    any
}

// And is satisfied when every operand is. An empty operand list is true.
type And struct {
	Operands []Node
}

// Or is satisfied when any operand is. An empty operand list is false.
type Or struct {
	Operands []Node
}

// Not negates its single operand.
type Not struct {
	Operand Node
}

// Eval implements Node with short-circuit semantics.
func (n *And) Eval(ctx map[string]any) bool {
	for _, op := range n.Operands {
		if !op.Eval(ctx) {
			return false
		}
	}
	return true
}

// Eval implements Node with short-circuit semantics.
func (n *Or) Eval(ctx map[string]any) bool {
	for _, op := range n.Operands {
		if op.Eval(ctx) {
			return true
		}
	}
	return false
}

// Eval implements Node.
func (n *Not) Eval(ctx map[string]any) bool {
	return !n.Operand.Eval(ctx)
}

// rawNode is the stored JSON shape of a condition node: either a comparison
// leaf {field, operator, value} or a combinator {operator, operands}.
type rawNode struct {
	Field    string          `json:"field"`
	Operator string          `json:"operator"`
	Value    json.RawMessage `json:"value"`
	Operands []rawNode       `json:"operands"`
}

// ParseConditions parses a serialized condition tree into its AST.
// An empty document is a nil tree, which matches everything.
func ParseConditions(data string) (Node, error) {
	if data == "" || data == "{}" || data == "null" {
		return nil, nil
	}
	var raw rawNode
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("malformed condition tree: %w", err)
	}
	return buildNode(&raw)
}

func buildNode(raw *rawNode) (Node, error) {
	switch raw.Operator {
	case CombinatorAnd, CombinatorOr, CombinatorNot:
		operands := make([]Node, 0, len(raw.Operands))
		for i := range raw.Operands {
			child, err := buildNode(&raw.Operands[i])
			if err != nil {
				return nil, err
			}
			operands = append(operands, child)
		}
		switch raw.Operator {
		case CombinatorAnd:
			return &And{Operands: operands}, nil
		case CombinatorOr:
			return &Or{Operands: operands}, nil
		default:
			if len(operands) != 1 {
				return nil, fmt.Errorf("NOT requires exactly one operand, got %d", len(operands))
			}
			return &Not{Operand: operands[0]}, nil
		}
	case OperatorEq, OperatorNe, OperatorGt, OperatorGte, OperatorLt, OperatorLte, OperatorContains, OperatorIn:
		if raw.Field == "" {
			return nil, fmt.Errorf("comparison leaf missing field")
		}
		var value any
		if len(raw.Value) > 0 {
			if err := json.Unmarshal(raw.Value, &value); err != nil {
				return nil, fmt.Errorf("malformed leaf value for %q: %w", raw.Field, err)
			}
		}
		return &Leaf{Field: raw.Field, Operator: raw.Operator, Value: value}, nil
	case "":
		return nil, fmt.Errorf("condition node missing operator")
	default:
		return nil, fmt.Errorf("unknown condition operator %q", raw.Operator)
	}
}
