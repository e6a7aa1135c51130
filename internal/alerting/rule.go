package alerting

import (
	"fmt"

	"github.com/agroalert/agroalert/internal/datastore/entities"
)

// CompiledRule pairs a stored rule with its parsed condition tree so the
// engine parses each tree once per refresh, not once per evaluation.
type CompiledRule struct {
	Rule entities.AlertRule
	Tree Node
}

// CompileRule parses the rule's stored condition tree.
// A malformed tree is an error here; the engine treats such rules as
// non-matching and logs them instead of aborting the batch.
func CompileRule(rule entities.AlertRule) (*CompiledRule, error) {
	tree, err := ParseConditions(rule.Conditions)
	if err != nil {
		return nil, fmt.Errorf("rule %d: %w", rule.ID, err)
	}
	return &CompiledRule{Rule: rule, Tree: tree}, nil
}

// Matches reports whether the rule's conditions hold for the context.
// A nil tree matches everything.
func (c *CompiledRule) Matches(ctx map[string]any) bool {
	if c.Tree == nil {
		return true
	}
	return c.Tree.Eval(ctx)
}

// RenderedAlert is the content a matched rule produces.
type RenderedAlert struct {
	Title      string
	Message    string
	ActionText string
	ActionURL  string
}

// Render produces the alert content for the context. Empty rendered titles
// are treated as render failures so no blank alerts reach the store.
func (c *CompiledRule) Render(ctx map[string]any) (*RenderedAlert, error) {
	title := RenderTemplate(c.Rule.TitleTemplate, ctx)
	if title == "" {
		return nil, fmt.Errorf("rule %d: empty title after rendering", c.Rule.ID)
	}
	return &RenderedAlert{
		Title:      title,
		Message:    RenderTemplate(c.Rule.MessageTemplate, ctx),
		ActionText: c.Rule.ActionText,
		ActionURL:  RenderTemplate(c.Rule.ActionURLTemplate, ctx),
	}, nil
}
