// Package expression evaluates the comparison expressions cards use to swap
// button icons and disable buttons, such as "source==Netflix" or "app_id^=com".
package expression

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Knetic/govaluate"
	"media-player-card/internal/domain/model"
)

const (
	OpEqual      = "=="
	OpNotEqual   = "!="
	OpStartsWith = "^="
	OpEndsWith   = "$="
	OpContains   = "*="
)

var pattern = regexp.MustCompile(`([a-zA-Z0-9_\-.]+)\s*(==|!=|\^=|\$=|\*=)\s*([a-zA-Z0-9]+)?`)

var (
	equal    = mustCompile("left == right")
	notEqual = mustCompile("left != right")
	matches  = mustCompile("left =~ right")
)

func mustCompile(expr string) *govaluate.EvaluableExpression {
	e, err := govaluate.NewEvaluableExpression(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Parsed is a matched "<key> <op> <literal>" expression.
type Parsed struct {
	Key      string
	Operator string
	Literal  string
	// HasLiteral is false when the literal part was empty.
	HasLiteral bool
}

// Parse finds the first expression in s.
func Parse(s string) (Parsed, bool) {
	idx := pattern.FindStringSubmatchIndex(s)
	if idx == nil {
		return Parsed{}, false
	}
	p := Parsed{Key: s[idx[2]:idx[3]], Operator: s[idx[4]:idx[5]]}
	if idx[6] >= 0 {
		p.Literal = s[idx[6]:idx[7]]
		p.HasLiteral = true
	}
	return p, true
}

// ErrMiss marks an expression that could not be evaluated and fell back to
// false.
var ErrMiss = errors.New("expression miss")

// Check resolves the expression against the snapshot attributes and reports
// why it could not be evaluated: non-string input, no match, a missing
// attribute, an empty literal, or a substring operator on a non-string
// attribute. A miss is always false.
func Check(expr any, s model.EntitySnapshot) (bool, error) {
	str, ok := expr.(string)
	if !ok {
		return false, fmt.Errorf("%w: %T is not a string", ErrMiss, expr)
	}
	p, ok := Parse(str)
	if !ok {
		return false, fmt.Errorf("%w: no comparison in %q", ErrMiss, str)
	}
	if !p.HasLiteral {
		return false, fmt.Errorf("%w: empty literal in %q", ErrMiss, str)
	}
	left, ok := s.Attribute(p.Key)
	if !ok {
		return false, fmt.Errorf("%w: no attribute %s", ErrMiss, p.Key)
	}

	var (
		e      *govaluate.EvaluableExpression
		params = map[string]any{"left": left, "right": p.Literal}
	)
	switch p.Operator {
	case OpEqual:
		e = equal
	case OpNotEqual:
		e = notEqual
	case OpStartsWith:
		e, params["right"] = matches, "^"+regexp.QuoteMeta(p.Literal)
	case OpEndsWith:
		e, params["right"] = matches, regexp.QuoteMeta(p.Literal)+"$"
	case OpContains:
		e, params["right"] = matches, regexp.QuoteMeta(p.Literal)
	default:
		return false, fmt.Errorf("%w: operator %s", ErrMiss, p.Operator)
	}

	result, err := e.Evaluate(params)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMiss, err)
	}
	b, _ := result.(bool)
	return b, nil
}

// Evaluate is Check without the reason: anything it cannot evaluate is false.
func Evaluate(expr any, s model.EntitySnapshot) bool {
	b, _ := Check(expr, s)
	return b
}

// Evaluator evaluates button expressions and logs misses at debug level. The
// zero value logs nothing.
type Evaluator struct {
	Logger *slog.Logger
}

func (ev Evaluator) evaluate(expr string, s model.EntitySnapshot) bool {
	b, err := Check(expr, s)
	if err != nil && ev.Logger != nil {
		ev.Logger.Debug("expression miss", "expression", expr, "entity", s.EntityID, "error", err)
	}
	return b
}

// ButtonIcon returns iconOff when the button's icon expression is set and
// evaluates false, and the regular icon otherwise.
func (ev Evaluator) ButtonIcon(b model.ButtonConfig, s model.EntitySnapshot) string {
	if b.IconExpression == "" {
		return b.Icon
	}
	if ev.evaluate(b.IconExpression, s) {
		return b.Icon
	}
	return b.IconOff
}

func (ev Evaluator) ButtonDisabled(b model.ButtonConfig, s model.EntitySnapshot) bool {
	if b.DisabledExpression == "" {
		return false
	}
	return ev.evaluate(b.DisabledExpression, s)
}

func ButtonIcon(b model.ButtonConfig, s model.EntitySnapshot) string {
	return Evaluator{}.ButtonIcon(b, s)
}

func ButtonDisabled(b model.ButtonConfig, s model.EntitySnapshot) bool {
	return Evaluator{}.ButtonDisabled(b, s)
}
