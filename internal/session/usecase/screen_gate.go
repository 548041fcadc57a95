package usecase

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"flashcards-client/internal/session/domain/model"
	apperrors "flashcards-client/internal/shared/errors"
	"flashcards-client/internal/shared/logger"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
	"go.uber.org/zap"
)

// Decision is the outcome of asking whether a screen may be shown.
type Decision int

const (
	// DecisionPending means restore has not finished; show a spinner.
	DecisionPending Decision = iota
	DecisionAllowed
	// DecisionLoginRequired means redirect to the login screen.
	DecisionLoginRequired
	// DecisionForbidden means signed in but not allowed, e.g. admin screens for a USER.
	DecisionForbidden
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionAllowed:
		return "allowed"
	case DecisionLoginRequired:
		return "login_required"
	case DecisionForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// DefaultScreenRules holds the access rule of every screen as a CEL expression.
var DefaultScreenRules = map[string]string{
	ScreenLogin:     "true",
	ScreenRegister:  "true",
	ScreenDashboard: "session.authenticated",
	ScreenDecks:     "session.authenticated",
	ScreenDeck:      "session.authenticated",
	ScreenStudy:     "session.authenticated",
	ScreenQuiz:      "session.authenticated",
	ScreenFeedback:  "session.authenticated",
	ScreenAdmin:     `session.authenticated && user.role == "ADMIN"`,
}

// ScreenGate decides which screens the current session may open.
type ScreenGate struct {
	programs map[string]cel.Program
	rules    map[string]string
	log      logger.Logger
}

// NewScreenGate compiles the default rules with overrides applied on top.
// An override for an unknown screen adds that screen.
func NewScreenGate(overrides map[string]string, log logger.Logger) (*ScreenGate, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("session", decls.NewMapType(decls.String, decls.Dyn)),
			decls.NewVar("user", decls.NewMapType(decls.String, decls.Dyn)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	rules := make(map[string]string, len(DefaultScreenRules)+len(overrides))
	for screen, expr := range DefaultScreenRules {
		rules[screen] = expr
	}
	for screen, expr := range overrides {
		rules[strings.ToLower(strings.TrimSpace(screen))] = strings.TrimSpace(expr)
	}

	gate := &ScreenGate{
		programs: make(map[string]cel.Program, len(rules)),
		rules:    rules,
		log:      log.WithComponent("screen-gate"),
	}
	for screen, expr := range rules {
		program, err := compileRule(env, expr)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("invalid rule for screen %q", screen)).WithCause(err)
		}
		gate.programs[screen] = program
	}
	return gate, nil
}

func compileRule(env *cel.Env, expr string) (cel.Program, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("rule must evaluate to bool, got %s", out)
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}
	return program, nil
}

// Screens lists the known screens in name order.
func (g *ScreenGate) Screens() []string {
	screens := make([]string, 0, len(g.programs))
	for screen := range g.programs {
		screens = append(screens, screen)
	}
	sort.Strings(screens)
	return screens
}

// Rule returns the expression guarding a screen.
func (g *ScreenGate) Rule(screen string) (string, bool) {
	expr, ok := g.rules[screen]
	return expr, ok
}

// Decide evaluates the rule of screen against a session snapshot.
func (g *ScreenGate) Decide(screen string, view model.View) (Decision, error) {
	program, ok := g.programs[screen]
	if !ok {
		return DecisionForbidden, apperrors.NewAppError(apperrors.ErrorTypeNotFound, fmt.Sprintf("unknown screen %q", screen), 404).
			WithCause(apperrors.ErrNotFound)
	}
	if view.Loading {
		return DecisionPending, nil
	}

	user := view.User
	if user == nil {
		user = &model.User{}
	}
	vars := map[string]interface{}{
		"session": map[string]interface{}{
			"authenticated": view.IsAuthenticated,
			"loading":       view.Loading,
			"state":         view.State.String(),
		},
		"user": normalize(user.AsMap()),
	}

	out, _, err := program.Eval(vars)
	if err != nil {
		g.log.With(zap.String("screen", screen), zap.Error(err)).Warn("Screen rule evaluation failed")
		return g.deny(view), nil
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return g.deny(view), nil
	}
	if allowed {
		return DecisionAllowed, nil
	}
	return g.deny(view), nil
}

func (g *ScreenGate) deny(view model.View) Decision {
	if !view.IsAuthenticated {
		return DecisionLoginRequired
	}
	return DecisionForbidden
}

// normalize converts decoded JSON numbers into values CEL knows.
func normalize(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = normalize(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = normalize(item)
		}
		return out
	default:
		return value
	}
}
