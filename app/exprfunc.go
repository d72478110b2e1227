package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/artpar/reshape/domain/transform"
)

// ExprCompiler turns the string payloads of func operations into engine
// transforms backed by compiled Expr programs. Programs are cached by
// expression text.
type ExprCompiler struct {
	logger zerolog.Logger

	cache   map[string]*vm.Program
	cacheMu sync.RWMutex

	envOptions []expr.Option
}

// NewExprCompiler creates a compiler with the standard helper functions
// available to every expression. The value under transformation is bound
// as `value`.
func NewExprCompiler(logger zerolog.Logger) *ExprCompiler {
	c := &ExprCompiler{
		logger: logger,
		cache:  make(map[string]*vm.Program),
	}

	c.envOptions = []expr.Option{
		expr.Function("lower", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("lower requires 1 argument")
			}
			return strings.ToLower(toString(params[0])), nil
		}),
		expr.Function("upper", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("upper requires 1 argument")
			}
			return strings.ToUpper(toString(params[0])), nil
		}),
		expr.Function("trim", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("trim requires 1 argument")
			}
			return strings.TrimSpace(toString(params[0])), nil
		}),
		expr.Function("replace", func(params ...any) (any, error) {
			if len(params) != 3 {
				return nil, fmt.Errorf("replace requires 3 arguments (str, old, new)")
			}
			return strings.ReplaceAll(toString(params[0]), toString(params[1]), toString(params[2])), nil
		}),
		expr.Function("coalesce", func(params ...any) (any, error) {
			for _, p := range params {
				if p != nil && p != "" {
					return p, nil
				}
			}
			return nil, nil
		}),
		expr.Function("default", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("default requires 2 arguments (value, defaultValue)")
			}
			if params[0] == nil || params[0] == "" {
				return params[1], nil
			}
			return params[0], nil
		}),
		expr.Function("toString", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("toString requires 1 argument")
			}
			return toString(params[0]), nil
		}),
		expr.Function("toFloat", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("toFloat requires 1 argument")
			}
			return toFloat(params[0]), nil
		}),
	}

	return c
}

// RewriteRecord replaces string func payloads with compiled transforms and
// returns the record. Records without a func key pass through untouched.
func (c *ExprCompiler) RewriteRecord(rec map[string]any) (map[string]any, error) {
	payload, ok := rec["func"]
	if !ok {
		return rec, nil
	}

	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}

	switch p := payload.(type) {
	case string:
		fn, err := c.Compile(p)
		if err != nil {
			return nil, err
		}
		out["func"] = fn
	case map[string]any:
		scoped := make(map[string]any, len(p))
		for path, raw := range p {
			exprText, ok := raw.(string)
			if !ok {
				// Leave non-string payloads for the engine to reject.
				scoped[path] = raw
				continue
			}
			fn, err := c.Compile(exprText)
			if err != nil {
				return nil, fmt.Errorf("func at %q: %w", path, err)
			}
			scoped[path] = fn
		}
		out["func"] = scoped
	}
	return out, nil
}

// Compile builds a transform from an Expr expression. Evaluation failures
// leave the value unchanged and log a warning; a broken expression must not
// take the whole payload down at serve time.
func (c *ExprCompiler) Compile(expression string) (transform.Func, error) {
	program, err := c.getOrCompile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile expression %q: %w", expression, err)
	}

	return func(v any) any {
		out, err := expr.Run(program, map[string]any{"value": v})
		if err != nil {
			c.logger.Warn().Err(err).Str("expression", expression).Msg("expression failed, value unchanged")
			return v
		}
		return out
	}, nil
}

func (c *ExprCompiler) getOrCompile(expression string) (*vm.Program, error) {
	c.cacheMu.RLock()
	program, ok := c.cache[expression]
	c.cacheMu.RUnlock()
	if ok {
		return program, nil
	}

	program, err := expr.Compile(expression, c.envOptions...)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.cache[expression] = program
	c.cacheMu.Unlock()
	return program, nil
}

// ClearCache clears the compiled expression cache.
// Useful after configuration changes.
func (c *ExprCompiler) ClearCache() {
	c.cacheMu.Lock()
	c.cache = make(map[string]*vm.Program)
	c.cacheMu.Unlock()
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toFloat(v any) float64 {
	if v == nil {
		return 0
	}
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		var f float64
		fmt.Sscanf(val, "%f", &f)
		return f
	default:
		return 0
	}
}
