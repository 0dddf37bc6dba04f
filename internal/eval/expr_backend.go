package eval

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
)

const maxGradientSide = 4096

var assignmentPattern = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=([^=][\s\S]*)$`)

var builtinNames = []string{"environ", "gradient", "print", "sh", "typeOf", "vars"}

// ExprBackend evaluates expr-lang expressions against a session of variables.
// `name = expr` assigns, `_` holds the last result.
type ExprBackend struct {
	mu      sync.Mutex
	vars    map[string]any
	pending []string
	line    int
	shell   string
}

// NewExprBackend returns a backend with an empty session. shell runs the sh
// builtin; empty means /bin/sh.
func NewExprBackend(shell string) *ExprBackend {
	if shell == "" {
		shell = "/bin/sh"
	}
	return &ExprBackend{vars: map[string]any{}, shell: shell}
}

// Eval buffers source until the statement is complete, then compiles and runs it.
func (b *ExprBackend) Eval(ctx context.Context, source string, out io.Writer) Outcome {
	b.mu.Lock()
	b.line++
	line := b.line
	b.pending = append(b.pending, source)
	joined := strings.Join(b.pending, "\n")
	if NeedsMoreInput(joined) {
		b.mu.Unlock()
		return Outcome{NeedsMoreInput: true}
	}
	b.pending = nil
	env := make(map[string]any, len(b.vars))
	for k, v := range b.vars {
		env[k] = v
	}
	b.mu.Unlock()

	joined = strings.ReplaceAll(joined, "\\\n", "\n")
	name, body := splitAssignment(joined)
	if strings.TrimSpace(body) == "" {
		return Outcome{Err: &SyntaxError{Line: line, Msg: "missing expression"}}
	}

	opts := append([]expr.Option{expr.Env(env)}, b.builtins(ctx, out)...)
	program, err := expr.Compile(body, opts...)
	if err != nil {
		return Outcome{Err: &SyntaxError{Line: line, Msg: firstLine(err.Error())}}
	}
	value, err := run(func() (any, error) { return expr.Run(program, env) })
	if err != nil {
		return Outcome{Err: err}
	}

	b.mu.Lock()
	if name != "" {
		b.vars[name] = value
	}
	b.vars["_"] = value
	b.mu.Unlock()
	return Outcome{Value: value}
}

// Reset drops a partially entered statement.
func (b *ExprBackend) Reset() {
	b.mu.Lock()
	b.pending = nil
	b.mu.Unlock()
}

// Names lists builtins and session variables.
func (b *ExprBackend) Names() []string {
	b.mu.Lock()
	names := append([]string(nil), builtinNames...)
	for k := range b.vars {
		names = append(names, k)
	}
	b.mu.Unlock()
	sort.Strings(names)
	return names
}

// Var returns a session variable.
func (b *ExprBackend) Var(name string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.vars[name]
	return v, ok
}

func (b *ExprBackend) builtins(ctx context.Context, out io.Writer) []expr.Option {
	return []expr.Option{
		expr.Function("print", func(params ...any) (any, error) {
			_, err := fmt.Fprintln(out, params...)
			return nil, err
		}),
		expr.Function("sh", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("sh: want 1 argument, got %d", len(params))
			}
			command, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("sh: want string, got %T", params[0])
			}
			return RunShell(ctx, b.shell, command, out)
		}),
		expr.Function("typeOf", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("typeOf: want 1 argument, got %d", len(params))
			}
			if t := reflect.TypeOf(params[0]); t != nil {
				return t, nil
			}
			return nil, nil
		}),
		expr.Function("gradient", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("gradient: want 2 arguments, got %d", len(params))
			}
			w, okW := toInt(params[0])
			h, okH := toInt(params[1])
			if !okW || !okH || w <= 0 || h <= 0 || w > maxGradientSide || h > maxGradientSide {
				return nil, fmt.Errorf("gradient: invalid size %v x %v", params[0], params[1])
			}
			return gradient(w, h), nil
		}),
		expr.Function("environ", func(...any) (any, error) {
			env := map[string]string{}
			for _, kv := range os.Environ() {
				if k, v, ok := strings.Cut(kv, "="); ok {
					env[k] = v
				}
			}
			return env, nil
		}),
		expr.Function("vars", func(...any) (any, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			snapshot := make(map[string]any, len(b.vars))
			for k, v := range b.vars {
				snapshot[k] = v
			}
			return snapshot, nil
		}),
	}
}

// NeedsMoreInput reports whether src is an unfinished statement: open
// brackets or quotes, a trailing backslash, or a trailing binary operator.
func NeedsMoreInput(src string) bool {
	depth := 0
	var quote rune
	escaped := false
	for _, r := range src {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\' && quote != '`':
				escaped = true
			case r == quote:
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			quote = r
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		}
	}
	if quote != 0 || depth > 0 {
		return true
	}
	trimmed := strings.TrimRight(src, " \t\r\n")
	if trimmed == "" {
		return false
	}
	for _, suffix := range []string{"\\", "+", "-", "*", "/", "%", "&&", "||", "==", "!=", "<", ">", "=", ",", "?", ":", "|", "."} {
		if strings.HasSuffix(trimmed, suffix) {
			return true
		}
	}
	fields := strings.Fields(trimmed)
	switch fields[len(fields)-1] {
	case "and", "or", "not", "in":
		return len(fields) > 1
	}
	return false
}

func splitAssignment(src string) (name, body string) {
	m := assignmentPattern.FindStringSubmatch(src)
	if m == nil {
		return "", src
	}
	return m[1], m[2]
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}

func run(fn func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), float64(int(n)) == n
	}
	return 0, false
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(255 * x / max(w-1, 1)),
				G: uint8(255 * y / max(h-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}
