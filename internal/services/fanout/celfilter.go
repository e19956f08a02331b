package fanoutsvc

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program evaluated against each broadcast
// document. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		// Parsed document (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
		cel.Variable("text", cel.StringType),
		cel.Variable("size", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a document. Evaluation
// errors (missing fields, type mismatches) exclude the document.
func (f celFilter) Eval(payload []byte) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	_ = json.Unmarshal(payload, &jsonObj)
	out, _, err := f.prog.Eval(map[string]any{
		"json":   jsonObj,
		"text":   string(payload),
		"size":   int64(len(payload)),
		"now_ms": time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
