package core

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/vuuvv/errors"
)

type CelEvaluator struct {
	expr string
	prg  cel.Program
}

func newRuleEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("val", cel.DynType),                    // val 为当前输入框的值
		cel.Variable("types", cel.ListType(cel.StringType)), // 支持的 C 类型
		cel.Function("parse_number",
			cel.Overload("parse_number_string", []*cel.Type{cel.StringType}, cel.IntType,
				cel.UnaryBinding(parseNumberBinding),
			),
		),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return env, nil
}

func parseNumberBinding(arg ref.Val) ref.Val {
	s, ok := arg.(types.String)
	if !ok {
		return types.MaybeNoSuchOverloadErr(arg)
	}
	n, err := ParseNumber(string(s))
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	return types.Int(n)
}

func CompileExpression(env *cel.Env, expr string) (*CelEvaluator, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, errors.Wrapf(issues.Err(), "compile expression '%s'", expr)
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &CelEvaluator{expr: expr, prg: prg}, nil
}

// Check 对 val 求值, 表达式必须返回 bool
func (e *CelEvaluator) Check(val any) (bool, error) {
	input := map[string]any{
		"val":   val,
		"types": CppTypes(),
	}
	out, _, err := e.prg.Eval(input)
	if err != nil {
		return false, errors.Wrapf(err, "eval '%s'", e.expr)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("expression '%s' returned %T, expect bool", e.expr, out.Value())
	}
	return b, nil
}
