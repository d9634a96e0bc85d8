package core

import (
	"sync"

	"github.com/vuuvv/errors"
)

const (
	TargetIdentifier  = "identifier"
	TargetCommandID   = "command_id"
	TargetType        = "type"
	TargetNamespace   = "namespace"
	TargetHeaderGuard = "header_guard"
)

const identifierPattern = `^[A-Za-z_][A-Za-z0-9_]*$`

// Rule 一条校验规则, Expr 为 CEL 表达式, 返回 false 或求值出错时报告 Message
type Rule struct {
	Target  string
	Expr    string
	Message string
	eval    *CelEvaluator
}

// Rules 同一个 target 的规则按顺序执行, 第一条失败的规则生效
var Rules = []*Rule{
	{Target: TargetIdentifier, Expr: `val.size() > 0`, Message: "cannot be empty"},
	{Target: TargetIdentifier, Expr: `val.matches('` + identifierPattern + `')`, Message: "must be a valid C++ identifier"},

	{Target: TargetCommandID, Expr: `val.size() > 0`, Message: "cannot be empty"},
	{Target: TargetCommandID, Expr: `parse_number(val) >= 0 && parse_number(val) <= 65535`, Message: "must be a valid uint16 (0-65535)"},

	{Target: TargetType, Expr: `val.size() > 0`, Message: "cannot be empty"},
	{Target: TargetType, Expr: `val in types`, Message: "unsupported type"},

	{Target: TargetNamespace, Expr: `val.matches('^[A-Za-z_][A-Za-z0-9_]*(::[A-Za-z_][A-Za-z0-9_]*)*$')`, Message: "must be C++ identifiers separated by '::'"},

	{Target: TargetHeaderGuard, Expr: `val.matches('` + identifierPattern + `')`, Message: "must be a valid C++ identifier"},
}

// Violation 一条校验失败
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

type Validator struct {
	rules map[string][]*Rule
}

func NewValidator() (*Validator, error) {
	env, err := newRuleEnv()
	if err != nil {
		return nil, err
	}
	v := &Validator{rules: make(map[string][]*Rule)}
	for _, r := range Rules {
		eval, err := CompileExpression(env, r.Expr)
		if err != nil {
			return nil, errors.Wrapf(err, "rule for %s", r.Target)
		}
		compiled := *r
		compiled.eval = eval
		v.rules[r.Target] = append(v.rules[r.Target], &compiled)
	}
	return v, nil
}

var defaultValidator = sync.OnceValues(NewValidator)

// DefaultValidator 规则是固定的, 编译失败属于程序错误
func DefaultValidator() *Validator {
	v, err := defaultValidator()
	if err != nil {
		panic(err)
	}
	return v
}

func targetOf(p Path) string {
	switch p.Name {
	case PathPacketName:
		return TargetIdentifier
	case PathCommandID:
		return TargetCommandID
	case PathNamespace:
		return TargetNamespace
	case PathHeaderGuard:
		return TargetHeaderGuard
	case PathFields:
		switch p.Attr {
		case AttrName:
			return TargetIdentifier
		case AttrType:
			return TargetType
		}
	}
	return ""
}

// ValidatePath 校验单个叶子节点, 返回失败信息
func (v *Validator) ValidatePath(cfg *Configuration, p Path) (message string, ok bool) {
	target := targetOf(p)
	if target == "" {
		return "", true
	}
	val, exists := cfg.Get(p)
	if !exists {
		return "", true
	}
	// 可选项未设置时不校验
	if val == nil {
		return "", true
	}
	for _, r := range v.rules[target] {
		passed, err := r.eval.Check(val)
		if err != nil || !passed {
			return r.Message, false
		}
	}
	return "", true
}

// LeafPaths 配置当前所有叶子节点
func LeafPaths(cfg *Configuration) []Path {
	paths := []Path{
		TopPath(PathPacketName),
		TopPath(PathCommandID),
		TopPath(PathNamespace),
		TopPath(PathPacked),
		TopPath(PathHeaderGuard),
	}
	for i := range cfg.Fields {
		paths = append(paths, FieldPath(i, AttrName), FieldPath(i, AttrType), FieldPath(i, AttrComment))
	}
	return paths
}

// Validate 校验所有叶子节点, 不包括字段数量的检查
func (v *Validator) Validate(cfg *Configuration) []Violation {
	var out []Violation
	for _, p := range LeafPaths(cfg) {
		if msg, ok := v.ValidatePath(cfg, p); !ok {
			out = append(out, Violation{Path: p.String(), Message: msg})
		}
	}
	return out
}

// ValidateStructure 结构性检查, 只在编译时执行
func (v *Validator) ValidateStructure(cfg *Configuration) []Violation {
	if len(cfg.Fields) == 0 {
		return []Violation{{Path: PathFields, Message: "at least one field is required"}}
	}
	return nil
}

func (v *Validator) ValidateAll(cfg *Configuration) []Violation {
	return append(v.ValidateStructure(cfg), v.Validate(cfg)...)
}
