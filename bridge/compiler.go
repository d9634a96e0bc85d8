package bridge

import (
	"context"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/core"
)

// Compiler 外部编译器的接口. jsonText 为配置的规范 JSON 形式
type Compiler interface {
	Initialize(ctx context.Context) error
	Validate(ctx context.Context, jsonText string) ([]core.Diagnostic, error)
	Compile(ctx context.Context, jsonText string) (string, error)
}

// Funcs 由三个函数组成的 Compiler, 未设置的函数视为未实现
type Funcs struct {
	InitializeFunc func(ctx context.Context) error
	ValidateFunc   func(ctx context.Context, jsonText string) ([]core.Diagnostic, error)
	CompileFunc    func(ctx context.Context, jsonText string) (string, error)
}

func (f *Funcs) Initialize(ctx context.Context) error {
	if f.InitializeFunc == nil {
		return nil
	}
	return f.InitializeFunc(ctx)
}

func (f *Funcs) Validate(ctx context.Context, jsonText string) ([]core.Diagnostic, error) {
	if f.ValidateFunc == nil {
		return nil, errors.New("validate not implemented")
	}
	return f.ValidateFunc(ctx, jsonText)
}

func (f *Funcs) Compile(ctx context.Context, jsonText string) (string, error) {
	if f.CompileFunc == nil {
		return "", errors.New("compile not implemented")
	}
	return f.CompileFunc(ctx, jsonText)
}
