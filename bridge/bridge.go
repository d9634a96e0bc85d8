// Package bridge wraps the external packet compiler: one-shot initialization,
// validate-then-compile, and conversion of every failure into diagnostics.
package bridge

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/preview"
	"github.com/vuuvv/rplcui/utils"
	"go.uber.org/zap"
)

type State int32

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateBusy // Ready, 且有编译正在进行
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

const NotReadyMessage = "module not ready"

// Result 一次编译的结果, Source 为空表示没有生成代码
type Result struct {
	Sequence    uint64           `json:"sequence"`
	PacketName  string           `json:"packetName"`
	Diagnostics core.Diagnostics `json:"diagnostics"`
	Source      string           `json:"source,omitempty"`
	Start       time.Time        `json:"start"`
	End         time.Time        `json:"end"`
}

func (r *Result) HasSource() bool {
	return r.Source != ""
}

type Bridge struct {
	compiler  Compiler
	validator *core.Validator
	state     atomic.Int32
	inflight  atomic.Int32
	sequence  atomic.Uint64
	once      sync.Once
	done      chan struct{}
	initErr   error
	history   *utils.CircularBuffer[*Result]
}

func New(compiler Compiler, historySize int) *Bridge {
	return &Bridge{
		compiler:  compiler,
		validator: core.DefaultValidator(),
		done:      make(chan struct{}),
		history:   utils.NewCircularBuffer[*Result](historySize),
	}
}

// Start 异步初始化编译器, 只会执行一次
func (b *Bridge) Start(ctx context.Context) {
	b.once.Do(func() {
		b.state.Store(int32(StateInitializing))
		go b.initialize(ctx)
	})
}

func (b *Bridge) initialize(ctx context.Context) {
	defer close(b.done)
	err := utils.CallWithRecover(func() error {
		return b.compiler.Initialize(ctx)
	})
	if err != nil {
		b.initErr = err
		b.state.Store(int32(StateFailed))
		log.Error(errors.Wrap(err, "compiler initialization failed"))
		return
	}
	b.state.Store(int32(StateReady))
	log.Info("Compilation bridge ready")
}

// Done 初始化结束(成功或失败)时关闭
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

func (b *Bridge) WaitReady(ctx context.Context) error {
	select {
	case <-b.done:
		return b.initErr
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

func (b *Bridge) State() State {
	s := State(b.state.Load())
	if s == StateReady && b.inflight.Load() > 0 {
		return StateBusy
	}
	return s
}

func (b *Bridge) Ready() bool {
	return State(b.state.Load()) == StateReady
}

// Versioner 由能报告自身版本的编译器实现
type Versioner interface {
	Version() string
}

// CompilerVersion 初始化成功之后才有值
func (b *Bridge) CompilerVersion() string {
	if !b.Ready() {
		return ""
	}
	if v, ok := b.compiler.(Versioner); ok {
		return v.Version()
	}
	return ""
}

func (b *Bridge) History() []*Result {
	return b.history.GetAll()
}

// Compile 先校验, 没有错误时再编译. 任何失败都会变成一条错误诊断, 不会向上抛出.
func (b *Bridge) Compile(ctx context.Context, cfg core.Configuration) *Result {
	result := &Result{
		Sequence:   b.sequence.Add(1),
		PacketName: cfg.PacketName,
		Start:      time.Now(),
	}
	defer func() {
		result.End = time.Now()
		b.history.Add(result)
		log.Debug("Compile finished",
			zap.Uint64("sequence", result.Sequence),
			zap.Int("diagnostics", len(result.Diagnostics)),
			zap.Bool("source", result.HasSource()),
			zap.Duration("elapsed", result.End.Sub(result.Start)))
	}()

	if !b.Ready() {
		result.Diagnostics = core.Diagnostics{core.Errorf(NotReadyMessage)}
		return result
	}

	b.inflight.Add(1)
	defer b.inflight.Add(-1)

	for _, v := range b.validator.ValidateStructure(&cfg) {
		result.Diagnostics = append(result.Diagnostics, core.Errorf("%s: %s", v.Path, v.Message))
	}
	if result.Diagnostics.HasError() {
		return result
	}

	jsonText := preview.RenderStructured(cfg)

	var diags []core.Diagnostic
	err := utils.CallWithRecover(func() (err error) {
		diags, err = b.compiler.Validate(ctx, jsonText)
		return err
	})
	if err != nil {
		result.Diagnostics = core.Diagnostics{core.Errorf("validation failed: %s", err.Error())}
		return result
	}
	result.Diagnostics = diags
	if result.Diagnostics.HasError() {
		return result
	}

	var source string
	err = utils.CallWithRecover(func() (err error) {
		source, err = b.compiler.Compile(ctx, jsonText)
		return err
	})
	if err != nil {
		result.Diagnostics = append(result.Diagnostics.Warnings(), core.Errorf("compilation failed: %s", err.Error()))
		return result
	}
	result.Source = source
	return result
}
