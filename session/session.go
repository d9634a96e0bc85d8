// Package session runs one editing session: a store, its form, the live
// previews and the compile requests sent to the shared bridge.
//
// Every input event is handled under the session mutex, so the store
// notification, the form re-validation and the preview projection of one
// event complete before the next event starts. Compile requests run in
// goroutines and only the most recently requested one is ever displayed.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/bridge"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/form"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/present"
	"github.com/vuuvv/rplcui/preview"
	"github.com/vuuvv/rplcui/store"
	"github.com/vuuvv/rplcui/utils"
	"go.uber.org/zap"
)

const DefaultCompileTimeout = 30 * time.Second

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Preview struct {
	Structured string `json:"structured"`
	Source     string `json:"source"`
}

// Update 推送给客户端的完整会话状态
type Update struct {
	Session     string        `json:"session"`
	Form        *form.State   `json:"form"`
	Preview     Preview       `json:"preview"`
	View        *present.View `json:"view"`
	Compiling   bool          `json:"compiling"`
	Generation  uint64        `json:"generation"`
	BridgeState bridge.State  `json:"bridgeState"`
}

type Session struct {
	id      string
	ctx     context.Context
	timeout time.Duration

	mu        sync.Mutex
	store     *store.Store
	form      *form.Form
	bridge    *bridge.Bridge
	preview   Preview
	requested uint64
	applied   uint64
	result    *bridge.Result
	listeners []func(*Update)
	pending   sync.WaitGroup
}

func New(ctx context.Context, b *bridge.Bridge, cfg core.Configuration) *Session {
	s := &Session{
		id:      utils.GenId(),
		ctx:     ctx,
		timeout: DefaultCompileTimeout,
		store:   store.New(cfg),
		bridge:  b,
	}
	s.form = form.New(s.store, nil)
	s.project(s.form.State())
	s.form.Subscribe(s.project)
	return s
}

func (s *Session) Id() string {
	return s.id
}

func (s *Session) SetTimeout(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = timeout
}

// project 在 store 通知时同步调用, 此时 s.mu 已被持有
func (s *Session) project(state *form.State) {
	s.preview = Preview{
		Structured: preview.RenderStructured(state.Config),
		Source:     preview.RenderSource(state.Config),
	}
}

// Subscribe 每个事件处理完成后收到一次 Update, fn 不能阻塞也不能回调 Session
func (s *Session) Subscribe(fn func(*Update)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) Snapshot() *Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *Update {
	view := present.FromResult(s.result)
	compiling := s.applied < s.requested
	return &Update{
		Session:     s.id,
		Form:        s.form.State(),
		Preview:     s.preview,
		View:        view.WithStatus(s.bridge.Ready(), compiling),
		Compiling:   compiling,
		Generation:  s.applied,
		BridgeState: s.bridge.State(),
	}
}

func (s *Session) notifyLocked() {
	if len(s.listeners) == 0 {
		return
	}
	update := s.snapshotLocked()
	for _, fn := range s.listeners {
		fn(update)
	}
}

func (s *Session) handle(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn()
	s.notifyLocked()
	return err
}

func (s *Session) Input(path string, value any) error {
	return s.handle(func() error {
		return s.form.Input(path, value)
	})
}

// InputRow 按行的稳定 key 修改字段, 客户端还没收到最新状态时也不会改错行
func (s *Session) InputRow(key string, attr string, value any) error {
	return s.handle(func() error {
		return s.form.InputRow(key, attr, value)
	})
}

func (s *Session) RemoveRow(key string) error {
	return s.handle(func() error {
		return s.form.RemoveRow(key)
	})
}

func (s *Session) MoveRow(key string, to int) error {
	return s.handle(func() error {
		return s.form.MoveRow(key, to)
	})
}

func (s *Session) AppendField() (key string) {
	_ = s.handle(func() error {
		key = s.form.AddField()
		return nil
	})
	return
}

func (s *Session) RemoveField(index int) error {
	return s.handle(func() error {
		return s.form.RemoveField(index)
	})
}

func (s *Session) MoveField(from, to int) error {
	return s.handle(func() error {
		return s.form.MoveField(from, to)
	})
}

func (s *Session) Reset() {
	_ = s.handle(func() error {
		s.store.Reset()
		return nil
	})
}

// Import 用 JSON 或 YAML 文本替换整个配置
func (s *Session) Import(text []byte) error {
	cfg, err := core.Decode(text)
	if err != nil {
		return err
	}
	return s.handle(func() error {
		s.store.Replace(cfg)
		return nil
	})
}

func (s *Session) Export(format string) (string, error) {
	s.mu.Lock()
	cfg := s.store.Snapshot().Config
	s.mu.Unlock()

	switch format {
	case "", FormatJSON:
		return preview.RenderStructured(cfg) + "\n", nil
	case FormatYAML:
		return preview.RenderYAML(cfg), nil
	default:
		return "", errors.Errorf("unsupported export format: %s", format)
	}
}

// RequestCompile 发起一次编译, 返回这次请求的 generation.
// 只有最后一次请求的结果会被显示, 之前还未完成的请求结果会被丢弃.
func (s *Session) RequestCompile() uint64 {
	s.mu.Lock()
	s.requested++
	gen := s.requested
	cfg := s.store.Snapshot().Config
	timeout := s.timeout
	s.pending.Add(1)
	s.notifyLocked()
	s.mu.Unlock()

	go func() {
		defer s.pending.Done()
		defer utils.NormalRecover()

		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		s.apply(gen, s.bridge.Compile(ctx, cfg))
	}()
	return gen
}

func (s *Session) apply(gen uint64, result *bridge.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.requested {
		log.Debug("Discard stale compile result",
			zap.String("session", s.id),
			zap.Uint64("generation", gen),
			zap.Uint64("latest", s.requested))
		return
	}
	s.applied = gen
	s.result = result
	s.notifyLocked()
}

// Wait 等待所有已发起的编译结束
func (s *Session) Wait() {
	s.pending.Wait()
}

// Compile 同步编译当前配置并返回显示的内容
func (s *Session) Compile() *present.View {
	s.RequestCompile()
	s.Wait()
	return s.Snapshot().View
}

func (s *Session) Result() *bridge.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Download 返回可以保存的代码和文件名
func (s *Session) Download() (text string, filename string, ok bool) {
	v := s.Snapshot().View
	if !v.CanSave {
		return "", "", false
	}
	return v.Source, v.Filename, true
}

func (s *Session) Save(saver present.Saver) error {
	return present.Save(s.Snapshot().View, saver)
}

func (s *Session) Close() {
	s.Wait()
	s.form.Close()
}
