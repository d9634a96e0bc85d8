// Package form keeps every input of the packet form bound to the store and
// re-validates the whole form after each store notification.
package form

import (
	"slices"
	"sync"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/store"
	"github.com/vuuvv/rplcui/utils"
	"go.uber.org/zap"
)

type RowState struct {
	Key   string `json:"key"`
	Index int    `json:"index"`
}

// State 表单当前的完整状态, Errors 只包含校验失败的路径
type State struct {
	Version uint64             `json:"version"`
	Config  core.Configuration `json:"config"`
	Rows    []RowState         `json:"rows"`
	Added   []string           `json:"added,omitempty"`   // 相比上个版本新增的行
	Removed []string           `json:"removed,omitempty"` // 相比上个版本删除的行
	Values  map[string]any     `json:"values"`
	Errors  map[string]string  `json:"errors"`
}

func (s *State) Valid() bool {
	return len(s.Errors) == 0
}

type Form struct {
	mu        sync.Mutex
	store     *store.Store
	validator *core.Validator
	top       []*Binding
	rows      []*Binding
	rowKeys   []string
	index     map[string]*Binding
	state     *State
	listeners []func(*State)
	cancel    func()
}

func New(s *store.Store, validator *core.Validator) *Form {
	if validator == nil {
		validator = core.DefaultValidator()
	}
	f := &Form{
		store:     s,
		validator: validator,
		top:       topBindings(),
	}
	f.update(s.Snapshot())
	f.cancel = s.Subscribe(f.update)
	return f
}

func (f *Form) Close() {
	if f.cancel != nil {
		f.cancel()
	}
}

func (f *Form) Store() *store.Store {
	return f.store
}

func (f *Form) Subscribe(fn func(*State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

func (f *Form) State() *State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Form) Bindings() []*Binding {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append(append([]*Binding(nil), f.top...), f.rows...)
}

// Input 用户在 path 对应的输入框中输入了 value
func (f *Form) Input(path string, value any) error {
	f.mu.Lock()
	b, ok := f.index[path]
	f.mu.Unlock()
	if !ok {
		return errors.Errorf("no input bound to '%s'", path)
	}
	return b.Set(f.store, value)
}

// rowBinding 按行的稳定 key 查找绑定, 行已删除时返回错误
func (f *Form) rowBinding(key string, attr string) (*Binding, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	index := slices.Index(f.rowKeys, key)
	if index < 0 {
		return nil, -1, errors.Errorf("field row '%s' no longer exists", key)
	}
	if attr == "" {
		return nil, index, nil
	}
	b, ok := f.index[core.FieldPath(index, attr).String()]
	if !ok || b.Key != key {
		return nil, index, errors.Errorf("no input bound to attribute '%s' of row '%s'", attr, key)
	}
	return b, index, nil
}

// InputRow 按行 key 修改字段属性, 与行当前的位置无关
func (f *Form) InputRow(key string, attr string, value any) error {
	b, _, err := f.rowBinding(key, attr)
	if err != nil {
		return err
	}
	return b.Set(f.store, value)
}

func (f *Form) RemoveRow(key string) error {
	_, index, err := f.rowBinding(key, "")
	if err != nil {
		return err
	}
	f.store.RemoveField(index)
	return nil
}

func (f *Form) MoveRow(key string, to int) error {
	_, from, err := f.rowBinding(key, "")
	if err != nil {
		return err
	}
	return f.MoveField(from, to)
}

func (f *Form) AddField() string {
	return f.store.AppendField(nil)
}

func (f *Form) RemoveField(index int) error {
	if err := f.checkIndex(index); err != nil {
		return err
	}
	f.store.RemoveField(index)
	return nil
}

func (f *Form) MoveField(from, to int) error {
	if err := f.checkIndex(from); err != nil {
		return err
	}
	if err := f.checkIndex(to); err != nil {
		return err
	}
	f.store.MoveField(from, to)
	return nil
}

func (f *Form) checkIndex(index int) error {
	if n := f.store.Len(); index < 0 || index >= n {
		return errors.Errorf("field index %d out of range [0, %d)", index, n)
	}
	return nil
}

// update 每次 store 变化后调用: 重建行绑定, 重新读取所有值并全部重新校验
func (f *Form) update(snap *store.Snapshot) {
	f.mu.Lock()

	var added, removed []string
	if !utils.EqualBy(f.rowKeys, snap.Keys, identity) {
		added, removed = utils.DifferenceBy(f.rowKeys, snap.Keys, identity)
		f.rows = f.rows[:0]
		for i, key := range snap.Keys {
			f.rows = append(f.rows, rowBindings(i, key)...)
		}
		f.rowKeys = snap.Keys
		if len(added) > 0 || len(removed) > 0 {
			log.Debug("form rows changed", zap.Strings("added", added), zap.Strings("removed", removed))
		}
	}

	state := &State{
		Version: snap.Version,
		Config:  snap.Config,
		Rows:    make([]RowState, len(snap.Keys)),
		Added:   added,
		Removed: removed,
		Values:  make(map[string]any),
		Errors:  make(map[string]string),
	}
	for i, key := range snap.Keys {
		state.Rows[i] = RowState{Key: key, Index: i}
	}

	f.index = make(map[string]*Binding, len(f.top)+len(f.rows))
	for _, b := range append(append([]*Binding(nil), f.top...), f.rows...) {
		f.index[b.Path] = b
		state.Values[b.Path] = b.Get(&snap.Config)
		p, err := core.ParsePath(b.Path)
		if err != nil {
			continue
		}
		if msg, ok := f.validator.ValidatePath(&snap.Config, p); !ok {
			state.Errors[b.Path] = msg
		}
	}
	f.state = state
	listeners := slices.Clone(f.listeners)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func identity(s string) string {
	return s
}
