// Package store holds the live packet configuration of one editing session.
package store

import (
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/utils"
)

// Snapshot 某个版本的完整配置, 订阅者拿到的都是副本
type Snapshot struct {
	Version uint64             `json:"version"`
	Config  core.Configuration `json:"config"`
	Keys    []string           `json:"keys"`
}

type Listener func(snap *Snapshot)

type subscription struct {
	id int
	fn Listener
}

type Store struct {
	mu         sync.Mutex
	notifyMu   sync.Mutex
	config     core.Configuration
	keys       []string
	version    uint64
	listeners  []subscription
	nextListen int
}

func New(cfg core.Configuration) *Store {
	s := &Store{}
	s.load(cfg)
	return s
}

func (s *Store) load(cfg core.Configuration) {
	s.config = cfg.Clone()
	if s.config.Fields == nil {
		s.config.Fields = []core.Field{}
	}
	s.keys = make([]string, 0, len(s.config.Fields))
	for range s.config.Fields {
		s.keys = append(s.keys, s.newKey())
	}
}

// newKey 生成一个与当前所有 key 都不同的 key
func (s *Store) newKey() string {
	for {
		key := uuid.NewString()
		taken := false
		for _, k := range s.keys {
			if k == key {
				taken = true
				break
			}
		}
		if !taken {
			return key
		}
	}
}

func (s *Store) snapshotLocked() *Snapshot {
	return &Snapshot{
		Version: s.version,
		Config:  s.config.Clone(),
		Keys:    append([]string(nil), s.keys...),
	}
}

func (s *Store) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe 注册监听, 返回取消函数
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListen
	s.nextListen++
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// mutate 在锁内修改, 修改完成后同步通知所有订阅者, 每次修改只通知一次.
// 订阅者可以读取 Store, 但不能在回调里再次修改它.
func (s *Store) mutate(fn func() error) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	snap, listeners, err := s.apply(fn)
	if err != nil {
		return err
	}
	for _, l := range listeners {
		l.fn(snap)
	}
	return nil
}

func (s *Store) apply(fn func() error) (*Snapshot, []subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		return nil, nil, err
	}
	s.version++
	return s.snapshotLocked(), append([]subscription(nil), s.listeners...), nil
}

func (s *Store) checkIndex(index int) {
	if index < 0 || index >= len(s.config.Fields) {
		utils.Panicf("store: field index %d out of range [0, %d)", index, len(s.config.Fields))
	}
}

// SetField 替换 path 指向的值. 字段下标越界是程序错误, 直接 panic
func (s *Store) SetField(path string, value any) error {
	p, err := core.ParsePath(path)
	if err != nil {
		return err
	}
	return s.mutate(func() error {
		return s.setLocked(p, value)
	})
}

func (s *Store) setLocked(p core.Path, value any) error {
	switch p.Name {
	case core.PathPacketName:
		return assignString(&s.config.PacketName, p, value)
	case core.PathCommandID:
		return assignString(&s.config.CommandID, p, value)
	case core.PathPacked:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return errors.Wrapf(err, "set %s", p)
		}
		s.config.Packed = b
		return nil
	case core.PathNamespace:
		return assignOptional(&s.config.Namespace, p, value)
	case core.PathHeaderGuard:
		return assignOptional(&s.config.HeaderGuard, p, value)
	case core.PathFields:
		s.checkIndex(p.Index)
		f := &s.config.Fields[p.Index]
		switch p.Attr {
		case core.AttrName:
			return assignString(&f.Name, p, value)
		case core.AttrType:
			return assignString(&f.Type, p, value)
		case core.AttrComment:
			return assignString(&f.Comment, p, value)
		}
	}
	return errors.Errorf("unknown path '%s'", p)
}

func assignString(dst *string, p core.Path, value any) error {
	s, err := toText(value)
	if err != nil {
		return errors.Wrapf(err, "set %s", p)
	}
	*dst = s
	return nil
}

func assignOptional(dst **string, p core.Path, value any) error {
	if value == nil {
		*dst = nil
		return nil
	}
	s, err := toText(value)
	if err != nil {
		return errors.Wrapf(err, "set %s", p)
	}
	*dst = &s
	return nil
}

// toText 输入框的值只接受标量, 其余类型当作错误
func toText(value any) (string, error) {
	switch value.(type) {
	case nil, map[string]any, []any:
		return "", errors.Errorf("expect a scalar value, got %T", value)
	}
	return cast.ToStringE(value)
}

// AppendField 在末尾添加字段, f 为 nil 时使用默认字段, 返回新字段的 key
func (s *Store) AppendField(f *core.Field) string {
	field := core.DefaultField()
	if f != nil {
		field = *f
	}
	var key string
	_ = s.mutate(func() error {
		key = s.newKey()
		s.config.Fields = append(s.config.Fields, field)
		s.keys = append(s.keys, key)
		return nil
	})
	return key
}

// RemoveField 删除字段, 其余字段的 key 不变
func (s *Store) RemoveField(index int) {
	_ = s.mutate(func() error {
		s.checkIndex(index)
		s.config.Fields = append(s.config.Fields[:index:index], s.config.Fields[index+1:]...)
		s.keys = append(s.keys[:index:index], s.keys[index+1:]...)
		return nil
	})
}

// MoveField 把 from 位置的字段移动到 to, key 跟着字段走
func (s *Store) MoveField(from, to int) {
	_ = s.mutate(func() error {
		s.checkIndex(from)
		s.checkIndex(to)
		field, key := s.config.Fields[from], s.keys[from]
		s.config.Fields = append(s.config.Fields[:from:from], s.config.Fields[from+1:]...)
		s.keys = append(s.keys[:from:from], s.keys[from+1:]...)
		s.config.Fields = insertAt(s.config.Fields, to, field)
		s.keys = insertAt(s.keys, to, key)
		return nil
	})
}

func insertAt[T any](list []T, index int, item T) []T {
	list = append(list, item)
	copy(list[index+1:], list[index:])
	list[index] = item
	return list
}

// Replace 整体替换配置, 所有行都会拿到新的 key
func (s *Store) Replace(cfg core.Configuration) {
	_ = s.mutate(func() error {
		s.keys = nil
		s.load(cfg)
		return nil
	})
}

func (s *Store) Reset() {
	s.Replace(core.Default())
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.config.Fields)
}
