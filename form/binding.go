package form

import (
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/store"
)

// Binding 输入框与配置路径的双向绑定: 路径, 读取, 写入
type Binding struct {
	Path string
	Key  string // 字段行的稳定 key, 顶层输入为空
	Get  func(cfg *core.Configuration) any
	Set  func(s *store.Store, value any) error
}

func leafBinding(p core.Path, key string) *Binding {
	path := p.String()
	return &Binding{
		Path: path,
		Key:  key,
		Get: func(cfg *core.Configuration) any {
			v, _ := cfg.Get(p)
			return v
		},
		Set: func(s *store.Store, value any) error {
			return s.SetField(path, value)
		},
	}
}

// optionalBinding 空输入保存为 nil, 读取时 nil 显示为空字符串
func optionalBinding(name string) *Binding {
	b := leafBinding(core.TopPath(name), "")
	get, set := b.Get, b.Set
	b.Get = func(cfg *core.Configuration) any {
		if v := get(cfg); v != nil {
			return v
		}
		return ""
	}
	b.Set = func(s *store.Store, value any) error {
		if value == nil {
			return set(s, nil)
		}
		if text, ok := value.(string); ok && text == "" {
			return set(s, nil)
		}
		return set(s, value)
	}
	return b
}

func topBindings() []*Binding {
	return []*Binding{
		leafBinding(core.TopPath(core.PathPacketName), ""),
		leafBinding(core.TopPath(core.PathCommandID), ""),
		optionalBinding(core.PathNamespace),
		leafBinding(core.TopPath(core.PathPacked), ""),
		optionalBinding(core.PathHeaderGuard),
	}
}

func rowBindings(index int, key string) []*Binding {
	return []*Binding{
		leafBinding(core.FieldPath(index, core.AttrName), key),
		leafBinding(core.FieldPath(index, core.AttrType), key),
		leafBinding(core.FieldPath(index, core.AttrComment), key),
	}
}
