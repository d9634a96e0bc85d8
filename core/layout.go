package core

// FieldLayout 字段在结构体中的位置, Known 为 false 时 Offset/Size 无意义
type FieldLayout struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Offset  int    `json:"offset"`
	Size    int    `json:"size"`
	Padding int    `json:"padding"` // 字段前的填充字节
	Known   bool   `json:"known"`
}

type PacketLayout struct {
	Fields          []FieldLayout `json:"fields"`
	Size            int           `json:"size"`
	Align           int           `json:"align"`
	TrailingPadding int           `json:"trailing_padding"`
	Complete        bool          `json:"complete"`
}

// Layout 计算字段偏移. packed 时没有任何填充, 否则按自然对齐.
// 遇到未知类型后, 之后的字段都无法确定位置.
func Layout(cfg *Configuration) PacketLayout {
	layout := PacketLayout{Align: 1, Complete: true}
	offset := 0
	for _, f := range cfg.Fields {
		fl := FieldLayout{Name: f.Name, Type: f.Type}
		t, ok := LookupType(f.Type)
		if !ok || !layout.Complete {
			layout.Complete = false
			layout.Fields = append(layout.Fields, fl)
			continue
		}
		if !cfg.Packed {
			fl.Padding = alignUp(offset, t.Align) - offset
			offset += fl.Padding
			if t.Align > layout.Align {
				layout.Align = t.Align
			}
		}
		fl.Offset = offset
		fl.Size = t.Size
		fl.Known = true
		offset += t.Size
		layout.Fields = append(layout.Fields, fl)
	}
	if !layout.Complete {
		return layout
	}
	layout.Size = alignUp(offset, layout.Align)
	layout.TrailingPadding = layout.Size - offset
	return layout
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
