package core

// Field 数据包中的一个成员
type Field struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Comment string `json:"comment" yaml:"comment"`
}

const (
	DefaultFieldName = "new_field"
	DefaultFieldType = "uint8_t"
)

// DefaultField 新增字段时使用的默认值
func DefaultField() Field {
	return Field{Name: DefaultFieldName, Type: DefaultFieldType}
}
