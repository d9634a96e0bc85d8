package core

// CType 字段可选的 C 类型, Size 和 Align 以字节为单位
type CType struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Align int    `json:"align"`
}

var cTypes = []CType{
	{Name: "uint8_t", Size: 1, Align: 1},
	{Name: "int8_t", Size: 1, Align: 1},
	{Name: "uint16_t", Size: 2, Align: 2},
	{Name: "int16_t", Size: 2, Align: 2},
	{Name: "uint32_t", Size: 4, Align: 4},
	{Name: "int32_t", Size: 4, Align: 4},
	{Name: "uint64_t", Size: 8, Align: 8},
	{Name: "int64_t", Size: 8, Align: 8},
	{Name: "float", Size: 4, Align: 4},
	{Name: "double", Size: 8, Align: 8},
	{Name: "int", Size: 4, Align: 4},
}

var cTypeIndex = func() map[string]CType {
	m := make(map[string]CType, len(cTypes))
	for _, t := range cTypes {
		m[t.Name] = t
	}
	return m
}()

// CppTypes 返回所有支持的类型名, 顺序固定
func CppTypes() []string {
	names := make([]string, len(cTypes))
	for i, t := range cTypes {
		names[i] = t.Name
	}
	return names
}

func LookupType(name string) (CType, bool) {
	t, ok := cTypeIndex[name]
	return t, ok
}
