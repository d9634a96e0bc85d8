// Package preview renders the live preview of a configuration: the canonical
// structured form sent to the compiler and a best-effort header.
package preview

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/vuuvv/rplcui/core"
	"gopkg.in/yaml.v3"
)

func canonical(cfg core.Configuration) core.Configuration {
	out := cfg.Clone()
	if out.Fields == nil {
		out.Fields = []core.Field{}
	}
	return out
}

// RenderStructured 配置的规范 JSON 形式: 键顺序固定, 两个空格缩进, 缺省的可选项输出 null.
// 同一个配置总是得到完全相同的输出.
func RenderStructured(cfg core.Configuration) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(canonical(cfg)); err != nil {
		// Configuration 只包含字符串/布尔/切片, 编码不会失败
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// RenderYAML 与 RenderStructured 相同的内容, YAML 格式, 用于导出
func RenderYAML(cfg core.Configuration) string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(canonical(cfg)); err != nil {
		return "{}\n"
	}
	_ = enc.Close()
	return buf.String()
}
