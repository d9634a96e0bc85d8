package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/vuuvv/errors"
	"gopkg.in/yaml.v3"
)

// Configuration 一个完整的数据包定义, 字段顺序即内存/线上的顺序
type Configuration struct {
	PacketName  string  `json:"packet_name" yaml:"packet_name"`
	CommandID   string  `json:"command_id" yaml:"command_id"`
	Namespace   *string `json:"namespace" yaml:"namespace"`
	Packed      bool    `json:"packed" yaml:"packed"`
	HeaderGuard *string `json:"header_guard" yaml:"header_guard"`
	Fields      []Field `json:"fields" yaml:"fields"`
}

func Default() Configuration {
	return Configuration{
		PacketName: "SensorData",
		CommandID:  "0x0104",
		Packed:     true,
		Fields: []Field{
			{Name: "sensor_id", Type: "uint8_t", Comment: "Sensor ID"},
		},
	}
}

func (c *Configuration) Clone() Configuration {
	out := *c
	out.Namespace = cloneString(c.Namespace)
	out.HeaderGuard = cloneString(c.HeaderGuard)
	if c.Fields != nil {
		out.Fields = make([]Field, len(c.Fields))
		copy(out.Fields, c.Fields)
	}
	return out
}

// HeaderGuardOrDefault 未设置 header_guard 时根据 packet_name 生成
func (c *Configuration) HeaderGuardOrDefault() string {
	if c.HeaderGuard != nil && *c.HeaderGuard != "" {
		return *c.HeaderGuard
	}
	return "RPL_" + sanitizeIdentifier(strings.ToUpper(c.PacketName)) + "_HPP"
}

func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// decodedConfiguration packed 缺省为 true, 所以先用指针接收
type decodedConfiguration struct {
	PacketName  string    `yaml:"packet_name"`
	CommandID   yaml.Node `yaml:"command_id"`
	Namespace   *string   `yaml:"namespace"`
	Packed      *bool     `yaml:"packed"`
	HeaderGuard *string   `yaml:"header_guard"`
	Fields      []Field   `yaml:"fields"`
}

type decodedJSONConfiguration struct {
	PacketName  string          `json:"packet_name"`
	CommandID   json.RawMessage `json:"command_id"`
	Namespace   *string         `json:"namespace"`
	Packed      *bool           `json:"packed"`
	HeaderGuard *string         `json:"header_guard"`
	Fields      []Field         `json:"fields"`
}

// Decode 解析 JSON 或 YAML 格式的配置.
// 以 { 开头的文本按 JSON 解析, 保证 RenderStructured 的输出可以原样读回;
// 不是合法 JSON 时再按 YAML (flow mapping) 解析.
func Decode(text []byte) (Configuration, error) {
	trimmed := bytes.TrimSpace(text)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		cfg, jsonErr := decodeJSON(trimmed)
		if jsonErr == nil {
			return cfg, nil
		}
		cfg, err := decodeYAML(text)
		if err != nil {
			return Configuration{}, jsonErr
		}
		return cfg, nil
	}
	return decodeYAML(text)
}

func decodeJSON(text []byte) (Configuration, error) {
	var d decodedJSONConfiguration
	if err := json.Unmarshal(text, &d); err != nil {
		return Configuration{}, errors.Wrap(err, "decode configuration")
	}
	cfg := newDecoded(d.PacketName, d.Namespace, d.Packed, d.HeaderGuard, d.Fields)

	raw := bytes.TrimSpace(d.CommandID)
	switch {
	case len(raw) == 0, string(raw) == "null":
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &cfg.CommandID); err != nil {
			return Configuration{}, errors.Wrap(err, "decode configuration: command_id")
		}
	case raw[0] == '{', raw[0] == '[':
		return Configuration{}, errors.New("decode configuration: command_id must be a scalar")
	default:
		// 数字字面量保持原文
		cfg.CommandID = string(raw)
	}
	return cfg, nil
}

func decodeYAML(text []byte) (Configuration, error) {
	var d decodedConfiguration
	if err := yaml.Unmarshal(text, &d); err != nil {
		return Configuration{}, errors.Wrap(err, "decode configuration")
	}
	cfg := newDecoded(d.PacketName, d.Namespace, d.Packed, d.HeaderGuard, d.Fields)
	// 取原始文本, 未加引号的 0x0104 也保持原样
	switch {
	case d.CommandID.IsZero(), d.CommandID.Tag == "!!null":
	case d.CommandID.Kind == yaml.ScalarNode:
		cfg.CommandID = d.CommandID.Value
	default:
		return Configuration{}, errors.Errorf("decode configuration: command_id must be a scalar, line %d", d.CommandID.Line)
	}
	return cfg, nil
}

func newDecoded(packetName string, namespace *string, packed *bool, headerGuard *string, fields []Field) Configuration {
	if fields == nil {
		fields = []Field{}
	}
	return Configuration{
		PacketName:  packetName,
		Namespace:   emptyToNil(namespace),
		Packed:      packed == nil || *packed,
		HeaderGuard: emptyToNil(headerGuard),
		Fields:      fields,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
