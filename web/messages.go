package web

import (
	"encoding/json"
)

// 客户端发送的消息类型
const (
	MessageSet     = "set"
	MessageAppend  = "append"
	MessageRemove  = "remove"
	MessageMove    = "move"
	MessageCompile = "compile"
	MessageReset   = "reset"
	MessageImport  = "import"
	MessageSync    = "sync"
)

// 服务端发送的消息类型
const (
	MessageSession = "session"
	MessageState   = "state"
	MessageError   = "error"
)

// Message websocket 上所有消息的外层结构
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SetPayload 顶层输入使用 Path; 字段行使用 Key + Attr, 与行当前的位置无关
type SetPayload struct {
	Path  string `json:"path,omitempty"`
	Key   string `json:"key,omitempty"`
	Attr  string `json:"attr,omitempty"`
	Value any    `json:"value"`
}

// RemovePayload 有 Key 时按 key 删除, 否则按 Index
type RemovePayload struct {
	Key   string `json:"key,omitempty"`
	Index int    `json:"index"`
}

type MovePayload struct {
	Key  string `json:"key,omitempty"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

type ImportPayload struct {
	Text string `json:"text"`
}

type SessionPayload struct {
	Id string `json:"id"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func newMessage(typ string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Payload: raw}, nil
}
