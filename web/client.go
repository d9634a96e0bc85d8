package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/session"
	"github.com/vuuvv/rplcui/utils"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client 一个浏览器标签页的 websocket 连接, 对应一个 Session
type Client struct {
	conn      *websocket.Conn
	session   *session.Session
	sendCh    chan Message
	done      chan struct{}
	writeWait time.Duration
}

func NewClient(conn *websocket.Conn, s *session.Session, sendBuffer int, writeWait time.Duration) *Client {
	c := &Client{
		conn:      conn,
		session:   s,
		sendCh:    make(chan Message, sendBuffer),
		done:      make(chan struct{}),
		writeWait: writeWait,
	}
	s.Subscribe(c.sendState)
	go c.writeLoop()
	return c
}

// Send 不会阻塞. 缓冲区满时丢弃最旧的一条消息, 每条 state 都是完整状态所以后来的可以覆盖之前的
func (c *Client) Send(msg Message) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.sendCh <- msg:
		return
	default:
	}
	select {
	case <-c.sendCh:
	default:
	}
	select {
	case c.sendCh <- msg:
	default:
		log.Warn("websocket send buffer full, message dropped", zap.String("session", c.session.Id()))
	}
}

func (c *Client) sendState(update *session.Update) {
	msg, err := newMessage(MessageState, update)
	if err != nil {
		log.Error(errors.Wrap(err, "encode state"))
		return
	}
	c.Send(msg)
}

func (c *Client) sendError(err error) {
	msg, _ := newMessage(MessageError, ErrorPayload{Message: err.Error()})
	c.Send(msg)
}

func (c *Client) writeLoop() {
	defer utils.NormalRecover()
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.sendCh:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Debug("websocket write failed", zap.String("session", c.session.Id()), zap.Error(err))
				return
			}
		case <-c.done:
			return
		}
	}
}

// ReadLoop 读取客户端命令直到连接断开
func (c *Client) ReadLoop() {
	defer close(c.done)

	hello, _ := newMessage(MessageSession, SessionPayload{Id: c.session.Id()})
	c.Send(hello)
	c.sendState(c.session.Snapshot())

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("websocket closed", zap.String("session", c.session.Id()), zap.Error(err))
			}
			return
		}
		var msg Message
		if err = json.Unmarshal(raw, &msg); err != nil {
			c.sendError(errors.New("invalid message format"))
			continue
		}
		if err = c.handle(msg); err != nil {
			c.sendError(err)
		}
	}
}

func (c *Client) handle(msg Message) error {
	s := c.session
	switch msg.Type {
	case MessageSet:
		var p SetPayload
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		if p.Key != "" {
			return s.InputRow(p.Key, p.Attr, p.Value)
		}
		return s.Input(p.Path, p.Value)
	case MessageAppend:
		s.AppendField()
	case MessageRemove:
		var p RemovePayload
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		if p.Key != "" {
			return s.RemoveRow(p.Key)
		}
		return s.RemoveField(p.Index)
	case MessageMove:
		var p MovePayload
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		if p.Key != "" {
			return s.MoveRow(p.Key, p.To)
		}
		return s.MoveField(p.From, p.To)
	case MessageCompile:
		s.RequestCompile()
	case MessageReset:
		s.Reset()
	case MessageImport:
		var p ImportPayload
		if err := decodePayload(msg, &p); err != nil {
			return err
		}
		return s.Import([]byte(p.Text))
	case MessageSync:
		c.sendState(s.Snapshot())
	default:
		return errors.Errorf("unknown command: %s", msg.Type)
	}
	return nil
}

func decodePayload(msg Message, v any) error {
	if len(msg.Payload) == 0 {
		return errors.Errorf("missing %s payload", msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return errors.Wrapf(err, "invalid %s payload", msg.Type)
	}
	return nil
}
