package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vuuvv/rplcui/bridge"
	"github.com/vuuvv/rplcui/config"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/present"
	"github.com/vuuvv/rplcui/session"
)

type testState struct {
	Form struct {
		Values map[string]any    `json:"values"`
		Errors map[string]string `json:"errors"`
		Rows   []struct {
			Key string `json:"key"`
		} `json:"rows"`
	} `json:"form"`
	Preview   session.Preview `json:"preview"`
	View      present.View    `json:"view"`
	Compiling bool            `json:"compiling"`
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	b := bridge.New(&bridge.Funcs{
		ValidateFunc: func(ctx context.Context, jsonText string) ([]core.Diagnostic, error) {
			return []core.Diagnostic{core.Warnf("field sensor_id has no unit")}, nil
		},
		CompileFunc: func(ctx context.Context, jsonText string) (string, error) {
			return "#pragma once\nstruct Generated {};\n", nil
		},
	}, 10)
	b.Start(context.Background())
	require.NoError(t, b.WaitReady(context.Background()))

	srv := NewServer(config.Default(), b)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) (*websocket.Conn, string) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	msg := readMessage(t, conn)
	require.Equal(t, MessageSession, msg.Type)
	var hello SessionPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &hello))
	require.NotEmpty(t, hello.Id)
	return conn, hello.Id
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readState(t *testing.T, conn *websocket.Conn, match func(*testState) bool) *testState {
	t.Helper()
	for {
		msg := readMessage(t, conn)
		if msg.Type != MessageState {
			continue
		}
		state := &testState{}
		require.NoError(t, json.Unmarshal(msg.Payload, state))
		if match(state) {
			return state
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := Message{Type: typ}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = raw
	}
	require.NoError(t, conn.WriteJSON(msg))
}

func anyState(*testState) bool { return true }

func TestServer_WebSocket(t *testing.T) {
	srv, ts := newTestServer(t)
	conn, id := dial(t, ts)

	t.Run("Should push the initial state", func(t *testing.T) {
		state := readState(t, conn, anyState)
		assert.Equal(t, "SensorData", state.Form.Values[core.PathPacketName])
		assert.Contains(t, state.Preview.Structured, `"command_id": "0x0104"`)
		assert.Len(t, state.Form.Rows, 1)
		assert.Equal(t, 1, srv.SessionCount())
	})

	t.Run("Should update previews on input", func(t *testing.T) {
		send(t, conn, MessageSet, SetPayload{Path: core.PathPacketName, Value: "Imu"})
		state := readState(t, conn, anyState)
		assert.Contains(t, state.Preview.Structured, `"packet_name": "Imu"`)
		assert.Contains(t, state.Preview.Source, "Live preview of Imu")
	})

	t.Run("Should show and clear inline errors", func(t *testing.T) {
		send(t, conn, MessageSet, SetPayload{Path: core.PathCommandID, Value: "70000"})
		state := readState(t, conn, anyState)
		assert.NotEmpty(t, state.Form.Errors[core.PathCommandID])

		send(t, conn, MessageSet, SetPayload{Path: core.PathCommandID, Value: "0x0200"})
		state = readState(t, conn, anyState)
		assert.Empty(t, state.Form.Errors[core.PathCommandID])
	})

	t.Run("Should keep row keys when appending", func(t *testing.T) {
		send(t, conn, MessageAppend, nil)
		state := readState(t, conn, anyState)
		require.Len(t, state.Form.Rows, 2)
		first := state.Form.Rows[0].Key

		send(t, conn, MessageRemove, RemovePayload{Index: 1})
		state = readState(t, conn, anyState)
		require.Len(t, state.Form.Rows, 1)
		assert.Equal(t, first, state.Form.Rows[0].Key)
	})

	t.Run("Should address row edits by key", func(t *testing.T) {
		send(t, conn, MessageAppend, nil)
		readState(t, conn, anyState)
		send(t, conn, MessageAppend, nil)
		state := readState(t, conn, anyState)
		require.Len(t, state.Form.Rows, 3)
		keys := []string{state.Form.Rows[0].Key, state.Form.Rows[1].Key, state.Form.Rows[2].Key}

		// 页面还没收到删除后的状态时, 仍然用旧行的 key 发送修改
		send(t, conn, MessageRemove, RemovePayload{Key: keys[0]})
		send(t, conn, MessageSet, SetPayload{Key: keys[1], Attr: core.AttrName, Value: "row_b"})
		state = readState(t, conn, func(s *testState) bool { return s.Form.Values["fields.0.name"] == "row_b" })
		require.Len(t, state.Form.Rows, 2)
		assert.Equal(t, keys[1], state.Form.Rows[0].Key)
		assert.Equal(t, "new_field", state.Form.Values["fields.1.name"])

		send(t, conn, MessageSet, SetPayload{Key: keys[0], Attr: core.AttrName, Value: "ghost"})
		for {
			msg := readMessage(t, conn)
			if msg.Type == MessageError {
				var p ErrorPayload
				require.NoError(t, json.Unmarshal(msg.Payload, &p))
				assert.Contains(t, p.Message, "no longer exists")
				break
			}
		}

		send(t, conn, MessageRemove, RemovePayload{Key: keys[2]})
		state = readState(t, conn, func(s *testState) bool { return len(s.Form.Rows) == 1 })
		assert.Equal(t, keys[1], state.Form.Rows[0].Key)
	})

	t.Run("Should compile and offer download", func(t *testing.T) {
		send(t, conn, MessageCompile, nil)
		state := readState(t, conn, func(s *testState) bool { return !s.Compiling && s.View.CanSave })
		assert.Equal(t, "Imu.hpp", state.View.Filename)
		assert.Equal(t, 1, state.View.WarningCount)

		resp, err := http.Get(ts.URL + "/api/download?session=" + id)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "attachment; filename=Imu.hpp", resp.Header.Get("Content-Disposition"))
		assert.Contains(t, string(body), "struct Generated")
	})

	t.Run("Should export and import", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/export?format=yaml&session=" + id)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Contains(t, string(body), "packet_name: Imu")

		resp, err = http.Post(ts.URL+"/api/import?session="+id, "application/json",
			strings.NewReader(`{"packet_name":"Gps","command_id":"12","fields":[{"name":"lat","type":"double"}]}`))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		state := readState(t, conn, func(s *testState) bool { return s.Form.Values[core.PathPacketName] == "Gps" })
		assert.Equal(t, "double", state.Form.Values["fields.0.type"])
	})

	t.Run("Should reject bad imports and unknown sessions", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/import?session="+id, "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, err = http.Get(ts.URL + "/api/download?session=missing")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Should report unknown commands", func(t *testing.T) {
		send(t, conn, "explode", nil)
		for {
			msg := readMessage(t, conn)
			if msg.Type == MessageError {
				var p ErrorPayload
				require.NoError(t, json.Unmarshal(msg.Payload, &p))
				assert.Contains(t, p.Message, "unknown command")
				break
			}
		}
	})

	t.Run("Should serve history and health", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/history")
		require.NoError(t, err)
		var history []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
		resp.Body.Close()
		assert.NotEmpty(t, history)

		resp, err = http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		var health map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
		resp.Body.Close()
		assert.Equal(t, "ok", health["status"])
		assert.Equal(t, "ready", health["bridge"])
		assert.Contains(t, health, "compiler")
	})

	t.Run("Should close the session on disconnect", func(t *testing.T) {
		require.NoError(t, conn.Close())
		assert.Eventually(t, func() bool { return srv.SessionCount() == 0 }, 3*time.Second, 10*time.Millisecond)
	})
}

func TestServer_StaticPage(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "new WebSocket")
}

func TestServer_StartStop(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1:0"
	srv := NewServer(cfg, bridge.New(&bridge.Funcs{}, 5))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	require.Eventually(t, func() bool { return srv.Addr() != nil }, 3*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.Stop())
	select {
	case err = <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RejectAfterStop(t *testing.T) {
	t.Run("Should refuse new websockets once stopped", func(t *testing.T) {
		srv, ts := newTestServer(t)
		require.NoError(t, srv.Stop())

		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
		conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
		if conn != nil {
			_ = conn.Close()
		}
		require.ErrorIs(t, err, websocket.ErrBadHandshake)
		require.NotNil(t, resp)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Zero(t, srv.SessionCount())
	})
}
