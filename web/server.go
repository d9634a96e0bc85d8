// Package web serves the packet editor page, one websocket per editing
// session and the download, import and export endpoints.
package web

import (
	"context"
	"embed"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/bridge"
	"github.com/vuuvv/rplcui/config"
	"github.com/vuuvv/rplcui/core"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/session"
	"github.com/vuuvv/rplcui/utils"
	"go.uber.org/zap"
)

//go:embed static
var StaticFiles embed.FS

const shutdownTimeout = 30 * time.Second

type Server struct {
	config   *config.AppConfig
	bridge   *bridge.Bridge
	sessions sync.Map // session id -> *session.Session
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc

	mu       sync.Mutex
	listener net.Listener
	httpSrv  *http.Server
}

func NewServer(cfg *config.AppConfig, b *bridge.Bridge) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		config: cfg,
		bridge: b,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start 启动 http 服务, 阻塞直到 Stop 被调用
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Server.Address)
	if err != nil {
		return errors.Errorf("failed to start listener: %v", err)
	}
	srv := &http.Server{
		Handler:  s.Handler(),
		ErrorLog: zap.NewStdLog(log.HttpErrorLogger()),
	}

	s.mu.Lock()
	s.listener = listener
	s.httpSrv = srv
	s.mu.Unlock()

	log.Info("HTTP server start", zap.String("addr", listener.Addr().String()))

	err = srv.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.WithStack(err)
}

// Addr 监听的实际地址, 未启动时为 nil
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop 停止服务器
func (s *Server) Stop() error {
	log.Info("Stopping HTTP server")
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv != nil {
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn(errors.Wrap(err, "Error shutting down http server"))
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("Server shutdown complete")
		return nil
	case <-ctx.Done():
		return errors.Errorf("shutdown timeout")
	}
}

func (s *Server) newSession() *session.Session {
	sess := session.New(s.ctx, s.bridge, core.Default())
	sess.SetTimeout(s.config.Compiler.Timeout)
	s.sessions.Store(sess.Id(), sess)
	log.Info("Session opened", zap.String("session", sess.Id()))
	return sess
}

func (s *Server) closeSession(sess *session.Session) {
	s.sessions.Delete(sess.Id())
	sess.Close()
	log.Info("Session closed", zap.String("session", sess.Id()))
}

func (s *Server) Session(id string) (*session.Session, bool) {
	v, ok := s.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*session.Session), true
}

func (s *Server) SessionCount() (count int) {
	s.sessions.Range(func(key, value any) bool {
		count++
		return true
	})
	return
}

// track 在 Stop 等待之前登记连接, 已经停止时返回 false
func (s *Server) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.track() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer s.wg.Done()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn(errors.Wrap(err, "WebSocket upgrade error"))
		return
	}
	defer utils.NormalRecover()

	sess := s.newSession()
	defer s.closeSession(sess)

	stop := context.AfterFunc(s.ctx, func() { _ = conn.Close() })
	defer stop()

	client := NewClient(conn, sess, s.config.Server.SendBuffer, s.config.Server.WriteWait)
	client.ReadLoop()
}
