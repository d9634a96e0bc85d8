package web

import (
	"encoding/json"
	"io"
	"io/fs"
	"net/http"

	"github.com/vuuvv/errors"
	"github.com/vuuvv/rplcui/log"
	"github.com/vuuvv/rplcui/present"
	"github.com/vuuvv/rplcui/session"
	"go.uber.org/zap"
)

const maxImportSize = 1 << 20

// Handler 注册所有路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	staticFS, _ := fs.Sub(StaticFiles, "static")
	mux.Handle("GET /", http.FileServer(http.FS(staticFS)))

	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/download", s.withSession(s.handleDownload))
	mux.HandleFunc("GET /api/export", s.withSession(s.handleExport))
	mux.HandleFunc("POST /api/import", s.withSession(s.handleImport))
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) withSession(fn func(http.ResponseWriter, *http.Request, *session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("session")
		sess, ok := s.Session(id)
		if !ok {
			http.Error(w, "unknown session", http.StatusNotFound)
			return
		}
		fn(w, r, sess)
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	text, filename, ok := sess.Download()
	if !ok {
		http.Error(w, "nothing to download", http.StatusConflict)
		return
	}
	if err := (&present.HTTPSaver{W: w}).Save(text, filename); err != nil {
		log.Warn(errors.Wrap(err, "download failed"), zap.String("session", sess.Id()))
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	format := r.URL.Query().Get("format")
	text, err := sess.Export(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	contentType := "application/json"
	if format == session.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType+"; charset=utf-8")
	_, _ = io.WriteString(w, text)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if err = sess.Import(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.bridge.History())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"bridge":   s.bridge.State(),
		"compiler": s.bridge.CompilerVersion(),
		"sessions": s.SessionCount(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn(errors.Wrap(err, "encode response"))
	}
}
