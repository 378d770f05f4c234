// Package syncserver is the net/http shell around
// internal/syncproto.ServerEngine: a single POST /meta_request endpoint
// plus a GET /healthz liveness probe. The Start/Stop/graceful-shutdown
// shape mirrors the net.Listen-based server lifecycle used elsewhere in
// this codebase.
package syncserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/meta-secret/meta-secret-go/internal/syncproto"
)

type Server struct {
	engine     *syncproto.ServerEngine
	httpServer *http.Server
	listener   net.Listener
	log        logr.Logger
	addr       string
}

func New(engine *syncproto.ServerEngine, addr string, log logr.Logger) *Server {
	mux := http.NewServeMux()
	s := &Server{engine: engine, log: log, addr: addr}

	mux.HandleFunc("/meta_request", s.handleMetaRequest)
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error(err, "sync server stopped unexpectedly")
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the address the server is actually listening on, which
// only differs from the configured addr when that addr used the ":0"
// ephemeral-port convention.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleMetaRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "only POST is supported")
		return
	}

	var req syncproto.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	resp := s.engine.Handle(r.Context(), req)
	status := http.StatusOK
	if !resp.OK {
		status = http.StatusConflict
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, syncproto.SyncResponse{OK: false, Error: message})
}
