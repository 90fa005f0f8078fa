package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/wardenbot/warden/internal/engine"
	"github.com/wardenbot/warden/internal/events"
	"github.com/wardenbot/warden/internal/storage/audit"
)

const auditPollInterval = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type auditReader interface {
	RecordsAfter(index uint64) ([]audit.Entry, error)
}

type controller interface {
	StatusFor(account string) (engine.Status, error)
	PreviewDecision(ctx context.Context, account string) (engine.Preview, error)
}

// Server exposes the thin HTTP surface: an SSE replay of the audit trail,
// a websocket feed of live events and read-only status/preview endpoints.
type Server struct {
	Addr   string
	Audit  auditReader
	Events *events.Broadcaster
	Engine controller
	Logger *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, auditStore auditReader, broadcaster *events.Broadcaster, eng controller, logger *zap.Logger) *Server {
	return &Server{Addr: addr, Audit: auditStore, Events: broadcaster, Engine: eng, Logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/audit/stream", s.handleAuditStream)
	mux.HandleFunc("/ws", s.handleWebsocket)
	mux.HandleFunc("/status/", s.handleStatus)
	mux.HandleFunc("/preview/", s.handlePreview)

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleAuditStream(w http.ResponseWriter, r *http.Request) {
	if s.Audit == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "audit store not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	account := r.URL.Query().Get("account")

	// comment heartbeat every 30s so proxies keep the connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	pollTicker := time.NewTicker(auditPollInterval)
	defer pollTicker.Stop()

	lastIndex := uint64(0)
	sendRecords := func() error {
		entries, err := s.Audit.RecordsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			lastIndex = entry.Index
			if account != "" && entry.Record.Account != account {
				continue
			}
			payload, err := json.Marshal(entry.Record)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: audit\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
		return nil
	}

	if err := sendRecords(); err != nil {
		http.Error(w, "failed to load audit records", http.StatusInternalServerError)
		s.Logger.Error("audit stream initial load", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case <-pollTicker.C:
			if err := sendRecords(); err != nil {
				s.Logger.Error("audit stream poll", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.Events == nil {
		http.Error(w, "event feed not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Error("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := s.Events.Subscribe()
	defer s.Events.Unsubscribe(sub)

	// drain reads so close frames from the peer are processed
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				s.Logger.Error("event marshal", zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimPrefix(r.URL.Path, "/status/")
	if account == "" {
		http.Error(w, "account is required", http.StatusBadRequest)
		return
	}
	status, err := s.Engine.StatusFor(account)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, status, s.Logger)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	account := strings.TrimPrefix(r.URL.Path, "/preview/")
	if account == "" {
		http.Error(w, "account is required", http.StatusBadRequest)
		return
	}
	preview, err := s.Engine.PreviewDecision(r.Context(), account)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, preview, s.Logger)
}

func writeJSON(w http.ResponseWriter, v interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode", zap.Error(err))
	}
}
