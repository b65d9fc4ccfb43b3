package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"voice-commands/internal/domain"
)

const (
	maxRecordingBytes = 10 << 20
	maxTextBytes      = 1 << 10
	queueCapacity     = 10
	requestsPerMinute = 30
)

var errSourceStopped = errors.New("http source stopped")

// HTTPSource accepts WAV recordings (POST /audio) and typed commands
// (POST /text) from remote clients such as a phone shortcut. Each accepted
// request becomes one utterance for the command loop.
type HTTPSource struct {
	addr      string
	authToken string
	logger    *slog.Logger
	limiter   *RateLimiter
	mux       *http.ServeMux
	pending   chan []byte
	done      chan struct{}

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	stopped  bool
}

type commandReply struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Command    string `json:"command,omitempty"`
	Bytes      int    `json:"bytes,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

type healthReply struct {
	Status  string `json:"status"`
	Running bool   `json:"running"`
	Pending int    `json:"pending"`
}

func NewHTTPSource(addr string, authToken string, logger *slog.Logger) *HTTPSource {
	h := &HTTPSource{
		addr:      addr,
		authToken: authToken,
		logger:    logger,
		limiter:   NewRateLimiter(requestsPerMinute, time.Minute),
		mux:       http.NewServeMux(),
		pending:   make(chan []byte, queueCapacity),
		done:      make(chan struct{}),
	}
	h.mux.HandleFunc("POST /audio", h.limiter.Middleware(h.requireToken(h.handleRecording)))
	h.mux.HandleFunc("POST /text", h.limiter.Middleware(h.requireToken(h.handleText)))
	h.mux.HandleFunc("GET /health", h.handleHealth)
	return h
}

func (h *HTTPSource) Name() string {
	return "http"
}

// Start binds the listener before returning so a bad address fails startup.
func (h *HTTPSource) Start(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return errSourceStopped
	}
	if h.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", h.addr, err)
	}

	h.listener = ln
	h.server = &http.Server{
		Handler:      h.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func(srv *http.Server) {
		h.logger.Info("command server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("command server failed", "error", err)
		}
	}(h.server)

	return nil
}

// Addr reports the bound address, or "" before Start.
func (h *HTTPSource) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

func (h *HTTPSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		return nil
	}
	h.stopped = true
	close(h.done)

	if h.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := h.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}

func (h *HTTPSource) NextCommand(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, errSourceStopped
	case data := <-h.pending:
		return data, nil
	}
}

func (h *HTTPSource) Handler() http.Handler {
	return h.mux
}

// InjectAudio queues a payload without going through HTTP. Dropped when full.
func (h *HTTPSource) InjectAudio(data []byte) {
	h.enqueue(data)
}

func (h *HTTPSource) enqueue(data []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.pending <- data:
		return true
	default:
		return false
	}
}

func (h *HTTPSource) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.authToken == "" {
			next(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != h.authToken {
			h.logger.Warn("unauthorized command request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			writeReply(w, http.StatusUnauthorized, commandReply{Status: "rejected", Error: "unauthorized"})
			return
		}
		next(w, r)
	}
}

// handleRecording accepts only WAV so undecodable uploads never reach
// transcription.
func (h *HTTPSource) handleRecording(w http.ResponseWriter, r *http.Request) {
	data, status, err := readLimited(w, r, maxRecordingBytes)
	if err != nil {
		writeReply(w, status, commandReply{Status: "rejected", Error: err.Error()})
		return
	}
	if len(data) == 0 {
		writeReply(w, http.StatusBadRequest, commandReply{Status: "rejected", Error: "empty audio"})
		return
	}

	format, err := ReadWAVFormat(data)
	if err != nil {
		h.logger.Warn("rejected recording", "bytes", len(data), "remote_addr", r.RemoteAddr, "error", err)
		writeReply(w, http.StatusUnsupportedMediaType, commandReply{Status: "rejected", Error: "audio must be wav"})
		return
	}

	if !h.enqueue(data) {
		writeReply(w, http.StatusServiceUnavailable, commandReply{Status: "busy", Error: "queue full, try again"})
		return
	}

	h.logger.Info("queued recording", "bytes", len(data), "sample_rate", format.SampleRate, "channels", format.Channels)
	writeReply(w, http.StatusAccepted, commandReply{Status: "queued", Bytes: len(data), SampleRate: format.SampleRate})
}

func (h *HTTPSource) handleText(w http.ResponseWriter, r *http.Request) {
	data, status, err := readLimited(w, r, maxTextBytes)
	if err != nil {
		writeReply(w, status, commandReply{Status: "rejected", Error: err.Error()})
		return
	}

	command := strings.TrimSpace(string(data))
	if command == "" {
		writeReply(w, http.StatusBadRequest, commandReply{Status: "rejected", Error: "empty text"})
		return
	}

	if !h.enqueue([]byte(domain.TextCommandPrefix + command)) {
		writeReply(w, http.StatusServiceUnavailable, commandReply{Status: "busy", Error: "queue full, try again"})
		return
	}

	h.logger.Info("queued text command", "command", command)
	writeReply(w, http.StatusAccepted, commandReply{Status: "queued", Command: command})
}

func (h *HTTPSource) handleHealth(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	running := h.server != nil && !h.stopped
	h.mu.Unlock()

	reply := healthReply{Status: "ok", Running: running, Pending: len(h.pending)}
	code := http.StatusOK
	if !running {
		reply.Status = "not_ready"
		code = http.StatusServiceUnavailable
	}
	writeReply(w, code, reply)
}

func readLimited(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, int, error) {
	defer r.Body.Close()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("body exceeds %d bytes", limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read body")
	}
	return data, http.StatusOK, nil
}

func writeReply(w http.ResponseWriter, code int, reply any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(reply)
}
