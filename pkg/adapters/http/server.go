package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/presentation/graph"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the read-only view of a running tree that the server exposes.
type Engine interface {
	// Structure returns the tree with no entity state, root first.
	Structure() []domain.NodeState
	Entities() []runner.EntityInfo
	Entity(id string) (runner.EntityInfo, error)
	Inspect(id string) ([]domain.NodeState, error)
}

// TickEvent is pushed to entity event streams after each tick.
type TickEvent struct {
	Entity string        `json:"entity"`
	Seq    uint64        `json:"seq"`
	Status domain.Status `json:"status"`
}

// EntityView is the body of GET /entities/{id}.
type EntityView struct {
	runner.EntityInfo
	Nodes []domain.NodeState `json:"nodes"`
}

// Server serves the inspection API.
type Server struct {
	Engine   Engine
	Streams  *StreamManager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithGatherer exposes the metrics of g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server for engine.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		Engine:   engine,
		Streams:  NewStreamManager(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.Streams.logger = s.logger
	return s
}

// Handler returns the router of the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/graph", s.GetGraph)
	r.Route("/entities", func(r chi.Router) {
		r.Get("/", s.ListEntities)
		r.Get("/{id}", s.GetEntity)
		r.Get("/{id}/graph", s.GetEntityGraph)
		r.Get("/{id}/events", s.SubscribeEvents)
	})
	return enableCORS(r)
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	return NewServer(engine, opts...).Handler()
}

// Publish broadcasts a tick to the subscribers of the entity.
// Its signature matches runner.WithAfterTick.
func (s *Server) Publish(id string, seq uint64, status domain.Status) {
	bytes, err := json.Marshal(TickEvent{Entity: id, Seq: seq, Status: status})
	if err != nil {
		return
	}
	s.Streams.Broadcast(id, string(bytes))
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	tree := ""
	if nodes := s.Engine.Structure(); len(nodes) > 0 {
		tree = nodes[0].Name
	}
	s.writeJSON(w, map[string]string{
		"app":     "canopy-http",
		"version": strings.TrimSpace(canopy.Version),
		"tree":    tree,
	})
}

// GetGraph handles the GET /graph request. ?format=text selects the
// indented text form instead of Mermaid.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	s.writeGraph(w, r, s.Engine.Structure(), nil, 0)
}

// ListEntities handles the GET /entities request.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Engine.Entities())
}

// GetEntity handles the GET /entities/{id} request.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.Engine.Entity(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	nodes, err := s.Engine.Inspect(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, EntityView{EntityInfo: info, Nodes: nodes})
}

// GetEntityGraph handles the GET /entities/{id}/graph request.
func (s *Server) GetEntityGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.Engine.Entity(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	nodes, err := s.Engine.Inspect(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeGraph(w, r, nodes, &graph.Overlay{Status: true, Seq: info.Seq}, info.Seq)
}

func (s *Server) writeGraph(w http.ResponseWriter, r *http.Request, nodes []domain.NodeState, overlay *graph.Overlay, seq uint64) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if r.URL.Query().Get("format") == "text" {
		io.WriteString(w, strings.Join(graph.Render(nodes, seq), "\n")+"\n")
		return
	}
	io.WriteString(w, graph.GenerateMermaid(nodes, overlay))
}

// SubscribeEvents handles the GET /entities/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.Engine.Entity(id); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: subscribing to entity ticks", "entity", id)
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "entity", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrEntityNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
	s.logger.Error("request failed", "error", err)
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // entity ID -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

func (sm *StreamManager) Subscribe(id string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- string]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

// Subscribers returns the number of open streams for id.
func (sm *StreamManager) Subscribers(id string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[id])
}

func (sm *StreamManager) Broadcast(id string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[id] {
		select {
		case ch <- msg:
		default:
			// Slow client: drop.
			sm.logger.Warn("SSE: client buffer full, dropping message", "entity", id)
		}
	}
}
