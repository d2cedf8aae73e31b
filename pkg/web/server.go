// Package web serves finalized distributed graphs and live build status
// over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ritzau/distgraph/pkg/distgraph"
	"github.com/ritzau/distgraph/pkg/logging"
	"github.com/ritzau/distgraph/pkg/model"
	"github.com/ritzau/distgraph/pkg/pubsub"
	"github.com/ritzau/distgraph/pkg/runner"
)

// ResultSource provides the most recent build.
type ResultSource interface {
	Last() *runner.Result
}

// Server represents the web server
type Server struct {
	router    *mux.Router
	publisher *pubsub.SSEPublisher
	results   ResultSource
	rebuild   func(reason string)
}

// NewServer creates a web server reading builds from results.
func NewServer(results ResultSource) *Server {
	ssePublisher := pubsub.NewSSEPublisher()

	// build_status: buffer last 10 events, replay only last event to new subscribers
	ssePublisher.ConfigureTopic(pubsub.TopicBuildStatus, pubsub.TopicConfig{
		BufferSize: 10,
		ReplayAll:  false,
	})

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
		results:   results,
	}
	s.setupRoutes()
	return s
}

// Publisher returns the publisher build status should be sent to.
func (s *Server) Publisher() *pubsub.SSEPublisher { return s.publisher }

// SetRebuild registers the function POST /api/rebuild triggers.
func (s *Server) SetRebuild(fn func(reason string)) { s.rebuild = fn }

// Handler returns the root handler including request logging.
func (s *Server) Handler() http.Handler {
	return logging.RequestIDMiddleware(s.router)
}

func (s *Server) setupRoutes() {
	// SSE subscription endpoints
	s.router.HandleFunc("/api/subscribe/build_status", s.handleSubscribeBuildStatus).Methods("GET")

	s.router.HandleFunc("/api/run", s.handleRun).Methods("GET")
	s.router.HandleFunc("/api/rebuild", s.handleRebuild).Methods("POST")
	s.router.HandleFunc("/api/ranks/{rank}", s.handleRank).Methods("GET")
	s.router.HandleFunc("/api/ranks/{rank}/nodes", s.handleNodes).Methods("GET")
	s.router.HandleFunc("/api/ranks/{rank}/nodes/{id}", s.handleNode).Methods("GET")
}

func (s *Server) handleSubscribeBuildStatus(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicBuildStatus)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer sub.Close()

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flush(w)

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			logging.WarnContext(r.Context(), "error writing SSE event", "error", err)
			return
		}
		flush(w)
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res := s.results.Last()
	if res == nil {
		writeError(w, http.StatusNotFound, "no build has run yet")
		return
	}
	writeJSON(w, http.StatusOK, res.Report)
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	if s.rebuild == nil {
		writeError(w, http.StatusNotImplemented, "rebuild is not available")
		return
	}
	go s.rebuild("requested over http")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "rebuilding"})
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, runner.RankReport(g))
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}
	views := make([]model.NodeView, 0, g.NodeCount())
	for idx := range g.NodeCount() {
		id, err := g.GlobalIDOf(idx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		v, err := runner.NodeView(g, id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graph(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid node id")
		return
	}
	v, err := runner.NodeView(g, id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// graph resolves the {rank} path variable against the last successful
// build, writing an error response if it cannot.
func (s *Server) graph(w http.ResponseWriter, r *http.Request) (*distgraph.Graph[int64], bool) {
	res := s.results.Last()
	if res == nil || res.Graphs == nil {
		writeError(w, http.StatusNotFound, "no finalized graph")
		return nil, false
	}
	rank, err := strconv.Atoi(mux.Vars(r)["rank"])
	if err != nil || rank < 0 || rank >= len(res.Graphs) {
		writeError(w, http.StatusNotFound, "unknown rank")
		return nil, false
	}
	return res.Graphs[rank], true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Start serves on port until ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logging.Info("starting web server", "url", fmt.Sprintf("http://localhost:%d", port))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// Close the publisher first so streaming handlers return.
	_ = s.publisher.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
