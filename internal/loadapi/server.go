// Package loadapi exposes the load pipeline over HTTP so runs can be
// triggered remotely instead of through the CLI.
package loadapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/medsched/sihrunner/internal/logctx"
	"github.com/medsched/sihrunner/internal/orchestrate"
)

// LoadRunner executes one load request. Production wiring provides the
// pipeline built in cmd; tests substitute their own.
type LoadRunner interface {
	Run(ctx context.Context, req orchestrate.Request) (orchestrate.Result, error)
	RunStaged(ctx context.Context, req orchestrate.Request) (orchestrate.Result, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves POST /v1/load.
type Server struct {
	addr   string
	runner LoadRunner
	server *http.Server
}

func NewServer(addr string, runner LoadRunner) *Server {
	if addr == "" {
		addr = ":8080"
	}
	return &Server{addr: addr, runner: runner}
}

// Handler returns the route table; split out so tests can drive it with
// httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/load", s.loadHandler)
	mux.HandleFunc("/healthz", s.healthzHandler)
	return mux
}

// Start serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	logctx.FromContext(ctx).Info("Starting load API server", slog.String("addr", s.addr))

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logctx.FromContext(ctx).Error("Load API server error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	return s.Stop()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// loadHandler runs one load synchronously. A request with a staging bucket
// takes the parquet staging path; otherwise reports load straight from
// memory.
func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "POST only"})
		return
	}

	var req orchestrate.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	var (
		res orchestrate.Result
		err error
	)
	if req.Bucket != "" {
		res, err = s.runner.RunStaged(ctx, req)
	} else {
		res, err = s.runner.Run(ctx, req)
	}
	if err != nil {
		logctx.FromContext(ctx).Error("load request failed",
			slog.String("tableID", req.TableID), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"healthy": true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}
