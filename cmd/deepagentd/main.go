// Command deepagentd is a minimal wiring example for the deep-agent
// runtime: it assembles a Runner, ReactLoop, tool registry, and the
// in-memory/file-backed adapters behind a small HTTP surface. It carries
// no domain prompts, search backends, or other application-specific
// behavior; callers supply their own system prompt per request, and every
// run gets the same registry of example tools.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"deepagent/agent"
	"deepagent/config"
	"deepagent/eventing/runstream"
	"deepagent/exampletools"
	"deepagent/idgen"
	"deepagent/modelclient"
	"deepagent/policy/httpguard"
	"deepagent/policy/retry"
	runstore "deepagent/runstore/inmem"
	"deepagent/session"
	"deepagent/tooling/registry"
)

func main() {
	httpAddr := flag.String("http-addr", "127.0.0.1:8080", "address the status/run HTTP server listens on")
	workspaceRoot := flag.String("workspace-root", ".", "directory the bash tool is confined to")
	modelAPIKey := flag.String("model-api-key", os.Getenv("DEEPAGENT_MODEL_API_KEY"), "OpenAI-compatible API key; empty uses a scripted fake model")
	modelName := flag.String("model-name", "gpt-4.1-mini", "model name sent to the provider")
	modelBaseURL := flag.String("model-base-url", "", "OpenAI-compatible base URL override")
	shutdownTimeout := flag.Duration("shutdown-timeout", 5*time.Second, "graceful shutdown deadline")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stderr, cfg.LogLevel)

	if err := run(cfg, logger, *httpAddr, *workspaceRoot, *modelAPIKey, *modelName, *modelBaseURL, *shutdownTimeout); err != nil {
		logger.Error("deepagentd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, httpAddr, workspaceRoot, modelAPIKey, modelName, modelBaseURL string, shutdownTimeout time.Duration) error {
	if err := os.MkdirAll(cfg.SessionStorageDir, 0o755); err != nil {
		return fmt.Errorf("create session storage dir: %w", err)
	}
	sessionStore, err := session.NewFileManager(cfg.SessionStorageDir)
	if err != nil {
		return fmt.Errorf("new session store: %w", err)
	}

	bashPolicy, err := exampletools.NewBashPolicy(workspaceRoot, cfg.ToolTimeout)
	if err != nil {
		return fmt.Errorf("new bash policy: %w", err)
	}

	currentTurn := func() int { return 0 }
	tools := registry.New()
	tools.Register(exampletools.CalculatorTool())
	tools.Register(exampletools.BashTool(bashPolicy))
	for _, descriptor := range exampletools.PlanningTools() {
		tools.Register(descriptor)
	}
	for _, descriptor := range exampletools.FilesystemTools(currentTurn) {
		tools.Register(descriptor)
	}

	var consent agent.ConsentHook
	if !cfg.BypassToolConsent {
		consent = func(_ context.Context, call agent.ToolCall) error {
			logger.Info("tool call auto-approved", "tool", call.Name)
			return nil
		}
	}

	toolExecutor := retry.WrapToolExecutor(tools, retry.Config{MaxAttempts: 2})
	executor := agent.NewConcurrentToolExecutor(toolExecutor, cfg.MaxParallelTools, consent)

	model, err := buildModel(modelAPIKey, modelName, modelBaseURL)
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	eventSink := runstream.New(cfg.MaxStepsPerTurn * 4)

	loop, err := agent.NewReactLoop(model, executor, eventSink, agent.WithModelRetries(uint(cfg.ModelRequestRetries)))
	if err != nil {
		return fmt.Errorf("new react loop: %w", err)
	}

	runner, err := agent.NewRunner(agent.Dependencies{
		IDGenerator: idgen.NewUUID(),
		RunStore:    runstore.New(),
		Engine:      loop,
		EventSink:   eventSink,
	})
	if err != nil {
		return fmt.Errorf("new runner: %w", err)
	}

	srv := newServer(httpAddr, logger, runner, sessionStore, tools.Definitions(), eventSink, cfg)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpAddr)
		errCh <- srv.Start()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func buildModel(apiKey, modelName, baseURL string) (agent.Model, error) {
	if apiKey == "" {
		return modelclient.NewScriptedModel(modelclient.ScriptedResponse{
			Message: agent.NewAssistantText("no model configured; set --model-api-key to talk to a real provider"),
		}), nil
	}
	return modelclient.New(modelclient.Config{
		APIKey:  apiKey,
		Model:   modelName,
		BaseURL: baseURL,
	})
}

// server wraps the HTTP surface: a health endpoint and a minimal run
// endpoint that forwards a caller-supplied prompt through the runner.
type server struct {
	httpServer *http.Server
	ready      atomic.Bool
}

func newServer(addr string, logger *slog.Logger, runner *agent.Runner, sessions agent.SessionStore, toolDefs []agent.ToolDefinition, events *runstream.Broker, cfg config.Config) *server {
	s := &server{}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/run", func(w http.ResponseWriter, r *http.Request) {
		handleRun(w, r, logger, runner, sessions, toolDefs, cfg.MaxStepsPerTurn)
	})
	mux.HandleFunc("/run/events", func(w http.ResponseWriter, r *http.Request) {
		handleRunEvents(w, r, events)
	})

	reject := func(w http.ResponseWriter, _ *http.Request, err error) {
		http.Error(w, err.Error(), http.StatusUnauthorized)
	}
	guarded := httpguard.LimitMiddleware(httpguard.LimitConfig{RequestTimeout: cfg.TurnTimeout})(
		httpguard.AuthMiddleware(cfg.AuthToken, reject)(mux),
	)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: guarded,
	}
	return s
}

func (s *server) Start() error {
	s.ready.Store(true)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	s.ready.Store(false)
	return err
}

func (s *server) Shutdown(ctx context.Context) error {
	s.ready.Store(false)
	return s.httpServer.Shutdown(ctx)
}

type runRequest struct {
	SessionID    string `json:"session_id"`
	SystemPrompt string `json:"system_prompt"`
	UserPrompt   string `json:"user_prompt"`
	MaxSteps     int    `json:"max_steps"`
}

type runResponse struct {
	Status string `json:"status"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

func handleRun(w http.ResponseWriter, r *http.Request, logger *slog.Logger, runner *agent.Runner, sessions agent.SessionStore, toolDefs []agent.ToolDefinition, maxStepsCeiling int) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.UserPrompt == "" {
		http.Error(w, "session_id and user_prompt are required", http.StatusBadRequest)
		return
	}
	maxSteps, err := httpguard.NormalizeMaxSteps(req.MaxSteps, agent.DefaultMaxSteps, maxStepsCeiling)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.MaxSteps = maxSteps

	result, err := runner.Run(r.Context(), agent.RunInput{
		RunID:        agent.RunID(req.SessionID),
		SessionID:    req.SessionID,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		MaxSteps:     req.MaxSteps,
		Tools:        toolDefs,
		State:        agent.NewAgentState(),
	})
	if err != nil {
		logger.Error("run failed", "error", err, "session_id", req.SessionID)
		writeJSON(w, http.StatusInternalServerError, runResponse{Status: "failed", Error: err.Error()})
		return
	}

	snapshot := agent.NewSessionSnapshot(req.SessionID, result.State.Messages, agent.NewAgentState(), 0, 0)
	if err := sessions.Save(r.Context(), req.SessionID, snapshot); err != nil {
		logger.Warn("session persist failed", "error", err, "session_id", req.SessionID)
	}

	writeJSON(w, http.StatusOK, runResponse{
		Status: string(result.State.Status),
		Output: result.State.Output,
		Error:  result.State.Error,
	})
}

// runEventsResponse reports events published for a run since the caller's
// cursor, plus the cursor to pass on the next poll.
type runEventsResponse struct {
	Cursor int64         `json:"cursor"`
	Events []agent.Event `json:"events"`
	Error  string        `json:"error,omitempty"`
}

func handleRunEvents(w http.ResponseWriter, r *http.Request, events *runstream.Broker) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}
	cursor, err := strconv.ParseInt(r.URL.Query().Get("cursor"), 10, 64)
	if r.URL.Query().Get("cursor") != "" && err != nil {
		http.Error(w, fmt.Sprintf("parse cursor: %v", err), http.StatusBadRequest)
		return
	}

	stream, err := events.EventsAfter(agent.RunID(runID), cursor)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, runEventsResponse{Cursor: cursor, Error: err.Error()})
		return
	}

	out := runEventsResponse{Cursor: cursor, Events: make([]agent.Event, len(stream))}
	for i, entry := range stream {
		out.Events[i] = entry.Event
		out.Cursor = entry.ID
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
