package control

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/filedispatch/agent/internal/content"
	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/engine"
	"github.com/filedispatch/agent/internal/fileinfo"
	"github.com/filedispatch/agent/internal/preset"
	"github.com/filedispatch/agent/internal/store"
)

// Server is the control surface's HTTP API: folders, rules, run (preview),
// undo, logs, and settings, grounded on the teacher's daemon.go
// startHTTPServer/handleAPIRules/handleAPIHistory shape and rate limiter.
type Server struct {
	Folders  *store.FolderRepo
	Rules    *store.RuleRepo
	Logs     *store.LogRepo
	Undo     *store.UndoRepo
	Settings *store.SettingsRepo

	matches *store.MatchRepo
	content *content.Resolver
	logger  *slog.Logger
	http    *http.Server
}

// New builds a Server. addr is the listen address, e.g. "127.0.0.1:7777".
func New(addr string, folders *store.FolderRepo, rules *store.RuleRepo, logs *store.LogRepo, undo *store.UndoRepo, settings *store.SettingsRepo, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Folders: folders, Rules: rules, Logs: logs, Undo: undo, Settings: settings, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", rateLimitHandler(60, s.handleHealth))
	mux.HandleFunc("/api/folders", rateLimitHandler(30, s.handleFolders))
	mux.HandleFunc("/api/folders/", rateLimitHandler(30, s.handleFolderByID))
	mux.HandleFunc("/api/rules", rateLimitHandler(30, s.handleRules))
	mux.HandleFunc("/api/rules/", rateLimitHandler(30, s.handleRuleByID))
	mux.HandleFunc("/api/rules/export", rateLimitHandler(10, s.handleRulesExport))
	mux.HandleFunc("/api/rules/import", rateLimitHandler(10, s.handleRulesImport))
	mux.HandleFunc("/api/run", rateLimitHandler(20, s.handleRun))
	mux.HandleFunc("/api/undo", rateLimitHandler(20, s.handleUndoList))
	mux.HandleFunc("/api/undo/", rateLimitHandler(20, s.handleUndoApply))
	mux.HandleFunc("/api/logs", rateLimitHandler(30, s.handleLogs))
	mux.HandleFunc("/api/settings", rateLimitHandler(30, s.handleSettings))
	mux.HandleFunc("/api/presets/install", rateLimitHandler(10, s.handlePresetInstall))
	mux.HandleFunc("/api/content", rateLimitHandler(20, s.handleContent))

	s.http = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting control server", "address", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"status": "ok"})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		folders, err := s.Folders.List()
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, folders)
	case http.MethodPost:
		var f domain.Folder
		if !decodeJSON(w, r, &f) {
			return
		}
		created, err := s.Folders.Create(f)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleFolderByID(w http.ResponseWriter, r *http.Request) {
	id := domain.FolderID(strings.TrimPrefix(r.URL.Path, "/api/folders/"))
	switch r.Method {
	case http.MethodGet:
		f, err := s.Folders.Get(id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, f)
	case http.MethodPut:
		var f domain.Folder
		if !decodeJSON(w, r, &f) {
			return
		}
		f.ID = id
		if err := s.Folders.Update(f); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, f)
	case http.MethodDelete:
		if err := s.Folders.Delete(id); err != nil {
			httpError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		folderID := domain.FolderID(r.URL.Query().Get("folder"))
		list, err := s.Rules.ListByFolder(folderID, false)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, list)
	case http.MethodPost:
		var rule domain.Rule
		if !decodeJSON(w, r, &rule) {
			return
		}
		created, err := s.Rules.Create(rule)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, created)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRuleByID handles GET/PUT/DELETE on /api/rules/{id}. A rule update
// clears that rule's match registry rows — the SUPPLEMENTED FEATURES
// "rule-match clearing on rule edit" behavior, grounded on the original's
// clear_rule call site — since a changed rule's prior matches no longer
// describe the rule as it now stands.
func (s *Server) handleRuleByID(w http.ResponseWriter, r *http.Request) {
	id := domain.RuleID(strings.TrimPrefix(r.URL.Path, "/api/rules/"))
	switch r.Method {
	case http.MethodGet:
		rule, err := s.Rules.Get(id)
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, rule)
	case http.MethodPut:
		var rule domain.Rule
		if !decodeJSON(w, r, &rule) {
			return
		}
		rule.ID = id
		if err := s.Rules.Update(rule); err != nil {
			httpError(w, err)
			return
		}
		if mr, ok := s.matchRegistry(); ok {
			if err := mr.ClearRule(id); err != nil {
				s.logger.Warn("clearing matches after rule update", "rule", id, "error", err)
			}
		}
		writeJSON(w, rule)
	case http.MethodDelete:
		if err := s.Rules.Delete(id); err != nil {
			httpError(w, err)
			return
		}
		if mr, ok := s.matchRegistry(); ok {
			if err := mr.ClearRule(id); err != nil {
				s.logger.Warn("clearing matches after rule delete", "rule", id, "error", err)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// matchRegistry is a placeholder for dependency injection of the match
// registry repo; a Server without one (e.g. a test harness) simply skips
// the clear. Wired to a real *store.MatchRepo via WithMatches.
func (s *Server) matchRegistry() (*store.MatchRepo, bool) {
	if s.matches == nil {
		return nil, false
	}
	return s.matches, true
}

// WithMatches attaches the match registry repo so rule update/delete can
// clear stale match rows. Returns s for chaining.
func (s *Server) WithMatches(m *store.MatchRepo) *Server {
	s.matches = m
	return s
}

// WithContent attaches the Content Extraction resolver so callers can
// preview a file's resolved text over the control surface — the same
// inspection capability the original exposes to its UI layer (§4.9).
// Returns s for chaining.
func (s *Server) WithContent(r *content.Resolver) *Server {
	s.content = r
	return s
}

// handleContent resolves and returns one file's textual content per
// §4.9, given ?path=...&source=text|ocr|auto (default auto).
func (s *Server) handleContent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.content == nil {
		http.Error(w, "content resolution is not configured", http.StatusServiceUnavailable)
		return
	}

	path := r.URL.Query().Get("path")
	source := domain.ContentSource(r.URL.Query().Get("source"))
	if source == "" {
		source = domain.ContentAuto
	}

	info, err := fileinfo.FromPath(path)
	if err != nil {
		httpError(w, err)
		return
	}

	text, err := s.content.Resolve(r.Context(), info, source, &content.ContentCache{})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, map[string]string{"text": text})
}

func (s *Server) handleRulesExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	folderID := domain.FolderID(r.URL.Query().Get("folder"))
	data, err := ExportRules(s.Rules, folderID)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleRulesImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	folderID := domain.FolderID(r.URL.Query().Get("folder"))
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body: "+err.Error(), http.StatusBadRequest)
		return
	}
	created, err := ImportRules(s.Rules, folderID, body)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, created)
}

// handleRun implements the dry-run preview endpoint: POST a
// {"folder_id": "...", "paths": ["...", ...]} body; an empty paths list
// scans the whole folder per folder.MaxDepth().
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		FolderID domain.FolderID `json:"folder_id"`
		Paths    []string        `json:"paths"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	paths := req.Paths
	if len(paths) == 0 {
		folder, err := s.Folders.Get(req.FolderID)
		if err != nil {
			httpError(w, err)
			return
		}
		paths, err = listFolderFiles(folder)
		if err != nil {
			httpError(w, err)
			return
		}
	}

	matches, err := engine.Preview(s.Rules, req.FolderID, paths)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, matches)
}

func (s *Server) handleUndoList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.Undo.List()
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleUndoApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	idStr := strings.TrimPrefix(r.URL.Path, "/api/undo/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "invalid undo id", http.StatusBadRequest)
		return
	}
	if err := ApplyUndo(s.Undo, s.Logs, id); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ruleName := r.URL.Query().Get("rule")
	status := r.URL.Query().Get("status")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}
	records, err := s.Logs.List(ruleName, status, limit)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := s.Settings.Load()
		if err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, settings)
	case http.MethodPut:
		var settings domain.Settings
		if !decodeJSON(w, r, &settings) {
			return
		}
		if err := s.Settings.Save(settings); err != nil {
			httpError(w, err)
			return
		}
		writeJSON(w, settings)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePresetInstall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		PresetPath string            `json:"preset_path"`
		FolderID   domain.FolderID   `json:"folder_id"`
		Variables  map[string]string `json:"variables"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	file, err := preset.ReadFile(req.PresetPath)
	if err != nil {
		httpError(w, err)
		return
	}
	rules, err := preset.Install(file, req.FolderID, req.Variables)
	if err != nil {
		httpError(w, err)
		return
	}

	created := make([]domain.Rule, 0, len(rules))
	for _, rule := range rules {
		saved, err := s.Rules.Create(rule)
		if err != nil {
			httpError(w, fmt.Errorf("installing rule %q: %w", rule.Name, err))
			return
		}
		created = append(created, saved)
	}
	writeJSON(w, created)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "decoding request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func httpError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// rateLimitHandler wraps a handler with a token-bucket rate limiter,
// grounded on the teacher's daemon.go rateLimitHandler.
func rateLimitHandler(requestsPerMinute int, handler http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	tokens := requestsPerMinute
	lastRefill := time.Now()

	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		now := time.Now()
		elapsed := now.Sub(lastRefill)
		refill := int(elapsed.Minutes() * float64(requestsPerMinute))
		if refill > 0 {
			tokens += refill
			if tokens > requestsPerMinute {
				tokens = requestsPerMinute
			}
			lastRefill = now
		}
		if tokens <= 0 {
			mu.Unlock()
			w.Header().Set("Retry-After", "60")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		tokens--
		mu.Unlock()
		handler(w, r)
	}
}
