// Package devserver serves compiled components to a browser and reloads the
// page when their sources change.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livefir/hits"
	"github.com/livefir/hits/internal/config"
	"github.com/livefir/hits/internal/metrics"
	"go.uber.org/zap"
)

// ReloadMessage is sent to every reload client after a source change.
const ReloadMessage = "reload"

const shutdownTimeout = 5 * time.Second

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>hits components</title></head>
<body>
<h1>Components</h1>
<ul>
{{- range .}}
<li><a href="/c/{{.}}">{{.}}</a></li>
{{- else}}
<li>No components found</li>
{{- end}}
</ul>
</body>
</html>
`))

var shellTemplate = template.Must(template.New("shell").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Name}}</title></head>
<body>
<div id="app" data-module="/c/{{.Name}}.js"></div>
<script type="module">
const app = document.getElementById('app');
const { default: factory } = await import(app.dataset.module);
factory(app).mount();
const ws = new WebSocket('ws://' + location.host + '/_reload');
ws.onmessage = (e) => { if (e.data === 'reload') location.reload(); };
</script>
</body>
</html>
`))

// Server is the development HTTP server.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	registry *Registry
	metrics  *metrics.Collector
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a server for the components below cfg.Src.
func New(cfg *config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		log:      log,
		registry: NewRegistry(),
		metrics:  metrics.NewCollector(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		mux: http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /c/{name...}", s.handleComponent)
	s.mux.HandleFunc("GET /_reload", s.handleReload)
	s.mux.HandleFunc("GET /_stats", s.handleStats)
	return s
}

// Registry returns the reload client registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Metrics returns the server's activity counters.
func (s *Server) Metrics() *metrics.Collector {
	return s.metrics
}

// Reload tells every connected browser to reload.
func (s *Server) Reload(changed []string) {
	s.metrics.RecordReload()
	sent, err := s.registry.Broadcast(ReloadMessage)
	if err != nil {
		s.log.Warn("reload broadcast failed", zap.Error(err))
	}
	s.log.Info("sources changed", zap.Strings("files", changed), zap.Int("clients", sent))
}

// Run serves on cfg.Serve.Addr and polls for source changes until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Serve.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go NewWatcher(s.cfg.Src).Run(watchCtx, s.cfg.Serve.PollInterval, s.log, s.Reload)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("serving components", zap.String("addr", "http://"+s.cfg.Serve.Addr), zap.String("src", s.cfg.Src))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	err := srv.Shutdown(shutdownCtx)

	// hijacked websocket connections are not closed by Shutdown
	for _, c := range s.registry.GetAll() {
		c.Conn.Close()
	}
	if err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	names, err := Components(s.cfg.Src)
	if err != nil {
		s.log.Error("listing components failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, names); err != nil {
		s.log.Warn("writing index failed", zap.Error(err))
	}
}

func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	name, module := strings.CutSuffix(name, ".js")
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.cfg.Src, filepath.FromSlash(name)+hits.Extension)

	if !module {
		if _, err := os.Stat(path); err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := shellTemplate.Execute(w, struct{ Name string }{name}); err != nil {
			s.log.Warn("writing shell failed", zap.Error(err))
		}
		return
	}

	res, err := hits.CompileFile(path,
		hits.WithTokenPrefix(s.cfg.TokenPrefix),
		hits.WithMinify(s.cfg.Minify),
		hits.WithLogger(s.log),
	)
	if errors.Is(err, os.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.metrics.RecordCompileError()
		s.log.Error("compile failed", zap.String("component", name), zap.Error(err))
		http.Error(w, compileErrorText(err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	s.metrics.RecordCompile(len(res.Code))
	fmt.Fprint(w, res.Code)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := &Client{Conn: conn}
	s.metrics.ClientConnected()
	s.registry.Register(client)
	defer func() {
		s.registry.Unregister(client)
		s.metrics.ClientDisconnected()
	}()
	s.log.Debug("reload client connected", zap.String("remote", conn.RemoteAddr().String()))

	// drain until the browser goes away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("reload client error", zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.metrics.Snapshot()); err != nil {
		s.log.Warn("writing stats failed", zap.Error(err))
	}
}

// compileErrorText is the response body for a failed compile. Syntax errors
// carry the excerpt of the failing lines.
func compileErrorText(err error) string {
	var syntaxErr hits.ErrScriptSyntax
	if errors.As(err, &syntaxErr) && syntaxErr.Context != "" {
		return err.Error() + "\n\n" + syntaxErr.Context
	}
	return err.Error()
}
