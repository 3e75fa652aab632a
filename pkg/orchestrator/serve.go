package orchestrator

import (
	"context"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forgebuild/engine/pkg/engerr"
)

// GraphConfig configures a long-lived Serve run: which build config to
// apply to every rebuild, and the address to expose /metrics and
// /healthz on.
type GraphConfig struct {
	Config     BuildConfig
	ListenAddr string // e.g. ":35729"; empty disables the HTTP endpoints
}

// Serve stands up a long-lived in-process server that uses the same
// project driver and stage machinery as BuildToTarget but writes to an
// in-memory overlay instead of a destination directory, and invalidates
// affected projects' stages when their source files change (spec §4.5).
// It blocks until ctx is canceled.
func (o *Orchestrator) Serve(ctx context.Context, gc GraphConfig) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return engerr.Wrap(engerr.InvalidState, "Orchestrator.Serve", err)
	}
	defer watcher.Close()

	for _, p := range o.Projects {
		if p.SourceDir == "" {
			continue
		}
		if err := watcher.Add(p.SourceDir); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Orchestrator.Serve", err)
		}
	}

	var srv *http.Server
	if gc.ListenAddr != "" {
		mux := http.NewServeMux()
		if o.Metrics != nil {
			mux.Handle("/metrics", promhttp.HandlerFor(o.Metrics.Registry, promhttp.HandlerOpts{}))
		}
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		srv = &http.Server{Addr: gc.ListenAddr, Handler: mux}
		go func() {
			_ = srv.ListenAndServe()
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	cfg := gc.Config.normalize()
	invalidated := map[string]bool{}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			proj := o.projectForPath(ev.Name)
			if proj == "" {
				continue
			}
			invalidated[proj] = true
			if err := o.rebuild(ctx, cfg, invalidated); err != nil && o.Log != nil {
				o.Log.Error("serve: rebuild failed", "error", err)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if o.Log != nil {
				o.Log.Warn("serve: watcher error", "error", werr)
			}
		}
	}
}

// projectForPath returns the name of the project whose SourceDir contains
// path, or "" if none matches.
func (o *Orchestrator) projectForPath(path string) string {
	for name, p := range o.Projects {
		if p.SourceDir == "" {
			continue
		}
		if len(path) >= len(p.SourceDir) && path[:len(p.SourceDir)] == p.SourceDir {
			return name
		}
	}
	return ""
}

// rebuild reruns the driver; stages for projects named in invalidated are
// forced to miss by dropping any cached context the orchestrator was
// holding for them (the persisted on-disk cache is still consulted, but
// the in-process context cache from the previous serve iteration is
// cleared so GetReader/GetWorkspace are rebuilt against fresh source
// reads).
func (o *Orchestrator) rebuild(ctx context.Context, cfg BuildConfig, invalidated map[string]bool) error {
	o.mu.Lock()
	for name := range invalidated {
		delete(o.contexts, name)
	}
	o.mu.Unlock()

	runID := uuid.NewString()
	for name := range invalidated {
		p, ok := o.Projects[name]
		if !ok {
			continue
		}
		if err := o.runProject(runID, cfg)(ctx, p); err != nil {
			return err
		}
	}
	clear(invalidated)
	return nil
}
