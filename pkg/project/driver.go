package project

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/events"
)

// ProjectRunner runs a single project's task pipeline. The orchestrator
// supplies the concrete implementation; Driver only sequences calls to it
// in dependency order.
type ProjectRunner func(ctx context.Context, p *Project) error

// Driver walks a project graph in dependency-leaves-first order, running
// each project's tasks via the supplied ProjectRunner and emitting
// per-project build-status events. A Driver is safe for a single Build call;
// construct a new one per build.
type Driver struct {
	Projects map[string]*Project
	Run      ProjectRunner
	Bus      *events.Bus
	RunID    string // correlates every event this Driver publishes to one build invocation
}

var (
	listenerMu    sync.Mutex
	listenerCount int
	globalSigCh   chan os.Signal
	globalCancel  []context.CancelFunc
)

// registerSignalListener installs the process-wide signal handler on first
// use and adds cancel to the set of in-flight builds it cancels; it
// reference-counts so multiple concurrent Driver.Build calls (e.g. serve
// mode building more than one target) share a single signal.Notify
// registration instead of racing to install/uninstall their own.
func registerSignalListener(cancel context.CancelFunc) func() {
	listenerMu.Lock()
	defer listenerMu.Unlock()

	globalCancel = append(globalCancel, cancel)
	listenerCount++
	if listenerCount == 1 {
		globalSigCh = make(chan os.Signal, 1)
		notifySignals(globalSigCh)
		go func() {
			for range globalSigCh {
				listenerMu.Lock()
				cancels := append([]context.CancelFunc(nil), globalCancel...)
				listenerMu.Unlock()
				for _, c := range cancels {
					c()
				}
			}
		}()
	}

	return func() {
		listenerMu.Lock()
		defer listenerMu.Unlock()
		listenerCount--
		if listenerCount == 0 && globalSigCh != nil {
			signal.Stop(globalSigCh)
			close(globalSigCh)
			globalSigCh = nil
			globalCancel = nil
		}
	}
}

// Build runs every project in d.Projects in dependency order, stopping at
// the first error. ctx is canceled automatically on SIGHUP/SIGINT/SIGTERM
// (plus SIGQUIT on unix).
func (d *Driver) Build(ctx context.Context) error {
	order, err := Order(d.Projects)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	unregister := registerSignalListener(cancel)
	defer unregister()

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return engerr.Wrap(engerr.InvalidState, "Driver.Build", err)
		}

		p := d.Projects[name]

		if err := d.Run(ctx, p); err != nil {
			if d.Bus != nil {
				d.Bus.Publish(events.Event{Name: events.ProjectBuildStatus, RunID: d.RunID, Project: name, Status: events.ProjectEnd, Level: events.LevelError, Payload: err.Error()})
			}
			return engerr.Wrap(engerr.TaskFailure, "Driver.Build", err)
		}

		if d.Bus != nil {
			d.Bus.Publish(events.Event{Name: events.ProjectBuildStatus, RunID: d.RunID, Project: name, Status: events.ProjectEnd, Level: events.LevelInfo})
		}
	}
	return nil
}
