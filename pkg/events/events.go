// Package events implements the process-global build event bus: a simple
// channel-based publish/subscribe mechanism tasks and the orchestrator use
// to report progress without coupling to any particular UI or logging
// sink. The channel-per-subscriber idiom is grounded in the teacher's
// pkg/functions/job.go, which hands callers a channel to receive async job
// status updates on rather than requiring a callback.
package events

import "sync"

// Name identifies an event kind.
type Name string

const (
	// BuildMetadata marks the start of a build, emitted once per
	// BuildToTarget call with its run id and no payload.
	BuildMetadata Name = "build-metadata"
	// ProjectBuildMetadata carries per-project metadata, emitted once per
	// project before its tasks run.
	ProjectBuildMetadata Name = "project-build-metadata"
	// BuildStatus carries the build-wide outcome, emitted once at the end
	// of a build with Payload "succeeded" or "failed".
	BuildStatus Name = "build-status"
	// ProjectBuildStatus carries per-project and per-task transitions; its
	// Status field says which one.
	ProjectBuildStatus Name = "project-build-status"
)

// Status is the status field carried by a ProjectBuildStatus event, per
// spec §4.4.
type Status string

const (
	TaskStart    Status = "task-start"
	TaskEnd      Status = "task-end"
	TaskSkip     Status = "task-skip"
	ProjectSkip  Status = "project-skip"
	ProjectEnd   Status = "project-end"
)

// Level is the severity a log-shaped event carries, mirroring the
// teacher's leveled logging (info/warn/error) rather than inventing a new
// vocabulary for the event bus.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one published message.
type Event struct {
	Name    Name
	RunID   string // identifies the buildToTarget/Serve invocation this event belongs to
	Project string // empty for build-wide events
	Type    string // project type, set on ProjectBuildMetadata/ProjectBuildStatus
	Task    string // task name, set when Status concerns a specific task
	Status  Status
	Level   Level
	Payload any
}

// Bus is a process-global, channel-based event bus. The zero value is not
// usable; construct with New.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subs: map[int]chan Event{}}
}

// Subscribe registers a new listener and returns a channel of events plus
// an unsubscribe function. The channel is buffered so a slow subscriber
// cannot block Publish; if a subscriber falls behind, the oldest
// undelivered event is dropped in favor of the newest (publishers report
// progress, not a durable log).
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 64)
	id := b.next
	b.next++
	b.subs[id] = ch

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if existing, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(existing)
		}
	}
	return ch, unsub
}

// Publish delivers e to every current subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// subscriber is behind; drop the oldest queued event to make
			// room rather than block the publisher.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- e:
			default:
			}
		}
	}
}

// SubscriberCount reports how many listeners are currently registered.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
