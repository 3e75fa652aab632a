// Package buildlog wraps log/slog with the engine's structured-logging
// conventions: every task invocation gets a logger pre-populated with its
// project and task attributes, the same structured shape the pack's
// Hugo-pipeline logger establishes per stage.
package buildlog

import (
	"log/slog"
	"os"
)

// New returns the engine's default logger, writing JSON lines to
// os.Stderr at the given level.
func New(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// ForTask returns a logger scoped to a single task invocation, carrying
// "project" and "task" attributes on every record it writes.
func ForTask(base *slog.Logger, project, task string) *slog.Logger {
	return base.With(slog.String("project", project), slog.String("task", task))
}

// ForStage returns a logger scoped to stage-cache activity for a project.
func ForStage(base *slog.Logger, project string) *slog.Logger {
	return base.With(slog.String("component", "stage"), slog.String("project", project))
}
