package project_test

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/engerr"
	"github.com/forgebuild/engine/pkg/events"
	"github.com/forgebuild/engine/pkg/project"
)

func TestOrderRespectsDependencies(t *testing.T) {
	projects := map[string]*project.Project{
		"app":  {Name: "app", Dependencies: []string{"core", "ui"}},
		"core": {Name: "core"},
		"ui":   {Name: "ui", Dependencies: []string{"core"}},
	}

	order, err := project.Order(projects)
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"core", "ui", "app"})
}

func TestOrderIsDeterministicForTies(t *testing.T) {
	projects := map[string]*project.Project{
		"z": {Name: "z"},
		"a": {Name: "a"},
		"m": {Name: "m"},
	}
	order, err := project.Order(projects)
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"a", "m", "z"})
}

func TestOrderDetectsCycle(t *testing.T) {
	projects := map[string]*project.Project{
		"a": {Name: "a", Dependencies: []string{"b"}},
		"b": {Name: "b", Dependencies: []string{"a"}},
	}
	_, err := project.Order(projects)
	assert.Assert(t, engerr.Is(err, engerr.InvalidArgument))
}

func TestOrderRejectsUnknownDependency(t *testing.T) {
	projects := map[string]*project.Project{
		"a": {Name: "a", Dependencies: []string{"missing"}},
	}
	_, err := project.Order(projects)
	assert.Assert(t, engerr.Is(err, engerr.InvalidArgument))
}

func TestFilterRejectsCombinedSelectionStrategies(t *testing.T) {
	f := project.Filter{DependencyIncludes: []string{"core"}, ExplicitIncludes: []string{"**/*.js"}}
	err := f.Validate()
	assert.Assert(t, engerr.Is(err, engerr.InvalidArgument))
}

func TestFilterAllowsEitherStrategyAlone(t *testing.T) {
	assert.NilError(t, project.Filter{DependencyIncludes: []string{"core"}}.Validate())
	assert.NilError(t, project.Filter{ExplicitIncludes: []string{"**/*.js"}}.Validate())
	assert.NilError(t, project.Filter{}.Validate())
}

func TestDriverBuildRunsInOrderAndEmitsEvents(t *testing.T) {
	projects := map[string]*project.Project{
		"core": {Name: "core"},
		"app":  {Name: "app", Dependencies: []string{"core"}},
	}

	bus := events.New()
	ch, unsub := bus.Subscribe()

	var ran []string
	d := &project.Driver{
		Projects: projects,
		Bus:      bus,
		Run: func(ctx context.Context, p *project.Project) error {
			ran = append(ran, p.Name)
			return nil
		},
	}

	assert.NilError(t, d.Build(context.Background()))
	assert.DeepEqual(t, ran, []string{"core", "app"})

	unsub()
	var ended []string
	for ev := range ch {
		assert.Equal(t, ev.Name, events.ProjectBuildStatus)
		assert.Equal(t, ev.Status, events.ProjectEnd)
		ended = append(ended, ev.Project)
	}
	assert.DeepEqual(t, ended, []string{"core", "app"})
}

func TestDriverBuildStopsOnFirstError(t *testing.T) {
	projects := map[string]*project.Project{
		"core": {Name: "core"},
		"app":  {Name: "app", Dependencies: []string{"core"}},
	}

	boom := engerr.New(engerr.TaskFailure, "test", "boom")
	d := &project.Driver{
		Projects: projects,
		Run: func(ctx context.Context, p *project.Project) error {
			if p.Name == "core" {
				return boom
			}
			t.Fatal("app should not run after core fails")
			return nil
		},
	}

	err := d.Build(context.Background())
	assert.Assert(t, engerr.Is(err, engerr.TaskFailure))
}
