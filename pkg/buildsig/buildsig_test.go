package buildsig_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/buildsig"
)

func TestSignatureStableForSameInput(t *testing.T) {
	in := buildsig.Input{
		ProjectName:    "core",
		ProjectVersion: "1.0.0",
		TaskIDs:        []string{"bundle", "minify"},
		TaskConfigs:    map[string][]byte{"bundle": []byte("{}"), "minify": []byte("{}")},
	}
	a := buildsig.Compute(in)
	b := buildsig.Compute(in)
	assert.Equal(t, a.String(), b.String())
}

func TestSignatureChangesWithTaskConfig(t *testing.T) {
	base := buildsig.Input{
		ProjectName: "core",
		TaskIDs:     []string{"bundle"},
		TaskConfigs: map[string][]byte{"bundle": []byte("{}")},
	}
	changed := base
	changed.TaskConfigs = map[string][]byte{"bundle": []byte(`{"minify":true}`)}

	assert.Assert(t, buildsig.Compute(base).String() != buildsig.Compute(changed).String())
}

func TestSignatureChangesWithProjectVersion(t *testing.T) {
	base := buildsig.Input{ProjectName: "core", ProjectVersion: "1.0.0"}
	other := buildsig.Input{ProjectName: "core", ProjectVersion: "2.0.0"}
	assert.Assert(t, buildsig.Compute(base).String() != buildsig.Compute(other).String())
}
