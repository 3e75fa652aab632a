package manifest_test

import (
	"encoding/json"
	"strings"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/manifest"
)

func TestNewHasCurrentVersion(t *testing.T) {
	m := manifest.New()
	assert.Equal(t, m.ManifestVersion, manifest.CurrentVersion)
}

func TestTagsSerializeInSortedOrder(t *testing.T) {
	m := manifest.New()
	m.Tags = map[string]string{"zeta": "1", "alpha": "2", "mid": "3"}

	b, err := json.Marshal(m)
	assert.NilError(t, err)

	s := string(b)
	assert.Assert(t, strings.Index(s, "alpha") < strings.Index(s, "mid"))
	assert.Assert(t, strings.Index(s, "mid") < strings.Index(s, "zeta"))
}
