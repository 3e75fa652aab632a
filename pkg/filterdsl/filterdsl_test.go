package filterdsl_test

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/filterdsl"
)

func TestPureExcludeActsAsBlacklist(t *testing.T) {
	f, err := filterdsl.Compile("-**/test/**")
	assert.NilError(t, err)

	ok, err := f.Matches("src/app.js")
	assert.NilError(t, err)
	assert.Assert(t, ok)

	ok, err = f.Matches("src/test/app.test.js")
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	assert.Assert(t, f.RequiresPostFiltering)
}

func TestLaterRuleOverridesEarlierMatch(t *testing.T) {
	f, err := filterdsl.Compile("-src/**,+src/keep.js")
	assert.NilError(t, err)

	ok, err := f.Matches("src/other.js")
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	ok, err = f.Matches("src/keep.js")
	assert.NilError(t, err)
	assert.Assert(t, ok)
}

func TestTrailingSlashExpandsToRecursiveGlob(t *testing.T) {
	f, err := filterdsl.Compile("-dist/")
	assert.NilError(t, err)

	ok, err := f.Matches("dist/app.js")
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	ok, err = f.Matches("src/app.js")
	assert.NilError(t, err)
	assert.Assert(t, ok)
}

func TestEmptyPatternIsRejected(t *testing.T) {
	_, err := filterdsl.Compile("-src/**,  ,+x")
	assert.ErrorContains(t, err, "empty pattern")
}

func TestFilterPathsPreservesOrder(t *testing.T) {
	f, err := filterdsl.Compile("-**/*.map")
	assert.NilError(t, err)

	selected, err := f.FilterPaths([]string{"a.js", "a.js.map", "b.js"})
	assert.NilError(t, err)
	assert.DeepEqual(t, selected, []string{"a.js", "b.js"})
}
