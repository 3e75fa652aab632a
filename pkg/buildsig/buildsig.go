// Package buildsig computes the build signature used to namespace a
// project's on-disk cache directory: a hash over everything that, if
// changed, must invalidate every previously cached stage output.
package buildsig

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/forgebuild/engine/pkg/tasks"
)

// ComponentVersions are the engine's own versioned pieces, folded into
// every build signature so that bumping any of these versions moves every
// project to a fresh cache directory.
var ComponentVersions = []tasks.ComponentVersion{
	{Name: "engine/reqdag", Version: "1"},
	{Name: "engine/stage", Version: "1"},
	{Name: "engine/vfs", Version: "1"},
}

// Input is everything a build signature is computed over.
type Input struct {
	ProjectName      string
	ProjectVersion   string
	TaskIDs          []string          // ordered task-id list this build will run
	TaskConfigs      map[string][]byte // per-task config payload, keyed by task id
	RegistryVersions []tasks.ComponentVersion
}

// Signature is a 32-byte SHA-256 digest.
type Signature [32]byte

// Compute derives the build signature for in.
func Compute(in Input) Signature {
	h := sha256.New()

	h.Write([]byte("project:"))
	h.Write([]byte(in.ProjectName))
	h.Write([]byte(":"))
	h.Write([]byte(in.ProjectVersion))
	h.Write([]byte("\n"))

	h.Write([]byte("tasks:\n"))
	for _, id := range in.TaskIDs {
		h.Write([]byte(id))
		h.Write([]byte("="))
		h.Write(in.TaskConfigs[id])
		h.Write([]byte("\n"))
	}

	allVersions := append(append([]tasks.ComponentVersion(nil), ComponentVersions...), in.RegistryVersions...)
	sort.Slice(allVersions, func(i, j int) bool { return allVersions[i].Name < allVersions[j].Name })
	h.Write([]byte("versions:\n"))
	for _, v := range allVersions {
		h.Write([]byte(v.Name))
		h.Write([]byte("="))
		h.Write([]byte(v.Version))
		h.Write([]byte("\n"))
	}

	var sig Signature
	copy(sig[:], h.Sum(nil))
	return sig
}

// String returns the hex-encoded signature, used as the cache directory
// name component.
func (s Signature) String() string {
	return hex.EncodeToString(s[:])
}
