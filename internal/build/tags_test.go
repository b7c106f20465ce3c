package build

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultBuildTagsSorted(t *testing.T) {
	for _, flavor := range []Flavor{FlavorAgent, FlavorIOT, FlavorTest} {
		tags := DefaultBuildTags(flavor, "x64")
		assert.True(t, sort.StringsAreSorted(tags), "tags for %s flavor not sorted", flavor)
	}
}

func TestDefaultBuildTagsIOTSubset(t *testing.T) {
	tags := DefaultBuildTags(FlavorIOT, "arm64")
	assert.NotContains(t, tags, "docker")
	assert.NotContains(t, tags, "python")
	assert.Contains(t, tags, "systemd")
	assert.Contains(t, tags, "jetson")
}

func TestFilterIncompatibleTags32Bit(t *testing.T) {
	tags := FilterIncompatibleTags([]string{"containerd", "cri", "docker", "kubeapiserver", "orchestrator", "zlib"}, "x86")
	assert.Equal(t, []string{"docker", "zlib"}, tags)
}

func TestFilterIncompatibleTagsARMOnly(t *testing.T) {
	assert.NotContains(t, FilterIncompatibleTags([]string{"jetson", "zlib"}, "x64"), "jetson")
	assert.Contains(t, FilterIncompatibleTags([]string{"jetson", "zlib"}, "arm64"), "jetson")
	assert.Contains(t, FilterIncompatibleTags([]string{"jetson", "zlib"}, "armhf"), "jetson")
}

func TestComputeBuildTags(t *testing.T) {
	tags := ComputeBuildTags([]string{"zlib", "docker", "apm"}, []string{"docker"})
	assert.Equal(t, []string{"apm", "zlib"}, tags)
}

func TestComputeBuildTagsExcludeUnknownIsNoop(t *testing.T) {
	tags := ComputeBuildTags([]string{"apm"}, []string{"never-included"})
	assert.Equal(t, []string{"apm"}, tags)
}

func TestComputeBuildTagsDeduplicates(t *testing.T) {
	tags := ComputeBuildTags([]string{"apm", "apm", "zlib"}, nil)
	assert.Equal(t, []string{"apm", "zlib"}, tags)
}
