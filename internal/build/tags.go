package build

import (
	"github.com/andrewl/agentci/internal/util/sets"
)

// Flavor selects the default tag set for a build.
type Flavor string

const (
	FlavorAgent Flavor = "agent"
	FlavorIOT   Flavor = "iot"
	FlavorTest  Flavor = "test"
)

// Default build tag lists per flavor. Immutable: callers receive copies and
// pass them explicitly into tag resolution, nothing mutates these.
var (
	agentTags = []string{
		"apm", "consul", "containerd", "cri", "docker", "ec2", "etcd",
		"gce", "jetson", "jmx", "kubeapiserver", "kubelet", "netcgo",
		"orchestrator", "process", "python", "secrets", "systemd", "zk",
		"zlib",
	}

	iotTags = []string{
		"jetson", "netcgo", "secrets", "systemd", "zlib",
	}

	testTags = []string{
		"clusterchecks", "consul", "containerd", "cri", "docker", "etcd",
		"jetson", "kubeapiserver", "kubelet", "orchestrator", "python",
		"secrets", "systemd", "zk", "zlib",
	}

	// Tags whose implementations require a 64-bit userland.
	sixtyFourBitOnlyTags = sets.New("containerd", "cri", "kubeapiserver", "orchestrator")

	// jetson is only meaningful on ARM boards.
	armOnlyTags = sets.New("jetson")
)

// DefaultBuildTags returns the default tag list for a flavor, already
// filtered for the target architecture.
func DefaultBuildTags(flavor Flavor, arch string) []string {
	var base []string
	switch flavor {
	case FlavorIOT:
		base = iotTags
	case FlavorTest:
		base = testTags
	default:
		base = agentTags
	}
	return FilterIncompatibleTags(base, arch)
}

// FilterIncompatibleTags drops tags that cannot build on the given
// architecture. The result is sorted.
func FilterIncompatibleTags(tags []string, arch string) []string {
	out := sets.New[string]()
	for _, tag := range tags {
		if is32Bit(arch) && sixtyFourBitOnlyTags.Has(tag) {
			continue
		}
		if !isARM(arch) && armOnlyTags.Has(tag) {
			continue
		}
		out.Add(tag)
	}
	return sets.SortedStrings(out)
}

// ComputeBuildTags resolves the final tag list: the union of the include
// list minus every excluded tag, sorted for a stable go build command line.
func ComputeBuildTags(include, exclude []string) []string {
	return sets.SortedStrings(sets.New(include...).Difference(sets.New(exclude...)))
}

func is32Bit(arch string) bool {
	return arch == "x86" || arch == "386"
}

func isARM(arch string) bool {
	return arch == "arm" || arch == "arm64" || arch == "armhf"
}
