package wheelcache

import (
	"github.com/andrewl/agentci/internal/command"
)

// commandLengthLimit caps the rendered length of each sync invocation.
// Windows rejects command lines over 8191 characters; 8100 leaves margin
// so no off-by-one on quoting breaks the sync.
const commandLengthLimit = 8100

// buildSyncCommands chunks the include patterns for the requested
// integrations into one or more sync invocations, starting a new batch
// whenever appending the next pattern would push the rendered command line
// over the limit. The union of all batches covers every integration
// exactly once, in the given order.
func buildSyncCommands(awscli, bucket, targetDir, python string, integrations []string, hashes map[string]string) []command.Command {
	prefix := command.Command{
		Name: awscli,
		Args: []string{"s3", "sync", "s3://" + bucket, targetDir, "--exclude", "*"},
	}
	prefixLen := len(prefix.String())

	var batches []command.Command
	current := prefix
	currentLen := prefixLen

	for _, integration := range integrations {
		pattern := wheelDirectory(hashes[integration], python) + wheelFilename(integration)
		// Rendered contribution: " --include <pattern>"
		addLen := len(" --include ") + len(pattern)
		if currentLen+addLen > commandLengthLimit {
			batches = append(batches, current)
			current = command.Command{Name: prefix.Name, Args: append([]string{}, prefix.Args...)}
			currentLen = prefixLen
		}
		current.Args = append(current.Args, "--include", pattern)
		currentLen += addLen
	}

	return append(batches, current)
}
