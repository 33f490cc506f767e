package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionCmd_Use(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
}

func TestVersionCmd_Executes(t *testing.T) {
	originalVersion := version
	version = "test-version-1.0.0"
	defer func() { version = originalVersion }()

	out := executeCommand(t, "version")

	assert.Contains(t, out, "deckhand version test-version-1.0.0")
}

func TestVersionCmd_DisplaysDevByDefault(t *testing.T) {
	out := executeCommand(t, "version")

	assert.Contains(t, out, "deckhand version dev")
}

// executeCommand runs the root command against temp config and data
// directories and returns the captured output.
func executeCommand(t *testing.T, args ...string) string {
	t.Helper()
	return executeCommandIn(t, t.TempDir(), args...)
}
