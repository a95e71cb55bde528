package cli

import (
	"bytes"
	"testing"

	"AccessDeck/internal/output"
	"AccessDeck/internal/version"

	"github.com/stretchr/testify/assert"
)

func TestRootRegistersCommands(t *testing.T) {
	code := 0
	root := newRootCmd(&code)

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "check", "doctor", "reset-password", "settings", "version"} {
		assert.Contains(t, names, want)
	}

	assert.NotNil(t, root.Flags().Lookup("port"))
	serve, _, err := root.Find([]string{"serve"})
	if assert.NoError(t, err) {
		assert.NotNil(t, serve.Flags().Lookup("port"))
	}
}

func TestRunVersionAndUsageErrors(t *testing.T) {
	t.Setenv("ACCESSDECK_HOME", t.TempDir())
	var buf bytes.Buffer
	output.SetOutput(&buf)

	assert.Equal(t, 0, Run([]string{"accessdeck", "version"}))
	assert.Contains(t, buf.String(), "AccessDeck "+version.Version)

	assert.Equal(t, 2, Run([]string{"accessdeck", "check"}))
	assert.Equal(t, 2, Run([]string{"accessdeck", "reset-password"}))
	assert.Equal(t, 2, Run([]string{"accessdeck", "no-such-command"}))
}
