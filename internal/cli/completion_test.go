package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion_Command(t *testing.T) {
	tests := []struct {
		shell  string
		marker string
	}{
		{"bash", "bash"},
		{"zsh", "#compdef linkbridge"},
		{"fish", "complete"},
		{"powershell", "Register-ArgumentCompleter"},
	}

	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			var buf bytes.Buffer
			completionCmd.SetOut(&buf)
			t.Cleanup(func() { completionCmd.SetOut(nil) })

			require.NoError(t, completionCmd.RunE(completionCmd, []string{tt.shell}))
			assert.Contains(t, buf.String(), tt.marker)
		})
	}
}

func TestCompletion_RejectsUnknownShell(t *testing.T) {
	t.Parallel()
	require.Error(t, completionCmd.Args(completionCmd, []string{"tcsh"}))
	require.Error(t, completionCmd.Args(completionCmd, nil))
	require.NoError(t, completionCmd.Args(completionCmd, []string{"fish"}))
}
