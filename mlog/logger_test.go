package mlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_NewLogger(t *testing.T) {
	_, err := NewLogger(&LogConfig{Level: "loud"})
	require.Error(t, err)

	f := filepath.Join(t.TempDir(), "out.log")
	lg, err := NewLogger(&LogConfig{Level: "warn", File: f, Production: true})
	require.NoError(t, err)
	lg.Info("dropped")
	lg.Warn("kept")
	require.NoError(t, lg.Sync())

	b, err := os.ReadFile(f)
	require.NoError(t, err)
	require.False(t, strings.Contains(string(b), "dropped"))
	require.True(t, strings.Contains(string(b), `"msg":"kept"`))

	require.NotNil(t, L())
	require.NotNil(t, S())
	require.NotNil(t, Nop())
}
