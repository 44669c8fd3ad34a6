package tui

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRenderer(t *testing.T) {
	render := NewRenderer(0)

	out, err := render("# Revenue\n\n```\nSELECT 1\n```")
	require.NoError(t, err)
	assert.Contains(t, out, "Revenue")
	assert.Contains(t, out, "SELECT 1")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)

	assert.Equal(t, len(bannerLines)+2, strings.Count(buf.String(), "\n"))
	assert.Len(t, bannerColors, len(bannerLines))
}

func TestTerminalDetection(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, IsTerminal(f))
	assert.Zero(t, Width(f))
	assert.False(t, IsTerminal(nil))
}
