package consolelog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogKeepsLinesInOrder(t *testing.T) {
	t.Chdir(t.TempDir())
	log := New()

	log.Log("first")
	log.Logf("second %d", 2)

	lines := log.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "second 2")
}

func TestLogAppendsToFile(t *testing.T) {
	t.Chdir(t.TempDir())
	log := New()

	log.Log("on disk")

	data, err := os.ReadFile(FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "--- session ", "each run starts with a dated header")
	assert.Contains(t, string(data), "on disk")
}

func TestTailReturnsMostRecentLines(t *testing.T) {
	t.Chdir(t.TempDir())
	log := New()
	log.Log("a")
	log.Log("b")
	log.Log("c")

	tail := log.Tail(2)
	require.Len(t, tail, 2)
	assert.Contains(t, tail[0], "b")
	assert.Contains(t, tail[1], "c")

	assert.Len(t, log.Tail(10), 3)
	assert.Nil(t, log.Tail(0))
}
