package colornames

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearest(t *testing.T) {
	require.NoError(t, Init())
	assert.Greater(t, Count(), 0)

	name, dist := Nearest(255, 0, 0)
	assert.Equal(t, "red", name)
	assert.Equal(t, 0, dist)

	name, _ = Nearest(0, 0, 250)
	assert.Equal(t, "blue", name)

	// Mid-gray lands on the gray table entry, not a hue.
	name, _ = Nearest(128, 128, 128)
	assert.Equal(t, "gray", name)
}

func TestParseLine(t *testing.T) {
	n, ok := parseLine("teal #008080")
	require.True(t, ok)
	assert.Equal(t, "teal", n.name)
	assert.EqualValues(t, 0, n.r)
	assert.EqualValues(t, 0x80, n.g)
	assert.EqualValues(t, 0x80, n.b)

	for _, bad := range []string{"", "teal", "teal 008080", "teal #08080", "teal #008080 extra"} {
		_, ok := parseLine(bad)
		assert.False(t, ok, "line %q", bad)
	}
}
