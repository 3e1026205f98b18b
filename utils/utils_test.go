package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArrayOrEmpty(t *testing.T) {
	var nilSlice []uint32
	assert.NotNil(t, ArrayOrEmpty(nilSlice))
	assert.Empty(t, ArrayOrEmpty(nilSlice))
	assert.Equal(t, []string{"a"}, ArrayOrEmpty([]string{"a"}))
}

func TestGenIDs(t *testing.T) {
	a, b := GenKSortedID("run_"), GenKSortedID("run_")
	assert.True(t, strings.HasPrefix(a, "run_"))
	assert.NotEqual(t, a, b)

	assert.Len(t, GenRandomShortID(), 8)
}

func TestParseFloatOrDefault(t *testing.T) {
	f, err := ParseFloatOrDefault("", 0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.2, f)

	f, err = ParseFloatOrDefault("0.3", 0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.3, f)

	_, err = ParseFloatOrDefault("lots", 0.2)
	assert.Error(t, err)
}
