package kernel_test

import (
	"testing"

	"github.com/brickingsoft/ringd/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	v, err := kernel.Get()
	if err != nil {
		t.Skip(err)
		return
	}
	t.Log(v)
}

func TestParse(t *testing.T) {
	v, err := kernel.Parse("6.18.44-fc-v139")
	require.NoError(t, err)
	assert.Equal(t, kernel.Version{Kernel: 6, Major: 18, Minor: 44, Flavor: "-fc-v139"}, v)
	assert.True(t, v.GTE(5, 19, 0))
	assert.False(t, v.GTE(7, 0, 0))

	v, err = kernel.Parse("5.4")
	require.NoError(t, err)
	assert.Equal(t, 5, v.Kernel)
	assert.Equal(t, 4, v.Major)
	assert.False(t, v.GTE(5, 19, 0))

	_, err = kernel.Parse("linux")
	assert.Error(t, err)
}
