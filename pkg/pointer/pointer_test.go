package pointer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointer(t *testing.T) {
	p := To("value")
	require.NotNil(t, p)
	assert.Equal(t, "value", *p)

	assert.Equal(t, p, OrDefault(p, "default"))
	assert.Equal(t, "default", *OrDefault[string](nil, "default"))

	assert.Nil(t, IfValid(false, 1))
	assert.Equal(t, 1, *IfValid(true, 1))

	c := Copy(p)
	require.NotNil(t, c)
	assert.Equal(t, *p, *c)
	assert.NotSame(t, p, c)
	assert.Nil(t, Copy[string](nil))

	assert.Nil(t, Uint64IfNonZero(0))
	assert.EqualValues(t, 5, *Uint64IfNonZero(5))
}
