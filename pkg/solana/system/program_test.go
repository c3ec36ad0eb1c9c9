package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramKey(t *testing.T) {
	// The system program is the all-zero address
	assert.Equal(t, make([]byte, 32), []byte(ProgramKey))
}
