package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageWrapsAndUnwraps(t *testing.T) {
	base := errors.New("disk full")
	err := Storage("connect nodes", base)

	assert.True(t, Is(err, KindStorage))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "connect nodes: disk full", err.Error())
}

func TestStorageKeepsExistingKind(t *testing.T) {
	v := Validation("save node", errors.New("title is required"))
	wrapped := Storage("outer", fmt.Errorf("ctx: %w", v))
	assert.True(t, IsValidation(wrapped))
	assert.False(t, Is(wrapped, KindStorage))
}

func TestStorageNil(t *testing.T) {
	assert.NoError(t, Storage("noop", nil))
}

func TestNotFound(t *testing.T) {
	err := NotFound("get node", "node abc")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
}
