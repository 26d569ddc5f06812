package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesKindAndMessage(t *testing.T) {
	err := fmt.Errorf("add recipe: %w", NotFound("collection_not_found"))

	assert.True(t, Is(err, NotFound("collection_not_found")))
	assert.False(t, Is(err, NotFound("review_not_found")))
	assert.False(t, Is(Conflict("collection_exists"), Validation("collection_exists")))
	assert.True(t, Is(Transient("try_again").WithCause(errors.New("lock timeout")), Transient("try_again")))
	assert.False(t, Is(nil, NotFound("collection_not_found")))
}

func TestIsKind(t *testing.T) {
	assert.True(t, IsKind(fmt.Errorf("wrapped: %w", Conflict("already_reacted")), KindConflict))
	assert.False(t, IsKind(errors.New("plain"), KindConflict))
}
