package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patternforge/hebbian/internal/errs"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	base := errors.New("connection refused")
	err := errs.Wrap(errs.StoreUnavailable, "open sqlite", base)

	assert.True(t, errs.Is(err, errs.StoreUnavailable))
	assert.False(t, errs.Is(err, errs.EmbedTimeout))
}

func TestIsMatchesThroughFmtErrorfWrapping(t *testing.T) {
	err := errs.New(errs.InvalidID, "memory not found: m1")
	wrapped := fmt.Errorf("upsert cooccurrence: %w", err)

	assert.True(t, errs.Is(wrapped, errs.InvalidID))
}

func TestIsFalseForPlainError(t *testing.T) {
	assert.False(t, errs.Is(errors.New("plain"), errs.ConfigInvalid))
}

func TestUnwrapReturnsCause(t *testing.T) {
	base := errors.New("timeout")
	err := errs.Wrap(errs.EmbedTimeout, "embed batch", base)
	assert.Equal(t, base, errors.Unwrap(err))
}

func TestErrorStringIncludesKindAndMessage(t *testing.T) {
	err := errs.New(errs.DimensionMismatch, "expected 1536, got 768")
	assert.Contains(t, err.Error(), "dimension_mismatch")
	assert.Contains(t, err.Error(), "expected 1536, got 768")
}
