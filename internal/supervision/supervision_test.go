package supervision_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/hebbian/internal/supervision"
)

type fakeStore struct {
	deprecated  map[string]string
	corrections map[string]string
	failWith    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{deprecated: make(map[string]string), corrections: make(map[string]string)}
}

func (f *fakeStore) Deprecate(ctx context.Context, oldID, newID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.deprecated[oldID] = newID
	return nil
}

func (f *fakeStore) MarkCorrection(ctx context.Context, correctionID, correctedID string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.corrections[correctionID] = correctedID
	return nil
}

func TestDeprecateDelegatesToStore(t *testing.T) {
	store := newFakeStore()
	s := supervision.New(store)

	require.NoError(t, s.Deprecate(context.Background(), "old", "new"))
	assert.Equal(t, "new", store.deprecated["old"])
}

func TestDeprecatePropagatesStoreError(t *testing.T) {
	store := newFakeStore()
	store.failWith = errors.New("not found")
	s := supervision.New(store)

	err := s.Deprecate(context.Background(), "old", "new")
	assert.Error(t, err)
}

func TestMarkCorrectionDelegatesToStore(t *testing.T) {
	store := newFakeStore()
	s := supervision.New(store)

	require.NoError(t, s.MarkCorrection(context.Background(), "fix", "wrong"))
	assert.Equal(t, "wrong", store.corrections["fix"])
}
