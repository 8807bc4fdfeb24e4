package rejection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByReason(t *testing.T) {
	err := New(CapacityExceeded, "%d of %d tables taken", 2, 2)

	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.NotErrorIs(t, err, ErrInvalidWindow)
	assert.Equal(t, "CAPACITY_EXCEEDED: 2 of 2 tables taken", err.Error())
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("submit booking: %w", Wrap(StorageFailure, cause, "persist reservation"))

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, cause)

	reason, ok := ReasonOf(err)
	assert.True(t, ok)
	assert.Equal(t, StorageFailure, reason)
}

func TestReasonOf_PlainError(t *testing.T) {
	_, ok := ReasonOf(errors.New("boom"))
	assert.False(t, ok)
}

func TestFromContext(t *testing.T) {
	timedOut := FromContext(fmt.Errorf("waiting for restaurant 3: %w", context.DeadlineExceeded), "")
	assert.ErrorIs(t, timedOut, ErrTimeout)
	assert.ErrorIs(t, timedOut, context.DeadlineExceeded)

	cancelled := FromContext(context.Canceled, "lock")
	assert.ErrorIs(t, cancelled, ErrCancelled)
	assert.NotErrorIs(t, cancelled, ErrTimeout)

	other := errors.New("redis down")
	assert.Same(t, other, FromContext(other, "lock"))
}
