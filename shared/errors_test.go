package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"typed", Errorf(KindPoolNotFound, "no pool"), KindPoolNotFound},
		{"wrapped typed", fmt.Errorf("fetch: %w", ErrZeroReserve), KindZeroReserve},
		{"deadline", fmt.Errorf("confirm: %w", context.DeadlineExceeded), KindIndeterminate},
		{"cancel", fmt.Errorf("send: %w", context.Canceled), KindCancelled},
		{"transport", errors.New("connection reset by peer"), KindLedgerFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorMatchesSentinelByKind(t *testing.T) {
	err := Wrap(KindCancelled, context.Canceled, "cancelled before submission")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrIndeterminate)
	assert.Equal(t, "Cancelled: cancelled before submission: context canceled", err.Error())

	assert.Equal(t, KindUnreconciled, AsError(ErrUnreconciled).Kind)
	assert.Equal(t, KindLedgerFailure, AsError(errors.New("boom")).Kind)
}
