package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo(t *testing.T) {
	errBroker := errors.New("broker not ready")
	fast := Config{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	tests := []struct {
		name      string
		failUntil int
		wantCalls int
		wantErr   error
	}{
		{name: "first try", failUntil: 0, wantCalls: 1},
		{name: "succeeds on third", failUntil: 2, wantCalls: 3},
		{name: "gives up", failUntil: 10, wantCalls: 3, wantErr: errBroker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fast, func() error {
				calls++
				if calls <= tt.failUntil {
					return errBroker
				}
				return nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDo_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Config{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("dial failed")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
