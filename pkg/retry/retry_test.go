package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fund-service/fund_service/pkg/errors"
)

func fastPolicy(maxRetries int) Policy {
	return PolicyDefault.WithMaxRetries(maxRetries).WithFixedInterval(time.Millisecond)
}

func TestDo_RetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(int) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnNonRetryableAppError(t *testing.T) {
	calls := 0
	rejected := apperrors.WrapWithType(errors.New("quote timeout"), apperrors.ErrorTypeValidation,
		apperrors.CodeSwapRejected, "swap rejected")

	err := Do(context.Background(), fastPolicy(3), func(int) error {
		calls++
		return rejected
	})

	assert.ErrorIs(t, err, rejected)
	assert.Equal(t, 1, calls)
}

func TestDo_GivesUpAfterBudget(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(int) error {
		calls++
		return apperrors.NewTransientError(apperrors.CodeOracleAPIError, "oracle busy", nil)
	})

	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 3, calls)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, fastPolicy(3), func(int) error {
		t.Fatal("attempt after cancellation")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
