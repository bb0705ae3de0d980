package transfer_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abensaid/lendify/pkg/domain"
	"github.com/abensaid/lendify/pkg/domain/transfer"
)

func newTransfer(t *testing.T, requiredCodes int) *transfer.Transfer {
	t.Helper()
	tr, err := transfer.New(
		uuid.New(), uuid.New(),
		decimal.NewFromInt(1000), "Jean Dupont", nil,
		requiredCodes, decimal.NewFromInt(25),
	)
	require.NoError(t, err)
	return tr
}

func TestNew_SeedsPendingAtFloor(t *testing.T) {
	t.Parallel()
	tr := newTransfer(t, 3)
	assert.Equal(t, transfer.StatusPending, tr.Status)
	assert.Equal(t, 10, tr.ProgressPercent)
	assert.Equal(t, 1, tr.CurrentStep)
	assert.Equal(t, 0, tr.CodesValidated)
	assert.Equal(t, 3, tr.RequiredCodes)
}

func TestNew_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()
	_, err := transfer.New(
		uuid.New(), uuid.New(),
		decimal.Zero, "x", nil, 1, decimal.NewFromInt(25),
	)
	assert.Error(t, err)
}

func TestProgressFor(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		validated int
		required  int
		want      int
	}{
		{"one of one reaches ceiling", 1, 1, 90},
		{"none of one stays at floor", 0, 1, 10},
		{"one of three", 1, 3, 36},
		{"two of three", 2, 3, 62},
		{"three of three", 3, 3, 88},
		{"one of two", 1, 2, 50},
		{"two of two", 2, 2, 90},
		{"capped at ceiling", 9, 8, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, transfer.ProgressFor(tt.validated, tt.required))
		})
	}
}

func TestRegisterValidation_Staircase(t *testing.T) {
	t.Parallel()
	tr := newTransfer(t, 3)
	now := time.Now()

	var progress []int
	for i := 0; i < 3; i++ {
		complete, err := tr.RegisterValidation(now)
		require.NoError(t, err)
		progress = append(progress, tr.ProgressPercent)
		assert.Equal(t, i == 2, complete)
	}

	assert.Equal(t, []int{36, 62, 88}, progress)
	assert.Equal(t, transfer.StatusInProgress, tr.Status)
	assert.Equal(t, 4, tr.CurrentStep)
	require.NotNil(t, tr.ApprovedAt)

	// No further validations are accepted.
	_, err := tr.RegisterValidation(now)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRegisterValidation_ProgressMonotonic(t *testing.T) {
	t.Parallel()
	tr := newTransfer(t, 5)
	prev := tr.ProgressPercent
	for i := 0; i < 5; i++ {
		_, err := tr.RegisterValidation(time.Now())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, tr.ProgressPercent, prev)
		prev = tr.ProgressPercent
	}
}

func TestComplete(t *testing.T) {
	t.Parallel()
	tr := newTransfer(t, 1)
	now := time.Now()

	// Not valid before validation finishes.
	assert.ErrorIs(t, tr.Complete(now), domain.ErrInvalidState)

	_, err := tr.RegisterValidation(now)
	require.NoError(t, err)
	require.NoError(t, tr.Complete(now))
	assert.Equal(t, transfer.StatusCompleted, tr.Status)
	assert.Equal(t, 100, tr.ProgressPercent)
	require.NotNil(t, tr.CompletedAt)

	// Completing again is a no-op.
	assert.NoError(t, tr.Complete(now))
}

func TestComplete_RefusedWhilePaused(t *testing.T) {
	t.Parallel()
	tr := newTransfer(t, 1)
	now := time.Now()
	_, err := tr.RegisterValidation(now)
	require.NoError(t, err)
	require.NoError(t, tr.Suspend())

	assert.ErrorIs(t, tr.Complete(now), domain.ErrTransferPaused)

	require.NoError(t, tr.Resume())
	assert.NoError(t, tr.Complete(now))
}

func TestSuspendResume(t *testing.T) {
	t.Parallel()
	tr := newTransfer(t, 1)
	// Suspend requires in-progress.
	assert.ErrorIs(t, tr.Suspend(), domain.ErrInvalidState)

	_, err := tr.RegisterValidation(time.Now())
	require.NoError(t, err)
	require.NoError(t, tr.Suspend())
	assert.True(t, tr.IsPaused)
	require.NotNil(t, tr.PausePercent)
	assert.Equal(t, 90, *tr.PausePercent)
	assert.Equal(t, transfer.StatusSuspended, tr.Status)

	require.NoError(t, tr.Resume())
	assert.False(t, tr.IsPaused)
	assert.Nil(t, tr.PausePercent)
	assert.Equal(t, transfer.StatusInProgress, tr.Status)

	// Resume without a hold is invalid.
	assert.ErrorIs(t, tr.Resume(), domain.ErrInvalidState)
}

func TestCodeLifecycle(t *testing.T) {
	t.Parallel()
	now := time.Now()
	c := transfer.NewCode(uuid.New(), 1, transfer.CodeKindStep, "email", now, 0)

	assert.Len(t, c.Code, 6)
	assert.True(t, c.Active(now))
	assert.True(t, c.Matches(c.Code))
	assert.False(t, c.Matches(""))
	assert.False(t, c.Matches("000000x"))

	// Zero ttl falls back to the 15-minute default.
	assert.True(t, c.Active(now.Add(transfer.CodeTTL-time.Second)))
	assert.False(t, c.Active(now.Add(transfer.CodeTTL)))

	c.Consume(now)
	assert.False(t, c.Active(now))

	c2 := transfer.NewCode(uuid.New(), 1, transfer.CodeKindStep, "email", now, 0)
	c2.Supersede(now)
	assert.False(t, c2.Active(now))
}

func TestNewCode_ConfiguredTTL(t *testing.T) {
	t.Parallel()
	now := time.Now()
	c := transfer.NewCode(uuid.New(), 1, transfer.CodeKindStep, "email", now, 2*time.Minute)

	assert.Equal(t, now.Add(2*time.Minute), c.ExpiresAt)
	assert.True(t, c.Active(now.Add(2*time.Minute-time.Second)))
	assert.False(t, c.Active(now.Add(2*time.Minute)))
}
