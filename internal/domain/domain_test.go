package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBid(t *testing.T) {
	job := &Job{ID: "job-1", Budget: 500, Status: JobStatusOpen}

	tests := []struct {
		name    string
		amount  int64
		wantErr error
	}{
		{name: "zero amount", amount: 0, wantErr: ErrInvalidAmount},
		{name: "negative amount", amount: -10, wantErr: ErrInvalidAmount},
		{name: "above budget", amount: 600, wantErr: ErrBudgetExceeded},
		{name: "one above budget", amount: 501, wantErr: ErrBudgetExceeded},
		{name: "equal to budget", amount: 500},
		{name: "smallest positive", amount: 1},
		{name: "typical bid", amount: 450},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBid(job, tt.amount)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, KindValidation, KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBid_SucceedsIffWithinBudget(t *testing.T) {
	for budget := int64(1); budget <= 20; budget++ {
		job := &Job{Budget: budget}
		for amount := int64(-3); amount <= 25; amount++ {
			err := ValidateBid(job, amount)
			want := amount > 0 && amount <= budget
			assert.Equal(t, want, err == nil, "budget=%d amount=%d", budget, amount)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{input: "350", want: 350},
		{input: " 42 ", want: 42},
		{input: "-5", want: -5},
		{input: "12.5", wantErr: true},
		{input: "abc", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateJobDraft(t *testing.T) {
	assert.NoError(t, ValidateJobDraft(JobDraft{Title: "Transcribe notes", Budget: 500}))

	err := ValidateJobDraft(JobDraft{Title: "  ", Budget: 500})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "title")

	err = ValidateJobDraft(JobDraft{Title: "Transcribe notes", Budget: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "budget")
}

func TestError_Matching(t *testing.T) {
	t.Run("wrapped sentinel matches", func(t *testing.T) {
		err := fmt.Errorf("place bid: %w", ErrDuplicateBid)
		assert.ErrorIs(t, err, ErrDuplicateBid)
		assert.False(t, errors.Is(err, ErrJobNotOpen))
		assert.Equal(t, KindStateConflict, KindOf(err))
	})

	t.Run("copy with same code matches", func(t *testing.T) {
		err := &Error{Kind: KindValidation, Code: ErrInvalidInput.Code, Message: "custom"}
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unavailable wraps plain errors", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Unavailable(cause)
		assert.ErrorIs(t, err, ErrRemoteUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, KindRemoteUnavailable, KindOf(err))
	})

	t.Run("unavailable keeps domain errors", func(t *testing.T) {
		err := Unavailable(ErrJobNotFound)
		assert.Same(t, ErrJobNotFound, err)
		assert.Nil(t, Unavailable(nil))
	})

	t.Run("payment declined carries reason", func(t *testing.T) {
		err := PaymentDeclined("BAD_REQUEST_ERROR - card declined")
		assert.ErrorIs(t, err, ErrPaymentDeclined)
		assert.Contains(t, err.Error(), "card declined")
	})

	t.Run("unclassified error has no kind", func(t *testing.T) {
		assert.Equal(t, Kind(0), KindOf(errors.New("boom")))
	})
}

func TestRequireIdentity(t *testing.T) {
	assert.ErrorIs(t, RequireIdentity(nil), ErrNotAuthenticated)
	assert.ErrorIs(t, RequireIdentity(&Identity{}), ErrNotAuthenticated)
	assert.NoError(t, RequireIdentity(&Identity{ID: "u1"}))

	id := &Identity{ID: "u1"}
	assert.Equal(t, "Anonymous Worker", id.DisplayName("Anonymous Worker"))
	id.Name = "Asha"
	assert.Equal(t, "Asha", id.DisplayName("Anonymous Worker"))
}
