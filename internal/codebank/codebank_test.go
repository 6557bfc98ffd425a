package codebank

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodebank_Add(t *testing.T) {
	tests := []struct {
		name            string
		unused          []string
		expired         []string
		code            string
		expectedOutcome Outcome
		expectedUnused  []string
		expectedExpired []string
	}{
		{
			name:            "Add to empty bank",
			unused:          []string{},
			expired:         []string{},
			code:            "Q1",
			expectedOutcome: OutcomeAdded,
			expectedUnused:  []string{"Q1"},
			expectedExpired: []string{},
		},
		{
			name:            "Add second code preserves existing",
			unused:          []string{"A1"},
			expired:         []string{},
			code:            "B2",
			expectedOutcome: OutcomeAdded,
			expectedUnused:  []string{"A1", "B2"},
			expectedExpired: []string{},
		},
		{
			name:            "Reject code already unused",
			unused:          []string{"A1"},
			expired:         []string{},
			code:            "A1",
			expectedOutcome: OutcomeRejected,
			expectedUnused:  []string{"A1"},
			expectedExpired: []string{},
		},
		{
			name:            "Reject code already expired",
			unused:          []string{},
			expired:         []string{"Z9"},
			code:            "Z9",
			expectedOutcome: OutcomeRejected,
			expectedUnused:  []string{},
			expectedExpired: []string{"Z9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := &Codebank{UnusedCodes: tt.unused, ExpiredCodes: tt.expired}

			outcome := bank.Add(tt.code)

			assert.Equal(t, tt.expectedOutcome, outcome)
			assert.Equal(t, tt.expectedUnused, bank.UnusedCodes)
			assert.Equal(t, tt.expectedExpired, bank.ExpiredCodes)
		})
	}
}

func TestCodebank_Add_ThenRejectedOnResultingBank(t *testing.T) {
	bank := New()

	assert.Equal(t, OutcomeAdded, bank.Add("FRESH1"))
	assert.Equal(t, OutcomeRejected, bank.Add("FRESH1"))

	// Redeeming and re-adding must also be rejected: once seen, retired forever.
	require.Equal(t, OutcomeRedeemed, bank.Redeem("FRESH1"))
	assert.Equal(t, OutcomeRejected, bank.Add("FRESH1"))
}

func TestCodebank_Redeem(t *testing.T) {
	tests := []struct {
		name            string
		unused          []string
		expired         []string
		code            string
		expectedOutcome Outcome
		expectedUnused  []string
		expectedExpired []string
	}{
		{
			name:            "Redeem unused code",
			unused:          []string{"A1"},
			expired:         []string{},
			code:            "A1",
			expectedOutcome: OutcomeRedeemed,
			expectedUnused:  []string{},
			expectedExpired: []string{"A1"},
		},
		{
			name:            "Redeem keeps other codes intact",
			unused:          []string{"A1", "B2", "C3"},
			expired:         []string{"X0"},
			code:            "B2",
			expectedOutcome: OutcomeRedeemed,
			expectedUnused:  []string{"A1", "C3"},
			expectedExpired: []string{"X0", "B2"},
		},
		{
			name:            "Invalid when never issued",
			unused:          []string{"A1"},
			expired:         []string{},
			code:            "NOPE",
			expectedOutcome: OutcomeInvalidCode,
			expectedUnused:  []string{"A1"},
			expectedExpired: []string{},
		},
		{
			name:            "Invalid when already expired",
			unused:          []string{},
			expired:         []string{"A1"},
			code:            "A1",
			expectedOutcome: OutcomeInvalidCode,
			expectedUnused:  []string{},
			expectedExpired: []string{"A1"},
		},
		{
			name:            "Already expired when in both sets",
			unused:          []string{"A1"},
			expired:         []string{"A1"},
			code:            "A1",
			expectedOutcome: OutcomeAlreadyExpired,
			expectedUnused:  []string{"A1"},
			expectedExpired: []string{"A1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := &Codebank{UnusedCodes: tt.unused, ExpiredCodes: tt.expired}

			outcome := bank.Redeem(tt.code)

			assert.Equal(t, tt.expectedOutcome, outcome)
			assert.Equal(t, tt.expectedUnused, bank.UnusedCodes)
			assert.Equal(t, tt.expectedExpired, bank.ExpiredCodes)
		})
	}
}

func TestCodebank_Redeem_ExactlyOneSetHoldsCode(t *testing.T) {
	bank := &Codebank{UnusedCodes: []string{"A1"}, ExpiredCodes: []string{}}

	require.Equal(t, OutcomeRedeemed, bank.Redeem("A1"))

	inUnused := 0
	for _, c := range bank.UnusedCodes {
		if c == "A1" {
			inUnused++
		}
	}
	inExpired := 0
	for _, c := range bank.ExpiredCodes {
		if c == "A1" {
			inExpired++
		}
	}
	assert.Equal(t, 0, inUnused, "redeemed code must leave the unused set")
	assert.Equal(t, 1, inExpired, "redeemed code must appear exactly once in expired")
}

func TestCodebank_Redeem_SecondCallRejectsWithoutMutation(t *testing.T) {
	bank := &Codebank{UnusedCodes: []string{"A1"}, ExpiredCodes: []string{}}

	require.Equal(t, OutcomeRedeemed, bank.Redeem("A1"))
	afterFirstUnused := append([]string{}, bank.UnusedCodes...)
	afterFirstExpired := append([]string{}, bank.ExpiredCodes...)

	// Re-redeeming any number of times never mutates the bank again.
	for i := 0; i < 3; i++ {
		assert.Equal(t, OutcomeInvalidCode, bank.Redeem("A1"))
		assert.Equal(t, afterFirstUnused, bank.UnusedCodes)
		assert.Equal(t, afterFirstExpired, bank.ExpiredCodes)
	}
}

func TestOutcome_Mutated(t *testing.T) {
	assert.True(t, OutcomeAdded.Mutated())
	assert.True(t, OutcomeRedeemed.Mutated())
	assert.False(t, OutcomeRejected.Mutated())
	assert.False(t, OutcomeInvalidCode.Mutated())
	assert.False(t, OutcomeAlreadyExpired.Mutated())
}

func TestCodebank_JSONLayout(t *testing.T) {
	bank := New()
	require.Equal(t, OutcomeAdded, bank.Add("A1"))

	data, err := json.Marshal(bank)
	require.NoError(t, err)
	assert.JSONEq(t, `{"unused_codes":["A1"],"expired_codes":[]}`, string(data))

	// Empty bank serialises as empty arrays, not nulls.
	data, err = json.Marshal(New())
	require.NoError(t, err)
	assert.JSONEq(t, `{"unused_codes":[],"expired_codes":[]}`, string(data))
}
