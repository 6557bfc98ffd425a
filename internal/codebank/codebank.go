package codebank

// Outcome classifies the result of applying a single mutation to a Codebank.
type Outcome int

const (
	// OutcomeUnknown is the zero value and never produced by a mutation.
	OutcomeUnknown Outcome = iota

	// OutcomeAdded means the code was inserted into the unused set.
	OutcomeAdded

	// OutcomeRejected means the code has been seen before (unused or expired)
	// and may never be issued again.
	OutcomeRejected

	// OutcomeRedeemed means the code was moved from unused to expired.
	OutcomeRedeemed

	// OutcomeInvalidCode means the code is not in the unused set. A code that
	// was already redeemed is indistinguishable from one that never existed.
	OutcomeInvalidCode

	// OutcomeAlreadyExpired means the code was found in both sets, which the
	// invariant forbids. The bank is left untouched so the anomaly stays
	// visible in storage.
	OutcomeAlreadyExpired
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRedeemed:
		return "redeemed"
	case OutcomeInvalidCode:
		return "invalid_code"
	case OutcomeAlreadyExpired:
		return "already_expired"
	default:
		return "unknown"
	}
}

// Mutated reports whether the outcome implies the bank changed and must be
// persisted.
func (o Outcome) Mutated() bool {
	return o == OutcomeAdded || o == OutcomeRedeemed
}

// Codebank is the two-set registry of download codes. A code lives in exactly
// one of the two sets, or in neither if it was never issued. It is a
// short-lived, single-writer working copy: load, apply one mutation, persist.
type Codebank struct {
	UnusedCodes  []string `json:"unused_codes"`
	ExpiredCodes []string `json:"expired_codes"`
}

// New returns an empty codebank with both sets initialised, so it serialises
// as empty arrays rather than nulls.
func New() *Codebank {
	return &Codebank{
		UnusedCodes:  []string{},
		ExpiredCodes: []string{},
	}
}

// Add inserts a new code into the unused set. A code that has ever existed,
// in either set, is permanently retired from issuance and is rejected.
func (b *Codebank) Add(code string) Outcome {
	if contains(b.UnusedCodes, code) || contains(b.ExpiredCodes, code) {
		return OutcomeRejected
	}

	b.UnusedCodes = append(b.UnusedCodes, code)
	return OutcomeAdded
}

// Redeem moves a code from the unused set to the expired set. The move is
// all-or-nothing on the in-memory bank: after a successful redeem the code is
// in exactly one set, never both and never neither.
func (b *Codebank) Redeem(code string) Outcome {
	if !contains(b.UnusedCodes, code) {
		return OutcomeInvalidCode
	}

	// A code present in both sets violates the invariant. Refuse to touch the
	// bank so the stored record keeps the evidence.
	if contains(b.ExpiredCodes, code) {
		return OutcomeAlreadyExpired
	}

	b.UnusedCodes = remove(b.UnusedCodes, code)
	b.ExpiredCodes = append(b.ExpiredCodes, code)
	return OutcomeRedeemed
}

// Contains reports whether the code exists in either set.
func (b *Codebank) Contains(code string) bool {
	return contains(b.UnusedCodes, code) || contains(b.ExpiredCodes, code)
}

func contains(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func remove(codes []string, code string) []string {
	out := codes[:0]
	for _, c := range codes {
		if c != code {
			out = append(out, c)
		}
	}
	return out
}
