package service

import (
	"context"
	"errors"

	"codegate/internal/codebank"
)

// ErrCodeConsumed marks the worst failure mode: a code was durably redeemed
// but the download URL could not be generated afterwards. The caller cannot
// be handed the code back, so operators must re-credit it manually.
var ErrCodeConsumed = errors.New("code redeemed but no download URL could be generated")

// RedeemResult carries the outcome of a redemption and, when it succeeded,
// the temporary URL the caller is redirected to.
type RedeemResult struct {
	Outcome     codebank.Outcome
	DownloadURL string
}

// CodeService applies a single codebank mutation per call: load the bank,
// mutate, persist if anything changed.
type CodeService interface {
	// AddCode issues a new download code.
	AddCode(ctx context.Context, code string) (codebank.Outcome, error)

	// Redeem consumes a download code and, on success, signs a temporary URL
	// for the protected file.
	Redeem(ctx context.Context, code string) (*RedeemResult, error)
}
