package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codegate/internal/codebank"
	"codegate/internal/storage"

	"github.com/rs/zerolog"
)

// maxPersistAttempts bounds how often an operation is re-applied after losing
// a conditional write to a concurrent update.
const maxPersistAttempts = 5

// codeService implements CodeService on top of a RecordStore and a URLSigner.
type codeService struct {
	store   storage.RecordStore
	signer  storage.URLSigner
	fileKey string
	urlTTL  time.Duration
	logger  zerolog.Logger
}

// NewCodeService creates a code service gating downloads of the object at
// fileKey. urlTTL is the validity window of signed download URLs.
func NewCodeService(
	store storage.RecordStore,
	signer storage.URLSigner,
	fileKey string,
	urlTTL time.Duration,
	logger zerolog.Logger,
) CodeService {
	return &codeService{
		store:   store,
		signer:  signer,
		fileKey: fileKey,
		urlTTL:  urlTTL,
		logger:  logger.With().Str("service", "code").Logger(),
	}
}

// AddCode issues a new code. A code string that has ever been seen, unused or
// expired, is rejected without touching storage.
func (s *codeService) AddCode(ctx context.Context, code string) (codebank.Outcome, error) {
	outcome, err := s.apply(ctx, func(bank *codebank.Codebank) codebank.Outcome {
		return bank.Add(code)
	})
	if err != nil {
		return outcome, err
	}

	switch outcome {
	case codebank.OutcomeAdded:
		s.logger.Info().Str("code", code).Msg("new code added to codebank")
	case codebank.OutcomeRejected:
		s.logger.Info().Str("code", code).Msg("rejected previously seen code")
	}
	return outcome, nil
}

// Redeem consumes a code. Only a successful move from unused to expired signs
// a download URL; both rejection outcomes leave storage untouched.
func (s *codeService) Redeem(ctx context.Context, code string) (*RedeemResult, error) {
	outcome, err := s.apply(ctx, func(bank *codebank.Codebank) codebank.Outcome {
		return bank.Redeem(code)
	})
	if err != nil {
		return nil, err
	}

	if outcome != codebank.OutcomeRedeemed {
		s.logger.Info().
			Str("code", code).
			Str("outcome", outcome.String()).
			Msg("redemption rejected")
		return &RedeemResult{Outcome: outcome}, nil
	}

	// The code is durably expired from here on. A signing failure cannot be
	// rolled back, so it is surfaced as its own error kind.
	url, err := s.signer.SignDownload(ctx, s.fileKey, s.urlTTL)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("code", code).
			Str("file_key", s.fileKey).
			Msg("code consumed but URL generation failed, manual re-credit required")
		return nil, fmt.Errorf("%w: %v", ErrCodeConsumed, err)
	}

	s.logger.Info().Str("code", code).Msg("code redeemed, download URL signed")
	return &RedeemResult{Outcome: codebank.OutcomeRedeemed, DownloadURL: url}, nil
}

// apply runs one load-mutate-persist cycle. Rejecting outcomes skip the
// persist entirely. A lost conditional write reloads the bank and re-applies
// the mutation, which re-evaluates the outcome against the fresh state.
func (s *codeService) apply(ctx context.Context, mutate func(*codebank.Codebank) codebank.Outcome) (codebank.Outcome, error) {
	for attempt := 1; attempt <= maxPersistAttempts; attempt++ {
		bank, rev, err := s.store.Load(ctx)
		if err != nil {
			return codebank.OutcomeUnknown, fmt.Errorf("failed to load codebank: %w", err)
		}

		outcome := mutate(bank)
		if !outcome.Mutated() {
			return outcome, nil
		}

		_, err = s.store.Persist(ctx, bank, rev)
		if err == nil {
			return outcome, nil
		}
		if !errors.Is(err, storage.ErrRevisionConflict) {
			return outcome, fmt.Errorf("failed to persist codebank: %w", err)
		}

		s.logger.Warn().
			Int("attempt", attempt).
			Msg("codebank changed underneath us, retrying")
	}

	return codebank.OutcomeUnknown, fmt.Errorf("failed to persist codebank after %d attempts: %w",
		maxPersistAttempts, storage.ErrRevisionConflict)
}
