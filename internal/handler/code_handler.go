package handler

import (
	"errors"
	"net/http"
	"strings"

	"codegate/internal/codebank"
	"codegate/internal/service"

	"github.com/rs/zerolog"
)

// addCodePrefix is the fixed path prefix that classifies a request as an add
// intent. Any other non-empty path is a redemption attempt.
const addCodePrefix = "/add_code="

// CodeHandler serves both intents of the code API:
//
//	GET /add_code=<code>  issue a new download code
//	GET /<code>           redeem a code and redirect to the download
type CodeHandler struct {
	service service.CodeService
	logger  zerolog.Logger
}

// NewCodeHandler creates a new code handler.
func NewCodeHandler(service service.CodeService, logger zerolog.Logger) *CodeHandler {
	return &CodeHandler{
		service: service,
		logger:  logger.With().Str("handler", "code").Logger(),
	}
}

// Dispatch classifies the request path into an intent and serves it. Paths
// that yield no code are unclassifiable and answered with a 404.
func (h *CodeHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMessage(w, http.StatusNotFound, msgUnexpected)
		return
	}

	path := r.URL.Path
	if code, ok := strings.CutPrefix(path, addCodePrefix); ok {
		if code == "" {
			h.logger.Warn().Str("path", path).Msg("add request carried no code")
			writeMessage(w, http.StatusNotFound, msgUnexpected)
			return
		}
		h.addCode(w, r, code)
		return
	}

	code := strings.TrimPrefix(path, "/")
	if code == "" {
		h.logger.Warn().Str("path", path).Msg("could not parse code from path")
		writeMessage(w, http.StatusNotFound, msgUnexpected)
		return
	}
	h.redeem(w, r, code)
}

func (h *CodeHandler) addCode(w http.ResponseWriter, r *http.Request, code string) {
	outcome, err := h.service.AddCode(r.Context(), code)
	if err != nil {
		writeInternalError(w, err, h.logger)
		return
	}

	switch outcome {
	case codebank.OutcomeAdded:
		writeMessage(w, http.StatusOK, msgCodeAdded)
	case codebank.OutcomeRejected:
		writeMessage(w, http.StatusForbidden, msgCodeSeen)
	default:
		h.logger.Error().Str("outcome", outcome.String()).Msg("unexpected add outcome")
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *CodeHandler) redeem(w http.ResponseWriter, r *http.Request, code string) {
	result, err := h.service.Redeem(r.Context(), code)
	if err != nil {
		// The code is already burned; flag it so operators can re-credit.
		if errors.Is(err, service.ErrCodeConsumed) {
			h.logger.Error().
				Err(err).
				Str("code", code).
				Bool("code_consumed", true).
				Msg("code consumed without a usable download URL")
			writeMessage(w, http.StatusInternalServerError, msgInternal)
			return
		}
		writeInternalError(w, err, h.logger)
		return
	}

	switch result.Outcome {
	case codebank.OutcomeRedeemed:
		w.Header().Set("Location", result.DownloadURL)
		w.WriteHeader(http.StatusFound)
	case codebank.OutcomeInvalidCode:
		writeMessage(w, http.StatusForbidden, msgInvalidCode)
	case codebank.OutcomeAlreadyExpired:
		writeMessage(w, http.StatusForbidden, msgExpiredCode)
	default:
		h.logger.Error().Str("outcome", result.Outcome.String()).Msg("unexpected redeem outcome")
		writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}
