package handler

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Response bodies are part of the external contract and must not drift.
const (
	msgUnexpected  = "Unexpected request."
	msgCodeSeen    = "Code is either expired or already active."
	msgCodeAdded   = "New code added."
	msgInvalidCode = "Invalid download code."
	msgExpiredCode = "Expired download code."
	msgInternal    = "Internal server error."
)

// writeMessage writes a plain-text response with the given status code.
func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(message))
}

// writeInternalError logs a fatal-tier failure and answers with a 500.
func writeInternalError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	logger.Error().Err(err).Msg("request failed")
	writeMessage(w, http.StatusInternalServerError, msgInternal)
}
