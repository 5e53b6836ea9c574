package api

import (
	"errors"
	"net/http"

	"github.com/drone-relay/drc/internal/mailbox"
)

// WriteMailboxError maps a mailbox error to its stable code and HTTP
// status and writes the error envelope. Every rejection keeps a specific
// reason so the vehicle and the console can branch on it.
func WriteMailboxError(w http.ResponseWriter, err error) {
	var accErr *mailbox.AccuracyError
	if errors.As(err, &accErr) {
		WriteError(w, http.StatusBadRequest, "ACCURACY_TOO_POOR",
			accErr.Error(), map[string]interface{}{"accuracyM": accErr.AccuracyM})
		return
	}

	switch {
	case errors.Is(err, mailbox.ErrInvalidPayload):
		WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD",
			"Required field missing or not numeric", nil)
	case errors.Is(err, mailbox.ErrOutOfRange):
		WriteError(w, http.StatusBadRequest, "OUT_OF_RANGE",
			"Latitude or longitude outside valid bounds", nil)
	case errors.Is(err, mailbox.ErrAccuracyTooPoor):
		WriteError(w, http.StatusBadRequest, "ACCURACY_TOO_POOR",
			"Reported accuracy exceeds the configured ceiling", nil)
	case errors.Is(err, mailbox.ErrInvalidCommand):
		WriteError(w, http.StatusBadRequest, "INVALID_COMMAND",
			"Command is not in the allowed set", nil)
	case errors.Is(err, mailbox.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND",
			"No position has been written", nil)
	case errors.Is(err, mailbox.ErrStale):
		WriteError(w, http.StatusGone, "STALE",
			"Last position exceeds the age ceiling", nil)
	default:
		// Storage failures and anything unexpected are fatal to this
		// request only.
		WriteError(w, http.StatusInternalServerError, "INTERNAL",
			"Internal server error", nil)
	}
}
