// Package respond writes JSON responses and error envelopes. Error
// text passes through a safety gate first: parameter-validation
// messages go back to the caller verbatim, anything else (driver
// errors, upstream failures with credentialed URLs in them) is
// replaced by a generic message and logged sanitized.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			// Headers are gone; all that's left is to log it.
			slog.Default().Error("failed to encode JSON response",
				slog.Int("status_code", code),
				slog.Any("error", err))
		}
	}
}

// Error writes err's message in the standard error envelope, with no
// safety gate. Callers must only pass messages they built themselves.
func Error(w http.ResponseWriter, code int, err error) {
	JSON(w, code, map[string]string{"error": err.Error()})
}

// safeFragments marks messages that originate from request
// validation, which are the only ones allowed out verbatim.
var safeFragments = []string{
	"required",
	"invalid",
	"not found",
	"already exists",
	"must be",
	"cannot be",
	"too long",
	"too short",
}

// SafeError writes err through the safety gate: validation-shaped
// messages pass, everything else becomes "internal server error" with
// the real (sanitized) message logged. Any 5xx is unsafe regardless of
// shape — a feed uri with embedded credentials can surface inside an
// otherwise harmless-looking upstream error.
func SafeError(w http.ResponseWriter, code int, err error) {
	if err == nil {
		return
	}

	msg := err.Error()
	if code < 500 && isValidationShaped(msg) {
		JSON(w, code, map[string]string{"error": msg})
		return
	}

	slog.Default().Error("internal server error",
		slog.String("status", http.StatusText(code)),
		slog.Int("code", code),
		slog.Any("error", SanitizeError(err)))
	JSON(w, code, map[string]string{"error": "internal server error"})
}

func isValidationShaped(msg string) bool {
	lower := strings.ToLower(msg)
	for _, fragment := range safeFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}
