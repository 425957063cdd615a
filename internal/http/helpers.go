package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"financas/internal/core"
	"financas/internal/storage"
)

const maxBodyBytes = 1 << 20

// parseYearMonth extracts year and month from query parameters.
// Returns current year/month as defaults if not provided or invalid.
func (s *Server) parseYearMonth(r *http.Request) (year, month int) {
	now := s.now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 12 {
			month = m
		}
	}

	return year, month
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// writeMutation maps a service result onto the wire. Validation failures are
// 422. A rejected persistence write is reported as a warning with the data
// still applied, since the in-memory ledger kept the change.
func (s *Server) writeMutation(w http.ResponseWriter, r *http.Request, payload any, err error) {
	switch {
	case err == nil:
		s.invalidateReports()
		writeJSON(w, http.StatusOK, payload)
	case errors.Is(err, storage.ErrWriteRejected):
		s.invalidateReports()
		slog.WarnContext(r.Context(), "Change applied but not persisted", "error", err)
		writeJSON(w, http.StatusOK, map[string]any{
			"data":    payload,
			"warning": "change applied but could not be persisted",
		})
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Mutation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrEmptyDescription, core.ErrEmptyName,
		core.ErrInvalidDate, core.ErrInvalidDayOfMonth, core.ErrMissingAccount,
		core.ErrMissingCategory, core.ErrInvalidType, core.ErrSameAccount,
		core.ErrDuplicateCategory, core.ErrMissingInstallmentFields,
		core.ErrInvalidInstallmentType,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// parseAmountCents accepts either an integer cents field or a decimal string.
func parseAmountCents(amountCents int64, amount string) (int64, error) {
	if strings.TrimSpace(amount) != "" {
		return core.ParseDecimalToCents(amount)
	}
	return amountCents, nil
}

func defaultDate(date string, now time.Time) string {
	if strings.TrimSpace(date) == "" {
		return core.DateString(now.Year(), int(now.Month()), now.Day())
	}
	return date
}
