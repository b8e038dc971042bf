package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst, rejecting unknown fields and
// bodies over 1 MiB.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return core.Validationf("invalid request body: %v", err)
	}
	return nil
}

// pathID extracts a positive integer path value registered as {id}.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("invalid id %q", raw)
	}
	return id, nil
}

// parseYearMonth reads month and year query parameters, defaulting to the
// current month when absent.
func parseYearMonth(r *http.Request) (year, month int, err error) {
	now := time.Now().UTC()
	year, month = now.Year(), int(now.Month())

	if raw := r.URL.Query().Get("year"); raw != "" {
		year, err = strconv.Atoi(raw)
		if err != nil || year < 1970 || year > 9999 {
			return 0, 0, core.Validationf("invalid year %q", raw)
		}
	}
	if raw := r.URL.Query().Get("month"); raw != "" {
		month, err = strconv.Atoi(raw)
		if err != nil || month < 1 || month > 12 {
			return 0, 0, core.Validationf("invalid month %q", raw)
		}
	}
	return year, month, nil
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}
