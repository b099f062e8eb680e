package handler

import (
	"net/http"
	"time"

	"github.com/pharmatrack/pharmatrack-backend/pkg/errors"
)

func queryString(r *http.Request, name string) *string {
	if v := r.URL.Query().Get(name); v != "" {
		return &v
	}
	return nil
}

// queryDate parses a date query param. "to" dates are pushed to the end of
// the day so a single-day window covers the whole day. A value that parses
// as neither a plain date nor RFC 3339 is rejected, never silently dropped.
func queryDate(r *http.Request, name string, endOfDay bool) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, v); err != nil {
			return nil, errors.Validation(map[string]string{name: "must be a date (2006-01-02 or RFC 3339)"})
		}
		return &t, nil
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return &t, nil
}
