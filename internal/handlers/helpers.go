package handlers

import (
	"net/http"
	"time"

	"courier-backend/internal/timeutil"
)

// ownerID pulls the tenant id from the X-Owner-ID header, falling back
// to the owner_id query parameter.
func ownerID(r *http.Request) string {
	if v := r.Header.Get("X-Owner-ID"); v != "" {
		return v
	}
	return r.URL.Query().Get("owner_id")
}

// dateRange parses optional from/to query parameters. A bare "from"
// date covers from its midnight, a bare "to" date through its last
// nanosecond.
func dateRange(r *http.Request) (start, end *time.Time, err error) {
	if v := r.URL.Query().Get("from"); v != "" {
		t, perr := timeutil.ParseDate(v)
		if perr != nil {
			return nil, nil, perr
		}
		t = timeutil.StartOfDay(t)
		start = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, perr := timeutil.ParseDate(v)
		if perr != nil {
			return nil, nil, perr
		}
		t = timeutil.EndOfDay(t)
		end = &t
	}
	return start, end, nil
}
