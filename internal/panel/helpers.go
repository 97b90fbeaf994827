package panel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rendis/traceviz/pkg/schema"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a TracevizError code to an HTTP status.
func writeStoreError(w http.ResponseWriter, err error) {
	var tvErr *schema.TracevizError
	if errors.As(err, &tvErr) {
		switch tvErr.Code {
		case schema.ErrCodeNotFound:
			writeError(w, http.StatusNotFound, tvErr.Message)
			return
		case schema.ErrCodeValidation:
			writeError(w, http.StatusBadRequest, tvErr.Message)
			return
		case schema.ErrCodeConflict:
			writeError(w, http.StatusConflict, tvErr.Message)
			return
		}
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// queryInt extracts an integer query param with a default value.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryInt64 extracts an int64 query param with a default value.
func queryInt64(r *http.Request, key string, def int64) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
