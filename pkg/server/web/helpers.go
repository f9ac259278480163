package web

import (
	"encoding/json"
	"net/http"
)

// jsonError is the body returned for failed requests.  Reason carries a
// machine readable cause for auth failures, e.g. "token-expired".
type jsonError struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// RenderJSON sets the content type and writes data as JSON with status
// 200.
func RenderJSON(w http.ResponseWriter, data interface{}) error {
	return RenderJSONStatus(w, http.StatusOK, data)
}

// RenderJSONStatus sets the content type and writes data as JSON with
// the given HTTP status code.
func RenderJSONStatus(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	_ = RenderJSONStatus(w, status, jsonError{
		Error:  err.Error(),
		Reason: errorReason(err),
	})
}
