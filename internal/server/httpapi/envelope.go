package httpapi

import (
	"encoding/json"
	"net/http"
)

// interfaceVersion is echoed in every response so the LMS can detect
// contract drift.
const interfaceVersion = 1

// The LMS treats every well-formed reply as HTTP 200 and reads the
// success flag from the envelope; only transport-level failures use
// other status codes.

func writeSuccess(w http.ResponseWriter, data map[string]interface{}) {
	body := map[string]interface{}{
		"version": interfaceVersion,
		"success": true,
	}
	for k, v := range data {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, message string, data map[string]interface{}) {
	body := map[string]interface{}{
		"version": interfaceVersion,
		"success": false,
		"error":   message,
	}
	for k, v := range data {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, statusCode int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp, _ := json.Marshal(body)
	_, _ = w.Write(resp)
}
