package api

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope of every JSON answer.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Response{Data: data})
}

func fail(w http.ResponseWriter, status int, code, message, details string) {
	writeJSON(w, status, Response{Error: &Error{Code: code, Message: message, Details: details}})
}

func badRequest(w http.ResponseWriter, message string, err error) {
	details := ""
	if err != nil {
		details = err.Error()
	}
	fail(w, http.StatusBadRequest, "BAD_REQUEST", message, details)
}
