// Package response writes the JSON envelope shared by every API handler.
package response

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// Error codes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// DefaultMaxBodyBytes caps request bodies when a handler sets no limit.
const DefaultMaxBodyBytes = 1 << 20

// Error is the error object of an envelope.
type Error struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// Envelope wraps every JSON body.
type Envelope struct {
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Write encodes env with status.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// JSON writes data with status.
func JSON(w http.ResponseWriter, status int, data any) {
	Write(w, status, Envelope{Data: data})
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes data with 201.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Accepted acknowledges an ingested payload with 202.
func Accepted(w http.ResponseWriter) {
	JSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Fail writes an error envelope.
func Fail(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, Envelope{Error: &Error{Code: code, Message: message}})
}

// Decode reads a JSON body of at most maxBytes into v. On failure it writes
// a 413 or 400 itself and returns false.
func Decode(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) bool {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Fail(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "request body too large")
			return false
		}
		Fail(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}
