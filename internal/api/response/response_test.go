package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env
}

func TestWriters(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
	}{
		{"ok", func(w http.ResponseWriter) { OK(w, "x") }, http.StatusOK},
		{"created", func(w http.ResponseWriter) { Created(w, "x") }, http.StatusCreated},
		{"accepted", Accepted, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("content type = %q", ct)
			}
			if env := decode(t, rec); env.Data == nil || env.Error != nil {
				t.Errorf("envelope = %+v", env)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, http.StatusNotFound, CodeNotFound, "rule not found")

	env := decode(t, rec)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if env.Error == nil || env.Error.Code != CodeNotFound || env.Error.Message != "rule not found" {
		t.Errorf("error = %+v", env.Error)
	}
	if env.Data != nil {
		t.Errorf("data = %v, want none", env.Data)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxBytes int64
		ok       bool
		status   int
		code     string
	}{
		{"valid", `{"name":"lcp"}`, 64, true, http.StatusOK, ""},
		{"malformed", `{"name":`, 64, false, http.StatusBadRequest, CodeBadRequest},
		{"too large", `{"name":"` + strings.Repeat("a", 100) + `"}`, 32, false, http.StatusRequestEntityTooLarge, CodePayloadTooLarge},
		{"default limit", `{"name":"lcp"}`, 0, true, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))

			var v struct {
				Name string `json:"name"`
			}
			if got := Decode(rec, req, tt.maxBytes, &v); got != tt.ok {
				t.Fatalf("Decode = %v, want %v", got, tt.ok)
			}
			if tt.ok {
				if v.Name != "lcp" {
					t.Errorf("name = %q", v.Name)
				}
				return
			}
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if env := decode(t, rec); env.Error == nil || env.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", env.Error, tt.code)
			}
		})
	}
}
