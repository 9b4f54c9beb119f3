package resp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]any{"status": "ok"}
	OK(w, data, "req-1", "trace-1")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") != "req-1" {
		t.Errorf("Expected X-Request-ID header, got %q", w.Header().Get("X-Request-ID"))
	}

	var body Response[map[string]any]
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Code != CodeOK || body.Message != "success" {
		t.Errorf("Unexpected envelope: %+v", body)
	}
	if body.Data["status"] != "ok" {
		t.Errorf("Unexpected data: %v", body.Data)
	}
	if body.TraceID != "trace-1" {
		t.Errorf("Expected trace id, got %q", body.TraceID)
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusNotFound, CodeNotFound, "not found", "req-2", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if _, ok := body["data"]; ok {
		t.Error("Error response should not carry data")
	}
	if int(body["code"].(float64)) != CodeNotFound {
		t.Errorf("Unexpected code: %v", body["code"])
	}
}

func TestHTTPStatusFromCode(t *testing.T) {
	testCases := map[int]int{
		CodeOK:              http.StatusOK,
		CodeInvalidParam:    http.StatusBadRequest,
		CodeUnauthorized:    http.StatusUnauthorized,
		CodeForbidden:       http.StatusForbidden,
		CodeNotFound:        http.StatusNotFound,
		CodeConflict:        http.StatusConflict,
		CodeTooManyRequests: http.StatusTooManyRequests,
		CodeTimeout:         http.StatusGatewayTimeout,
		CodeInternalError:   http.StatusInternalServerError,
		99999:               http.StatusInternalServerError,
	}

	for code, expected := range testCases {
		if got := HTTPStatusFromCode(code); got != expected {
			t.Errorf("code %d: expected %d, got %d", code, expected, got)
		}
	}
}
