package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPathID(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantID int64
		wantOK bool
	}{
		{"valid id", "42", 42, true},
		{"not a number", "abc", 0, false},
		{"zero", "0", 0, false},
		{"negative", "-3", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/quizzes/x", nil)
			r.SetPathValue("id", tt.value)
			w := httptest.NewRecorder()

			id, ok := pathID(w, r, "id")
			if ok != tt.wantOK || id != tt.wantID {
				t.Fatalf("pathID(%q) = (%d, %v), want (%d, %v)", tt.value, id, ok, tt.wantID, tt.wantOK)
			}
			if !tt.wantOK && w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 response, got %d", w.Code)
			}
		})
	}
}

func TestStartupProgress(t *testing.T) {
	if IsReady() {
		t.Fatal("server should not be ready before initialization")
	}

	w := httptest.NewRecorder()
	Healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", w.Code)
	}

	CompleteStep("Database connection")
	startupStatus.mu.RLock()
	progress := startupStatus.Progress
	startupStatus.mu.RUnlock()
	if progress == 0 || progress >= 100 {
		t.Fatalf("expected partial progress, got %d", progress)
	}

	MarkReady()
	if !IsReady() {
		t.Fatal("server should be ready after MarkReady")
	}

	w = httptest.NewRecorder()
	Healthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 once ready, got %d", w.Code)
	}
}
