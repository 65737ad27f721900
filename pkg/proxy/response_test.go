package proxy

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteJSONResponse(t *testing.T) {
	secret := "abc"

	tests := []struct {
		name     string
		data     any
		wantBody string
	}{
		{name: "string secret", data: &secret, wantBody: `"abc"`},
		{name: "empty secret", data: "", wantBody: `""`},
		{name: "disabled", data: (*string)(nil), wantBody: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			if err := WriteJSONResponse(w, http.StatusOK, tt.data); err != nil {
				t.Fatalf("WriteJSONResponse() error = %v", err)
			}
			if w.Code != http.StatusOK {
				t.Errorf("Status code = %v, want %v", w.Code, http.StatusOK)
			}
			if got := w.Header().Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %v, want application/json", got)
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body = %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestWriteJSONResponse_Unencodable(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteJSONResponse(w, http.StatusOK, make(chan int)); err == nil {
		t.Error("WriteJSONResponse() should fail for a channel")
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}

func TestWriteText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteText(w, http.StatusNotFound, "Not found or not available")

	if w.Code != http.StatusNotFound {
		t.Errorf("Status code = %v, want %v", w.Code, http.StatusNotFound)
	}
	if got := w.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Body.String(); got != "Not found or not available" {
		t.Errorf("body = %q", got)
	}
}

func TestWritePreflight(t *testing.T) {
	w := httptest.NewRecorder()
	WritePreflight(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %v, want %v", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); got != ProxyTokenHeader {
		t.Errorf("Access-Control-Allow-Headers = %q, want %q", got, ProxyTokenHeader)
	}
}
