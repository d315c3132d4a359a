package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chenjuwe/photo-dedup/internal/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(config.Load(), "127.0.0.1", 0)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d; want 200", rec.Code)
	}
}

func TestRegisterAndGroupFlow(t *testing.T) {
	s := newTestServer(t)

	pix := make([]byte, 32*32*4)
	for i := 0; i < 32*32; i++ {
		pix[i*4] = byte(i % 256)
		pix[i*4+1] = byte(i % 256)
		pix[i*4+2] = byte(i % 256)
		pix[i*4+3] = 255
	}

	for _, id := range []string{"a", "b"} {
		body, _ := json.Marshal(map[string]any{
			"id":     id,
			"pixels": pix,
			"width":  32,
			"height": 32,
		})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/photos", bytes.NewReader(body))
		s.Router().ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("register %s: status = %d: %s", id, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/groups", bytes.NewReader([]byte(`{"threshold":90}`)))
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("groups: status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("group count = %d; want 1 (identical photos)", resp.Count)
	}
}
