package handlers

import (
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/rcampos/macrodesk/pkg/logger"
)

func TestExpectedRelease_BadRequests(t *testing.T) {
	h := NewRegistryHandler(nil, nil, logger.NewNop())

	cases := []struct {
		name string
		vars map[string]string
		url  string
	}{
		{"non-numeric id", map[string]string{"id": "abc"}, "/api/series/abc/release?date=2025-01-03"},
		{"missing date", map[string]string{"id": "7"}, "/api/series/7/release"},
		{"malformed date", map[string]string{"id": "7"}, "/api/series/7/release?date=03/01/2025"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := mux.SetURLVars(httptest.NewRequest("GET", c.url, nil), c.vars)
			rr := httptest.NewRecorder()
			h.ExpectedRelease(rr, req)
			if rr.Code != 400 {
				t.Errorf("status = %d, want 400", rr.Code)
			}
		})
	}
}
