//go:build !swagger

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMountSwagger_DefaultBuildServesNoDocs(t *testing.T) {
	r := chi.NewRouter()
	// chi panics when routing on a mux with zero handlers
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	MountSwagger(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/index.html", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without the swagger build tag, got %d", w.Code)
	}
}
