package exchange

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestServesIndexFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	content := "<!DOCTYPE html><html><body>exchange</body></html>"
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write index.html: %v", err)
	}

	router := gin.New()
	router.GET("/exchange", Handler(dir))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exchange", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if rec.Body.String() != content {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type: %s", ct)
	}
}

func TestMissingFileReturns404(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/exchange", Handler(t.TempDir()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/exchange", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
