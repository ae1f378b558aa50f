package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foodly/storefront/internal/auth"
	"github.com/foodly/storefront/internal/enum"
	"github.com/foodly/storefront/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

var testCustomer = uuid.MustParse("6f1c0c1e-5d5b-4a7c-9a52-0d9f3f3b8a11")

// newAuthedRouter mounts register under prefix behind Authenticate.
func newAuthedRouter(prefix string, register func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret))
		if prefix == "" {
			register(r)
			return
		}
		r.Route(prefix, register)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")

	tok, err := auth.GenerateToken(testSecret, testCustomer, enum.RoleCustomer, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func errorMessage(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rr)["error"]
}
