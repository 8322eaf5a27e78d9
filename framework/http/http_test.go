package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gohttp "github.com/km-arc/go-controllers/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newResponse(t *testing.T) (*gohttp.Response, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	return gohttp.NewResponse(rr), rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&m))
	return m
}

// ── Response ─────────────────────────────────────────────────────────────────

func TestResponse_JSON(t *testing.T) {
	res, rr := newResponse(t)
	res.JSON(http.StatusOK, map[string]any{"key": "val"})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "val", decodeJSON(t, rr)["key"])
}

func TestResponse_Envelopes(t *testing.T) {
	tests := []struct {
		name    string
		write   func(*gohttp.Response)
		status  int
		key     string
		message string
	}{
		{"success", func(r *gohttp.Response) { r.Success(1) }, http.StatusOK, "data", ""},
		{"created", func(r *gohttp.Response) { r.Created(1) }, http.StatusCreated, "data", ""},
		{"error", func(r *gohttp.Response) { r.Error(http.StatusBadRequest, "bad") }, http.StatusBadRequest, "message", "bad"},
		{"unauthorized", func(r *gohttp.Response) { r.Unauthorized() }, http.StatusUnauthorized, "message", "Unauthenticated."},
		{"forbidden", func(r *gohttp.Response) { r.Forbidden("nope") }, http.StatusForbidden, "message", "nope"},
		{"not found", func(r *gohttp.Response) { r.NotFound() }, http.StatusNotFound, "message", "Not found."},
		{"unavailable", func(r *gohttp.Response) { r.ServiceUnavailable() }, http.StatusServiceUnavailable, "message", "Service Unavailable."},
		{"server error", func(r *gohttp.Response) { r.ServerError() }, http.StatusInternalServerError, "message", "Server Error."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, rr := newResponse(t)
			tt.write(res)

			assert.Equal(t, tt.status, rr.Code)
			body := decodeJSON(t, rr)
			require.Contains(t, body, tt.key)
			if tt.message != "" {
				assert.Equal(t, tt.message, body[tt.key])
			}
		})
	}
}

func TestResponse_NoContent(t *testing.T) {
	res, rr := newResponse(t)
	res.NoContent()

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rr.Body.Len())
}

// ── Request ──────────────────────────────────────────────────────────────────

type signup struct {
	Name  string `json:"name" validate:"required,min=2"`
	Email string `json:"email" validate:"required,email"`
}

func TestRequest_BindValid(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Ada","email":"ada@example.com"}`))

	var body signup
	require.NoError(t, gohttp.NewRequest(r).Bind(&body))
	assert.Equal(t, "Ada", body.Name)
}

func TestRequest_BindInvalidBecomes422(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"A","email":"nope"}`))

	var body signup
	err := gohttp.NewRequest(r).Bind(&body)
	require.Error(t, err)

	res, rr := newResponse(t)
	res.ValidationError(err)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	bag, ok := decodeJSON(t, rr)["errors"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"min"}, bag["name"])
	assert.Equal(t, []any{"email"}, bag["email"])
}

func TestRequest_BindErrors(t *testing.T) {
	empty := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.EqualError(t, gohttp.NewRequest(empty).Bind(&signup{}), "empty request body")

	broken := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	err := gohttp.NewRequest(broken).Bind(&signup{})
	require.Error(t, err)

	res, rr := newResponse(t)
	res.ValidationError(err)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "decode errors are not validation errors")
}

func TestResponse_ValidationErrorPlainError(t *testing.T) {
	res, rr := newResponse(t)
	res.ValidationError(errors.New("boom"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRequest_Accessors(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/users/42?page=3", nil)
	r.Header.Set("Authorization", "Bearer abc")
	r.Header.Set("X-Trace", "t1")

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "42")
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	req := gohttp.NewRequest(r)
	assert.Equal(t, "3", req.Query("page"))
	assert.Equal(t, "10", req.Query("limit", "10"))
	assert.Equal(t, "42", req.RouteParam("id"))
	assert.Equal(t, "abc", req.BearerToken())
	assert.Equal(t, "t1", req.Header("X-Trace"))
	assert.Equal(t, http.MethodGet, req.Method())
	assert.Equal(t, "/users/42", req.Path())
	assert.Same(t, r, req.Raw())
}

func TestRequest_BearerTokenMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic xyz")
	assert.Empty(t, gohttp.NewRequest(r).BearerToken())
}
