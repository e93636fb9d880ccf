package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/querykit/internal/api"
	"github.com/phrazzld/querykit/internal/api/middleware"
	"github.com/phrazzld/querykit/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newClient(t *testing.T, secret string) *client {
	t.Helper()
	st := testdb.NewStore(t)
	srv := httptest.NewServer(api.NewRouter(st, api.RouterConfig{
		JWTSecret: secret,
		Logger:    testdb.Logger(t),
	}))
	t.Cleanup(srv.Close)
	return &client{t: t, server: srv}
}

func (c *client) do(method, path string, params url.Values, body string) (int, []byte) {
	c.t.Helper()
	u := c.server.URL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequest(method, u, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, raw
}

func (c *client) records(method, path string, params url.Values, body string, wantStatus int) []map[string]any {
	c.t.Helper()
	status, raw := c.do(method, path, params, body)
	require.Equal(c.t, wantStatus, status, string(raw))
	var recs []map[string]any
	require.NoError(c.t, json.Unmarshal(raw, &recs))
	return recs
}

func (c *client) failure(method, path string, params url.Values, body string, wantStatus int) map[string]any {
	c.t.Helper()
	status, raw := c.do(method, path, params, body)
	require.Equal(c.t, wantStatus, status, string(raw))
	var resp map[string]any
	require.NoError(c.t, json.Unmarshal(raw, &resp))
	return resp
}

func seed(c *client) {
	c.records(http.MethodPost, "/api/users", nil, `[
		{"username": "ann", "email": "ann@x.com", "age": 17},
		{"username": "bob", "email": "bob@y.org", "age": 25},
		{"username": "eve", "email": "eve@x.com", "age": 15}
	]`, http.StatusCreated)
}

func usernames(recs []map[string]any) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i], _ = r["username"].(string)
	}
	return out
}

func TestRecordHandler_Find(t *testing.T) {
	c := newClient(t, "")
	seed(c)

	tests := []struct {
		name   string
		params url.Values
		want   []string
	}{
		{"all", url.Values{"order": {"id"}}, []string{"ann", "bob", "eve"}},
		{"contains", url.Values{"where": {"email~@x.com"}, "order": {"id"}}, []string{"ann", "eve"}},
		{"and", url.Values{"where": {"email~@x.com", "age>16"}}, []string{"ann"}},
		{"or", url.Values{"where": {"username=bob", "age<16"}, "any": {"true"}, "order": {"age:desc"}}, []string{"bob", "eve"}},
		{"window", url.Values{"order": {"username"}, "limit": {"1"}, "offset": {"1"}}, []string{"bob"}},
		{"limit zero", url.Values{"limit": {"0"}}, []string{}},
		{"offset past end", url.Values{"offset": {"10"}}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := c.records(http.MethodGet, "/api/users", tt.params, "", http.StatusOK)
			assert.Equal(t, tt.want, usernames(recs))
		})
	}
}

func TestRecordHandler_Insert(t *testing.T) {
	c := newClient(t, "")

	recs := c.records(http.MethodPost, "/api/tasks", nil, `{"title": "write report"}`, http.StatusCreated)
	require.Len(t, recs, 1)
	assert.Equal(t, "write report", recs[0]["title"])
	assert.Equal(t, false, recs[0]["done"])
	assert.Nil(t, recs[0]["category_id"])
	assert.NotEmpty(t, recs[0]["created_at"])

	t.Run("duplicate batch is atomic", func(t *testing.T) {
		resp := c.failure(http.MethodPost, "/api/users", nil, `[
			{"username": "a", "email": "same@x.com"},
			{"username": "b", "email": "same@x.com"}
		]`, http.StatusConflict)
		assert.Equal(t, "integrity", resp["kind"])
		assert.Equal(t, "email", resp["field"])
		assert.NotEmpty(t, resp["trace_id"])

		assert.Empty(t, c.records(http.MethodGet, "/api/users", nil, "", http.StatusOK))
	})

	t.Run("missing reference", func(t *testing.T) {
		resp := c.failure(http.MethodPost, "/api/tasks", nil,
			`{"title": "x", "category_id": 99}`, http.StatusConflict)
		assert.Equal(t, "category_id", resp["field"])
	})

	badBodies := map[string]string{
		"malformed":        `{"title": `,
		"scalar":           `42`,
		"array of scalars": `[1, 2]`,
		"unknown field":    `{"title": "x", "colour": "red"}`,
		"type mismatch":    `{"title": 7}`,
		"missing required": `{"done": true}`,
		"empty batch":      `[]`,
		"two documents":    `{"title": "a"} {"title": "b"}`,
	}
	for name, body := range badBodies {
		t.Run(name, func(t *testing.T) {
			resp := c.failure(http.MethodPost, "/api/tasks", nil, body, http.StatusBadRequest)
			assert.Equal(t, "configuration", resp["kind"])
		})
	}
}

func TestRecordHandler_UpdateAndDelete(t *testing.T) {
	c := newClient(t, "")
	seed(c)

	recs := c.records(http.MethodPatch, "/api/users", url.Values{"where": {"age<18"}}, `{"age": 18}`, http.StatusOK)
	assert.Equal(t, []string{"ann", "eve"}, usernames(recs))
	assert.EqualValues(t, 18, recs[0]["age"])

	recs = c.records(http.MethodPatch, "/api/users", url.Values{"where": {"username=nobody"}}, `{"age": 1}`, http.StatusOK)
	assert.Empty(t, recs)

	resp := c.failure(http.MethodPatch, "/api/users", nil, `{"age": 1}`, http.StatusBadRequest)
	assert.Equal(t, "configuration", resp["kind"])

	resp = c.failure(http.MethodPatch, "/api/users", url.Values{"where": {"username=bob"}},
		`{"email": "ann@x.com"}`, http.StatusConflict)
	assert.Equal(t, "email", resp["field"])

	recs = c.records(http.MethodPatch, "/api/users", url.Values{"all": {"true"}}, `{"age": 30}`, http.StatusOK)
	assert.Len(t, recs, 3)

	c.failure(http.MethodDelete, "/api/users", nil, "", http.StatusBadRequest)
	c.failure(http.MethodDelete, "/api/users", url.Values{"all": {"true"}, "where": {"age>1"}}, "", http.StatusBadRequest)

	recs = c.records(http.MethodDelete, "/api/users", url.Values{"where": {"username=eve"}}, "", http.StatusOK)
	assert.Equal(t, []string{"eve"}, usernames(recs))
	recs = c.records(http.MethodDelete, "/api/users", url.Values{"where": {"username=eve"}}, "", http.StatusOK)
	assert.Empty(t, recs)

	recs = c.records(http.MethodDelete, "/api/users", url.Values{"all": {"true"}}, "", http.StatusOK)
	assert.Len(t, recs, 2)
}

func TestRecordHandler_Join(t *testing.T) {
	c := newClient(t, "")
	c.records(http.MethodPost, "/api/categories", nil, `{"name": "work"}`, http.StatusCreated)
	c.records(http.MethodPost, "/api/tasks", nil,
		`[{"title": "report", "category_id": 1}, {"title": "loose"}]`, http.StatusCreated)

	recs := c.records(http.MethodGet, "/api/tasks/join/categories",
		url.Values{"fields": {"title,category.name=category"}, "order": {"id"}}, "", http.StatusOK)
	assert.Equal(t, []map[string]any{
		{"title": "report", "category": "work"},
		{"title": "loose", "category": nil},
	}, recs)

	recs = c.records(http.MethodGet, "/api/tasks/join/categories",
		url.Values{"on": {"category_id=id"}, "where": {"title=loose"}}, "", http.StatusOK)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0], "category.name")

	c.failure(http.MethodGet, "/api/users/join/categories", nil, "", http.StatusBadRequest)
}

func TestRecordHandler_UnknownEntity(t *testing.T) {
	c := newClient(t, "")
	resp := c.failure(http.MethodGet, "/api/widgets", nil, "", http.StatusBadRequest)
	assert.Equal(t, "configuration", resp["kind"])
	assert.Contains(t, resp["error"], "unknown entity")
}

func TestRouter_Health(t *testing.T) {
	c := newClient(t, testSecret)
	status, body := c.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))
}

func TestRouter_Authentication(t *testing.T) {
	c := newClient(t, testSecret)

	resp := c.failure(http.MethodGet, "/api/users", nil, "", http.StatusUnauthorized)
	assert.Equal(t, "Authorization header required", resp["error"])

	c.token = "not-a-jwt"
	resp = c.failure(http.MethodGet, "/api/users", nil, "", http.StatusUnauthorized)
	assert.Equal(t, "Invalid token", resp["error"])

	wrong, err := middleware.IssueToken("another-secret-another-secret-xx", "tester", time.Hour)
	require.NoError(t, err)
	c.token = wrong
	c.failure(http.MethodGet, "/api/users", nil, "", http.StatusUnauthorized)

	c.token, err = middleware.IssueToken(testSecret, "tester", time.Hour)
	require.NoError(t, err)
	assert.Empty(t, c.records(http.MethodGet, "/api/users", nil, "", http.StatusOK))
}
