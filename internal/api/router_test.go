package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/ledgr/internal/api/middleware"
	"github.com/dvloznov/ledgr/internal/blobstore/inmemory"
	"github.com/dvloznov/ledgr/internal/syncer"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() (*gin.Engine, *inmemory.Store) {
	store := inmemory.NewStore()
	return NewRouter(syncer.NewReconciler(store), zerolog.Nop(), nil), store
}

func do(r http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.UserIDHeader, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestSync_RequiresUser(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/api/sync", "", `{"version":1}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSync_PushThenPull(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/api/sync", "user-1", `{"version":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"version":0}`, w.Body.String())

	snapshot := `{"version":5,"accounts":[{"id":1,"bank":"hdfc","type":"bank"}],"transactions":[]}`
	w = do(r, http.MethodPost, "/api/sync", "user-1", snapshot)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"version":5}`, w.Body.String())

	w = do(r, http.MethodPost, "/api/sync", "user-1", `{"version":2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "transactions")
	assert.JSONEq(t, `5`, string(body["version"]))
	assert.JSONEq(t, `[{"id":1,"bank":"hdfc","type":"bank"}]`, string(body["accounts"]))
}

func TestSync_BadBody(t *testing.T) {
	r, _ := newTestRouter()

	w := do(r, http.MethodPost, "/api/sync", "user-1", `{"nothing":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/sync", "user-1", `{"version":-4}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSync_RemoteFailure(t *testing.T) {
	r, store := newTestRouter()
	store.FailOn("ListFiles", errors.New("token expired"))

	w := do(r, http.MethodPost, "/api/sync", "user-1", `{"version":3}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"sync"`)
	assert.Contains(t, w.Body.String(), "token expired")
}

func TestListBackups(t *testing.T) {
	r, _ := newTestRouter()

	for _, v := range []string{"3", "7", "5"} {
		w := do(r, http.MethodPost, "/api/sync", "user-1", `{"version":`+v+`,"accounts":[],"transactions":[]}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(r, http.MethodGet, "/api/backups", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		CreatedAt  string `json:"createdAt"`
		ModifiedAt string `json:"modifiedAt"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "backup_7.json", list[0].Name)
	assert.Equal(t, "backup_3.json", list[2].Name)
	assert.NotEmpty(t, list[0].ID)
	assert.NotEmpty(t, list[0].CreatedAt)

	w = do(r, http.MethodGet, "/api/backups?limit=1", "user-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = do(r, http.MethodGet, "/api/backups?limit=abc", "user-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/backups", "user-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}
