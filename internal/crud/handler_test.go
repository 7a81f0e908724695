package crud

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/manifest-festivals/manifest/internal/testinfra"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testinfra.NewDB(t)
	seedCountries(t, db, 3)

	r := gin.New()
	NewHandler(newCountryService(db, nil)).SetupRoutes(r, "/country")
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerList(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/country?page=0&pageSize=2&includeTotalCount=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Items      []map[string]any `json:"items"`
		TotalCount int              `json:"totalCount"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 3, result.TotalCount)
}

func TestHandlerListRejectsBadPaging(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodGet, "/country?pageSize=0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerGet(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/country/1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/country/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/country/abc", "").Code)
}

func TestHandlerInsertAndUpdate(t *testing.T) {
	r := newTestRouter(t)

	w := do(r, http.MethodPost, "/country", `{"name":"Slovenia"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Slovenia"`)

	w = do(r, http.MethodPost, "/country", `{}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "is required", body.Fields["Name"])

	w = do(r, http.MethodPut, "/country/1", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Renamed"`)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/country/99", `{"name":"X"}`).Code)
}

func TestHandlerDelete(t *testing.T) {
	r := newTestRouter(t)

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/country/2", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/country/2", "").Code)
}

func TestRespondErrorValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, "ticket", Invalid("Ticket already redeemed."))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Ticket already redeemed."}`, w.Body.String())
}
