package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/sheetsync/sheetsync/backend/go-services/internal/document/service"
)

// userAs injects userId the way the auth middleware would.
func userAs(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	}
}

func newAPI(t *testing.T, svc *service.Service, userID string) *gin.Engine {
	t.Helper()
	g := gin.New()
	grp := g.Group("/api/document", userAs(userID))
	RegisterDocumentRoutes(grp, svc, nil)
	return g
}

func doJSON(g *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestGetAll_ReturnsOwnedOnly(t *testing.T) {
	svc := service.NewMemoryService()
	ctx := context.Background()
	_, _, err := svc.Open(ctx, "d1", "u1", "Mine")
	require.NoError(t, err)
	_, _, err = svc.Open(ctx, "d2", "u2", "Theirs")
	require.NoError(t, err)

	w := doJSON(newAPI(t, svc, "u1"), http.MethodGet, "/api/document/GetAll", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var docs []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)
	require.Equal(t, "d1", docs[0]["id"])
}

func TestChangeViewMode(t *testing.T) {
	svc := service.NewMemoryService()
	_, _, err := svc.Open(context.Background(), "d1", "u1", "")
	require.NoError(t, err)

	// owner succeeds
	w := doJSON(newAPI(t, svc, "u1"), http.MethodPost, "/api/document/ChangeViewMode",
		`{"documentId":"d1","viewMode":"view"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	// invalid mode rejected before any store access
	w = doJSON(newAPI(t, svc, "u1"), http.MethodPost, "/api/document/ChangeViewMode",
		`{"documentId":"d1","viewMode":"public"}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// non-owner rejected
	w = doJSON(newAPI(t, svc, "u2"), http.MethodPost, "/api/document/ChangeViewMode",
		`{"documentId":"d1","viewMode":"edit"}`, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	// unknown document
	w = doJSON(newAPI(t, svc, "u1"), http.MethodPost, "/api/document/ChangeViewMode",
		`{"documentId":"nope","viewMode":"edit"}`, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestAndGrantFlow(t *testing.T) {
	svc := service.NewMemoryService()
	_, _, err := svc.Open(context.Background(), "d1", "u1", "")
	require.NoError(t, err)

	// u3 requests access twice; listed once
	w := doJSON(newAPI(t, svc, "u3"), http.MethodPost, "/api/document/RequestAccess", `{"documentId":"d1"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(newAPI(t, svc, "u3"), http.MethodPost, "/api/document/RequestAccess", `{"documentId":"d1"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(newAPI(t, svc, "u1"), http.MethodGet, "/api/document/GetRequests", "",
		map[string]string{"documentId": "d1"})
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Requests []string `json:"requests"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Equal(t, []string{"u3"}, listing.Requests)

	// non-owner cannot list requests
	w = doJSON(newAPI(t, svc, "u3"), http.MethodGet, "/api/document/GetRequests", "",
		map[string]string{"documentId": "d1"})
	require.Equal(t, http.StatusForbidden, w.Code)

	// owner grants editor; request cleared
	w = doJSON(newAPI(t, svc, "u1"), http.MethodPost, "/api/document/AddEditor",
		`{"documentId":"d1","userIdToAdd":"u3"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(newAPI(t, svc, "u1"), http.MethodGet, "/api/document/GetRequests", "",
		map[string]string{"documentId": "d1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Empty(t, listing.Requests)
}

func TestAddViewer_KeepsEditor(t *testing.T) {
	svc := service.NewMemoryService()
	ctx := context.Background()
	_, _, err := svc.Open(ctx, "d1", "u1", "")
	require.NoError(t, err)
	_, err = svc.GrantEditor(ctx, "d1", "u1", "u2")
	require.NoError(t, err)

	w := doJSON(newAPI(t, svc, "u1"), http.MethodPost, "/api/document/AddViewer",
		`{"documentId":"d1","userIdToAdd":"u2"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Document struct {
			Editors []string `json:"editors"`
			Viewers []string `json:"viewers"`
		} `json:"document"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Contains(t, resp.Document.Editors, "u2")
	require.Contains(t, resp.Document.Viewers, "u2")
}

func TestGrant_NonOwnerForbidden(t *testing.T) {
	svc := service.NewMemoryService()
	_, _, err := svc.Open(context.Background(), "d1", "u1", "")
	require.NoError(t, err)

	w := doJSON(newAPI(t, svc, "u2"), http.MethodPost, "/api/document/AddEditor",
		`{"documentId":"d1","userIdToAdd":"u2"}`, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestPresence_Unconfigured(t *testing.T) {
	svc := service.NewMemoryService()
	w := doJSON(newAPI(t, svc, "u1"), http.MethodGet, "/api/document/d1/presence", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
