package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keelhq/schema-content/pkg/schemacontent"
	"github.com/keelhq/schema-content/pkg/schemacontent/api"
	"github.com/keelhq/schema-content/pkg/schemacontent/repo/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, err := schemacontent.New(schemacontent.WithRepository(memory.New()))
	require.NoError(t, err)

	contentHandler := api.NewContentHandler(svc)
	blueprintHandler := api.NewBlueprintHandler(svc)

	r := chi.NewRouter()
	r.Mount("/blueprints", blueprintHandler.Routes())
	r.Mount("/blueprints/{id}/content", contentHandler.BlueprintRoutes())
	r.Mount("/content", contentHandler.Routes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body interface{}, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func adminHeaders() map[string]string {
	return map[string]string{
		api.HeaderRole:   "admin",
		api.HeaderUserID: "admin-1",
	}
}

func createBlueprintHTTP(t *testing.T, srv *httptest.Server) schemacontent.Blueprint {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/blueprints", map[string]interface{}{
		"name": "Article",
		"fields": []map[string]interface{}{
			{"name": "Title", "key": "title", "type": "text", "required": true},
			{"name": "Body", "key": "body", "type": "richtext"},
			{"name": "Notes", "key": "notes", "type": "text", "view_permission": "editorial"},
		},
		"settings": map[string]interface{}{"versioning": true},
	}, adminHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var bp schemacontent.Blueprint
	require.NoError(t, json.Unmarshal(body, &bp))
	return bp
}

func createContentHTTP(t *testing.T, srv *httptest.Server, blueprintID, title string) schemacontent.Content {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/content", map[string]interface{}{
		"blueprint_id": blueprintID,
		"data":         map[string]interface{}{"title": title},
	}, adminHeaders())
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var doc schemacontent.Content
	require.NoError(t, json.Unmarshal(body, &doc))
	return doc
}

func TestBlueprintEndpoints(t *testing.T) {
	srv := newTestServer(t)
	bp := createBlueprintHTTP(t, srv)

	// Role-filtered read: the gated field is absent without the tag.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/blueprints/"+bp.ID.String(), nil,
		map[string]string{api.HeaderRole: "viewer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var viewer schemacontent.Blueprint
	require.NoError(t, json.Unmarshal(body, &viewer))
	assert.Len(t, viewer.Fields, 2)

	// Permission header grants visibility.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/blueprints/"+bp.ID.String(), nil,
		map[string]string{api.HeaderRole: "editor", api.HeaderRolePermissions: "editorial"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var editor schemacontent.Blueprint
	require.NoError(t, json.Unmarshal(body, &editor))
	assert.Len(t, editor.Fields, 3)

	// List
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/blueprints", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []schemacontent.Blueprint
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	// Unknown ID
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/blueprints/3e9f0e46-1ad3-4a85-9a37-6f07a754c3a0", nil, adminHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Malformed ID
	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/blueprints/not-a-uuid", nil, adminHeaders())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBlueprintValidationResponse(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/blueprints", map[string]interface{}{
		"name": "",
		"fields": []map[string]interface{}{
			{"key": "a", "type": "text"},
			{"key": "a", "type": "text"},
		},
	}, adminHeaders())
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Len(t, errResp.Violations, 2)
}

func TestContentLifecycleOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	bp := createBlueprintHTTP(t, srv)
	doc := createContentHTTP(t, srv, bp.ID.String(), "First Post")

	assert.Equal(t, "first-post", doc.Slug)
	assert.Equal(t, schemacontent.ContentStatusDraft, doc.Status)

	base := srv.URL + "/content/" + doc.ID.String()

	// Patch
	resp, body := doJSON(t, http.MethodPatch, base, map[string]interface{}{
		"data":           map[string]interface{}{"body": "<p>hi</p>"},
		"change_summary": "added body",
	}, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var updated schemacontent.Content
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "First Post", updated.Data["title"])
	assert.Equal(t, "<p>hi</p>", updated.Data["body"])

	// Publish
	resp, body = doJSON(t, http.MethodPost, base+"/publish", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var published schemacontent.Content
	require.NoError(t, json.Unmarshal(body, &published))
	assert.Equal(t, schemacontent.ContentStatusPublished, published.Status)

	// Versions: create + patch, no snapshot for publish.
	resp, body = doJSON(t, http.MethodGet, base+"/versions", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var versions []schemacontent.Version
	require.NoError(t, json.Unmarshal(body, &versions))
	require.Len(t, versions, 2)

	// Rollback to the first snapshot.
	resp, body = doJSON(t, http.MethodPost, fmt.Sprintf("%s/rollback/%s", base, versions[0].ID), nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var rolled schemacontent.Content
	require.NoError(t, json.Unmarshal(body, &rolled))
	assert.NotContains(t, rolled.Data, "body")

	// Archive then delete.
	resp, _ = doJSON(t, http.MethodPost, base+"/archive", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, base, nil, adminHeaders())
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, base, nil, adminHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContentSlugConflictStatus(t *testing.T) {
	srv := newTestServer(t)
	bp := createBlueprintHTTP(t, srv)
	createContentHTTP(t, srv, bp.ID.String(), "Same Title")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/content", map[string]interface{}{
		"blueprint_id": bp.ID.String(),
		"data":         map[string]interface{}{"title": "Same Title"},
	}, adminHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestContentPermissionStatuses(t *testing.T) {
	srv := newTestServer(t)
	bp := createBlueprintHTTP(t, srv)

	// Writing a gated field without the tag is forbidden.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/content", map[string]interface{}{
		"blueprint_id": bp.ID.String(),
		"data": map[string]interface{}{
			"title": "Post",
			"notes": "sneaky",
		},
	}, map[string]string{api.HeaderRole: "viewer"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Reads filter rather than fail.
	doc := createContentHTTP(t, srv, bp.ID.String(), "Post")
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/content/"+doc.ID.String(), nil,
		map[string]string{api.HeaderRole: "viewer"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got schemacontent.Content
	require.NoError(t, json.Unmarshal(body, &got))
	assert.NotContains(t, got.Data, "notes")
}

func TestBlueprintScopedContentRoutes(t *testing.T) {
	srv := newTestServer(t)
	bp := createBlueprintHTTP(t, srv)
	createContentHTTP(t, srv, bp.ID.String(), "Alpha")
	createContentHTTP(t, srv, bp.ID.String(), "Beta")

	base := srv.URL + "/blueprints/" + bp.ID.String() + "/content"

	resp, body := doJSON(t, http.MethodGet, base, nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []schemacontent.Content
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)

	resp, body = doJSON(t, http.MethodGet, base+"?status=published", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list = nil
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Empty(t, list)

	resp, body = doJSON(t, http.MethodGet, base+"/alpha", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc schemacontent.Content
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "Alpha", doc.Data["title"])

	resp, _ = doJSON(t, http.MethodGet, base+"/missing", nil, adminHeaders())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTransitionConflictStatus(t *testing.T) {
	srv := newTestServer(t)
	bp := createBlueprintHTTP(t, srv)
	doc := createContentHTTP(t, srv, bp.ID.String(), "Post")
	base := srv.URL + "/content/" + doc.ID.String()

	resp, _ := doJSON(t, http.MethodPost, base+"/archive", nil, adminHeaders())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/publish", nil, adminHeaders())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
