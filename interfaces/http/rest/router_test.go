package rest_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cosmos-backend/application/queries"
	"cosmos-backend/infrastructure/config"
	"cosmos-backend/infrastructure/di"
	"cosmos-backend/interfaces/http/rest/handlers"
)

type apiClient struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPI(t *testing.T) *apiClient {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "cosmos.db")
	cfg.Logging.Level = "error"

	container, cleanup, err := di.InitializeContainer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(cleanup)

	srv := httptest.NewServer(container.Router.Setup())
	t.Cleanup(srv.Close)
	return &apiClient{t: t, srv: srv}
}

func (c *apiClient) do(method, path string, body interface{}) (int, []byte) {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.srv.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.srv.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, data
}

func (c *apiClient) decode(method, path string, body interface{}, wantStatus int, out interface{}) {
	c.t.Helper()
	status, data := c.do(method, path, body)
	require.Equal(c.t, wantStatus, status, string(data))
	if out != nil {
		require.NoError(c.t, json.Unmarshal(data, out))
	}
}

func (c *apiClient) createWorld(name string) queries.WorldView {
	c.t.Helper()
	var world queries.WorldView
	c.decode(http.MethodPost, "/api/cosmos/worlds", map[string]interface{}{
		"name":        name,
		"seed_prompt": "a quiet harbour town",
	}, http.StatusCreated, &world)
	return world
}

func (c *apiClient) timelines(worldID string) []queries.TimelineView {
	c.t.Helper()
	var result queries.ListTimelinesResult
	c.decode(http.MethodGet, "/api/cosmos/world/"+worldID+"/timelines", nil, http.StatusOK, &result)
	return result.Items
}

func (c *apiClient) branch(worldID string, parent interface{}, title string) queries.TimelineView {
	c.t.Helper()
	var timeline queries.TimelineView
	c.decode(http.MethodPost, "/api/cosmos/branch", map[string]interface{}{
		"world_id":           worldID,
		"parent_timeline_id": parent,
		"title":              title,
		"branch_prompt":      "what if " + title,
	}, http.StatusCreated, &timeline)
	return timeline
}

func (c *apiClient) share(body map[string]interface{}) string {
	c.t.Helper()
	var resp handlers.ShareResponse
	c.decode(http.MethodPost, "/api/open-cosmos/share", body, http.StatusCreated, &resp)
	assert.Equal(c.t, handlers.ShareMessage, resp.Message)
	return resp.PackageName
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	return body.Code
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		files[f.Name] = content
	}
	return files
}

func TestHealthReadyAndMetrics(t *testing.T) {
	api := newAPI(t)

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		status, _ := api.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, status, path)
	}

	status, data := api.do(http.MethodGet, "/api/cosmos/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(data), `"error":true`)
}

func TestCreateWorldStartsWithRootTimeline(t *testing.T) {
	api := newAPI(t)

	world := api.createWorld("Harbour")
	assert.Equal(t, "Harbour", world.Name)
	assert.Equal(t, 60, world.Warmth)
	_, err := uuid.Parse(world.ID)
	require.NoError(t, err)

	items := api.timelines(world.ID)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ParentTimelineID)
	assert.Equal(t, "active", items[0].Status)

	var fetched queries.WorldView
	api.decode(http.MethodGet, "/api/cosmos/world/"+world.ID+"/", nil, http.StatusOK, &fetched)
	assert.Equal(t, world.ID, fetched.ID)

	var listing queries.ListWorldsResult
	api.decode(http.MethodGet, "/api/cosmos/worlds", nil, http.StatusOK, &listing)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, 1, listing.Storage.Worlds)
	assert.Equal(t, 1, listing.Storage.Timelines)
	assert.False(t, listing.Storage.Warning)
}

func TestCreateWorldValidation(t *testing.T) {
	api := newAPI(t)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"seed_prompt": "x"}},
		{"warmth above range", map[string]interface{}{"name": "W", "warmth": 101}},
		{"warmth below range", map[string]interface{}{"name": "W", "warmth": -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := api.do(http.MethodPost, "/api/cosmos/worlds", tt.body)
			assert.Equal(t, http.StatusBadRequest, status, string(data))
		})
	}
}

func TestBranchParentForms(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Forms")
	root := api.timelines(world.ID)[0]

	for _, parent := range []interface{}{"root", 0, "", nil} {
		t.Run(fmt.Sprintf("%v", parent), func(t *testing.T) {
			child := api.branch(world.ID, parent, "child")
			require.NotNil(t, child.ParentTimelineID)
			assert.Equal(t, root.ID, *child.ParentTimelineID)
		})
	}

	a := api.branch(world.ID, root.ID, "A")
	a1 := api.branch(world.ID, a.ID, "A1")
	require.NotNil(t, a1.ParentTimelineID)
	assert.Equal(t, a.ID, *a1.ParentTimelineID)

	items := api.timelines(world.ID)
	require.Len(t, items, 7)
	assert.Equal(t, root.ID, items[0].ID)
}

func TestBranchErrors(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Errors")

	tests := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{"invalid world id", map[string]interface{}{"world_id": "nope", "title": "x"}, http.StatusBadRequest},
		{"unknown world", map[string]interface{}{"world_id": uuid.NewString(), "title": "x"}, http.StatusNotFound},
		{"invalid parent", map[string]interface{}{"world_id": world.ID, "parent_timeline_id": "zzz", "title": "x"}, http.StatusBadRequest},
		{"unknown parent", map[string]interface{}{"world_id": world.ID, "parent_timeline_id": uuid.NewString(), "title": "x"}, http.StatusNotFound},
		{"numeric parent", map[string]interface{}{"world_id": world.ID, "parent_timeline_id": 5, "title": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, data := api.do(http.MethodPost, "/api/cosmos/branch", tt.body)
			assert.Equal(t, tt.status, status, string(data))
		})
	}
}

func TestConcurrentBranchesAreAllKept(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Busy")

	const n = 12
	statuses := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, _ := api.do(http.MethodPost, "/api/cosmos/branch", map[string]interface{}{
				"world_id": world.ID,
				"title":    fmt.Sprintf("branch %d", i),
			})
			statuses[i] = status
		}(i)
	}
	wg.Wait()

	for i, status := range statuses {
		assert.Equal(t, http.StatusCreated, status, "branch %d", i)
	}
	assert.Len(t, api.timelines(world.ID), n+1)
}

func TestCollapseIsIdempotent(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Collapse")
	api.branch(world.ID, "root", "A")

	for i := 0; i < 2; i++ {
		status, data := api.do(http.MethodPost, "/api/cosmos/world/"+world.ID+"/collapse", nil)
		require.Equal(t, http.StatusNoContent, status, string(data))
	}
	for _, tl := range api.timelines(world.ID) {
		assert.Equal(t, "collapsed", tl.Status)
	}

	var reflection queries.ReflectionView
	api.decode(http.MethodPost, "/api/cosmos/reflection/"+world.ID, nil, http.StatusOK, &reflection)
	assert.Empty(t, reflection.Message)
	assert.Empty(t, reflection.Oracle)
}

func TestReflectAndSearchArchive(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Lanterns")

	var hopeful queries.ReflectionView
	api.decode(http.MethodPost, "/api/cosmos/reflection/"+world.ID+"?warmth=90", nil, http.StatusOK, &hopeful)
	assert.NotEmpty(t, hopeful.Message)
	assert.NotEmpty(t, hopeful.Oracle)
	assert.Equal(t, "hopeful", string(hopeful.Tone))
	assert.NotEmpty(t, hopeful.EntryID)

	status, _ := api.do(http.MethodPost, "/api/cosmos/reflection/"+world.ID+"?warmth=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var first, second queries.ArchiveSearchResult
	api.decode(http.MethodGet, "/api/cosmos/archive?query=lanterns", nil, http.StatusOK, &first)
	api.decode(http.MethodGet, "/api/cosmos/archive?query=LANTERNS", nil, http.StatusOK, &second)
	require.NotEmpty(t, first.Items)
	assert.Equal(t, first.Items, second.Items)
	for i := 1; i < len(first.Items); i++ {
		assert.False(t, first.Items[i].CreatedAt.After(first.Items[i-1].CreatedAt))
	}

	var limited queries.ArchiveSearchResult
	api.decode(http.MethodGet, "/api/cosmos/archive?limit=1", nil, http.StatusOK, &limited)
	assert.Len(t, limited.Items, 1)
}

func TestEternalSeedIsZip(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Seed")
	api.branch(world.ID, "root", "A")

	status, data := api.do(http.MethodGet, "/api/cosmos/world/"+world.ID+"/eternal-seed.zip", nil)
	require.Equal(t, http.StatusOK, status)

	files := readZip(t, data)
	assert.Contains(t, files, "README.txt")
	assert.Contains(t, files, "archive.json")
}

func TestExportIncludesOnlyActiveTimelines(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Pruned")
	api.branch(world.ID, "root", "Gone")

	status, _ := api.do(http.MethodPost, "/api/cosmos/world/"+world.ID+"/collapse", nil)
	require.Equal(t, http.StatusNoContent, status)
	api.branch(world.ID, "root", "Kept")

	name := api.share(map[string]interface{}{"world_id": world.ID, "visibility": "private"})
	assert.True(t, strings.HasSuffix(name, ".agentora"), name)

	status, data := api.do(http.MethodGet, "/api/open-cosmos/download/"+name, nil)
	require.Equal(t, http.StatusOK, status)

	files := readZip(t, data)
	var manifest struct {
		Timelines int `json:"timelines"`
	}
	require.NoError(t, json.Unmarshal(files["manifest.json"], &manifest))
	assert.Equal(t, 1, manifest.Timelines)
	assert.Contains(t, string(files["timelines.json"]), "Kept")
	assert.NotContains(t, string(files["timelines.json"]), "Gone")
}

func TestImportMirrorsExportedTree(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Origin")
	root := api.timelines(world.ID)[0]
	api.branch(world.ID, root.ID, "Branch B")

	name := api.share(map[string]interface{}{
		"world_id":     world.ID,
		"package_name": "origin.agentora",
		"visibility":   "public_with_credits",
	})

	var imported handlers.ImportResponse
	api.decode(http.MethodPost, "/api/open-cosmos/import", map[string]interface{}{"package_name": name}, http.StatusCreated, &imported)
	assert.Equal(t, handlers.ImportMessage, imported.Message)
	assert.Equal(t, 2, imported.ImportedTimelines)
	assert.Equal(t, "merged", imported.Status)
	assert.Equal(t, "all", imported.Decisions)
	assert.NotEqual(t, world.ID, imported.ImportedWorldID)

	var copy queries.WorldView
	api.decode(http.MethodGet, "/api/cosmos/world/"+imported.ImportedWorldID+"/", nil, http.StatusOK, &copy)
	assert.Equal(t, "Origin (Imported)", copy.Name)

	items := api.timelines(imported.ImportedWorldID)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].ParentTimelineID)
	assert.Equal(t, root.Title, items[0].Title)
	require.NotNil(t, items[1].ParentTimelineID)
	assert.Equal(t, items[0].ID, *items[1].ParentTimelineID)
	assert.Equal(t, "Branch B", items[1].Title)

	var merges queries.ListMergesResult
	api.decode(http.MethodGet, "/api/open-cosmos/merges", nil, http.StatusOK, &merges)
	require.Len(t, merges.Items, 1)
	assert.Equal(t, imported.ID, merges.Items[0].ID)
	assert.Equal(t, name, merges.Items[0].SourcePackage)
}

func TestImportRecordsUnmatchedKeepTimelines(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Selective")
	root := api.timelines(world.ID)[0]
	name := api.share(map[string]interface{}{"world_id": world.ID, "package_name": "selective.agentora"})

	missing := uuid.NewString()
	var imported handlers.ImportResponse
	api.decode(http.MethodPost, "/api/open-cosmos/import", map[string]interface{}{
		"package_name":   name,
		"keep_timelines": []string{root.ID, missing},
	}, http.StatusCreated, &imported)

	assert.Equal(t, 1, imported.ImportedTimelines)
	assert.Equal(t, "merged_with_conflicts", imported.Status)
	require.Len(t, imported.Conflicts, 1)
	assert.Equal(t, missing, imported.Conflicts[0].Title)
	assert.Equal(t, "not_in_package", imported.Conflicts[0].Resolution)
}

func TestPackageNameConflictAndUnknownPackage(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Names")

	body := map[string]interface{}{"world_id": world.ID, "package_name": "taken.agentora"}
	api.share(body)

	status, data := api.do(http.MethodPost, "/api/open-cosmos/share", body)
	assert.Equal(t, http.StatusConflict, status, string(data))

	status, _ = api.do(http.MethodGet, "/api/open-cosmos/download/unknown.agentora", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = api.do(http.MethodPost, "/api/open-cosmos/import", map[string]interface{}{"package_name": "unknown.agentora"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRevokeBlocksImport(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Revoked")
	name := api.share(map[string]interface{}{"world_id": world.ID, "package_name": "revoked.agentora"})

	for i := 0; i < 2; i++ {
		var resp handlers.RevokeResponse
		api.decode(http.MethodPost, "/api/open-cosmos/revoke/"+name, nil, http.StatusOK, &resp)
		assert.True(t, resp.OK)
		assert.Equal(t, name, resp.PackageName)
	}

	status, data := api.do(http.MethodPost, "/api/open-cosmos/import", map[string]interface{}{"package_name": name})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PACKAGE_REVOKED", errorCode(t, data))

	status, _ = api.do(http.MethodGet, "/api/open-cosmos/download/"+name, nil)
	assert.Equal(t, http.StatusForbidden, status)

	var shares queries.ListSharesResult
	api.decode(http.MethodGet, "/api/open-cosmos/shares", nil, http.StatusOK, &shares)
	require.Len(t, shares.Items, 1)
	assert.True(t, shares.Items[0].Revoked)
	assert.NotNil(t, shares.Items[0].RevokedAt)
}

func TestAnonymizedPackageOmitsContributorNames(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Credits")
	contributors := []map[string]string{{"name": "Ana Souza", "role": "storyteller"}}

	anonymized := api.share(map[string]interface{}{
		"world_id":     world.ID,
		"package_name": "anon.agentora",
		"wisdom_mode":  "anonymized",
		"contributors": contributors,
	})
	public := api.share(map[string]interface{}{
		"world_id":     world.ID,
		"package_name": "public.agentora",
		"wisdom_mode":  "full_public",
		"contributors": contributors,
	})

	status, data := api.do(http.MethodGet, "/api/open-cosmos/download/"+anonymized, nil)
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(data), "Ana Souza")
	assert.Contains(t, string(data), "storyteller")

	status, data = api.do(http.MethodGet, "/api/open-cosmos/download/"+public, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(data), "Ana Souza")
}

func TestNetworkListsOnlyListedPackages(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Network")
	contributors := []map[string]string{{"name": "Ana Souza", "role": "storyteller"}}

	api.share(map[string]interface{}{"world_id": world.ID, "package_name": "private.agentora", "visibility": "private"})
	api.share(map[string]interface{}{"world_id": world.ID, "package_name": "anon.agentora", "visibility": "anonymized", "contributors": contributors})
	api.share(map[string]interface{}{"world_id": world.ID, "package_name": "credited.agentora", "visibility": "public_with_credits", "contributors": contributors})
	revoked := api.share(map[string]interface{}{"world_id": world.ID, "package_name": "gone.agentora", "visibility": "public_with_credits"})
	api.decode(http.MethodPost, "/api/open-cosmos/revoke/"+revoked, nil, http.StatusOK, nil)

	var network queries.ListNetworkResult
	api.decode(http.MethodGet, "/api/open-cosmos/network", nil, http.StatusOK, &network)

	byPackage := make(map[string]queries.NetworkEntryView, len(network.Items))
	for _, item := range network.Items {
		byPackage[item.Package] = item
	}
	require.Len(t, byPackage, 2)
	assert.NotContains(t, byPackage, "private.agentora")
	assert.NotContains(t, byPackage, "gone.agentora")

	anon := byPackage["anon.agentora"]
	assert.Equal(t, "Network", anon.Title)
	assert.Equal(t, "local", anon.Peer)
	for _, c := range anon.Credits {
		assert.NotEqual(t, "Ana Souza", c.Name)
	}

	credited := byPackage["credited.agentora"]
	require.NotEmpty(t, credited.Credits)
	assert.Equal(t, "Ana Souza", credited.Credits[0].Name)
}

func TestCreditedShareKeepsNamesOutsideThePackage(t *testing.T) {
	api := newAPI(t)
	world := api.createWorld("Ledger")

	name := api.share(map[string]interface{}{
		"world_id":     world.ID,
		"package_name": "ledger.agentora",
		"visibility":   "public_with_credits",
		"contributors": []map[string]string{{"name": "Ana Souza", "role": "storyteller"}},
	})

	var shares queries.ListSharesResult
	api.decode(http.MethodGet, "/api/open-cosmos/shares", nil, http.StatusOK, &shares)
	require.Len(t, shares.Items, 1)
	assert.Equal(t, "anonymized", shares.Items[0].WisdomMode)
	require.Len(t, shares.Items[0].Credits, 1)
	assert.Equal(t, "Ana Souza", shares.Items[0].Credits[0].Name)

	var network queries.ListNetworkResult
	api.decode(http.MethodGet, "/api/open-cosmos/network", nil, http.StatusOK, &network)
	require.Len(t, network.Items, 1)
	require.Len(t, network.Items[0].Credits, 1)
	assert.Equal(t, "Ana Souza", network.Items[0].Credits[0].Name)

	status, data := api.do(http.MethodGet, "/api/open-cosmos/download/"+name, nil)
	require.Equal(t, http.StatusOK, status)
	members := readZip(t, data)
	require.Contains(t, members, "credits.json")
	assert.NotContains(t, string(members["credits.json"]), "Ana Souza")
	assert.Contains(t, string(members["credits.json"]), "storyteller")
}
