package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	cmd := newRootCmd("test")
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestProvidersListsBuiltinCatalog(t *testing.T) {
	chdir(t)

	out, err := execute(t, "providers", "--json")
	require.NoError(t, err)

	var rows []providerRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"BBC", "CNN", "RT", "NYT", "Guardian", "NPR", "WashingtonPost"}, ids)
	assert.Contains(t, rows[0].Sections, "world")
}

func TestProvidersTable(t *testing.T) {
	chdir(t)

	out, err := execute(t, "providers", "--urls")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "PROVIDER"))
	assert.Contains(t, out, "http://feeds.bbci.co.uk/news/world/rss.xml")
}

func TestRunRejectsUnknownProvider(t *testing.T) {
	chdir(t)

	_, err := execute(t, "run", "--only", "nope")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestRunSinglePass(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news.xml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><item><title>Hello</title></item></channel></rss>`))
	}))
	defer srv.Close()

	dir := chdir(t)
	catalog := filepath.Join(dir, "providers.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
providers:
  - id: Local
    url_template: "`+srv.URL+`/{section}.xml"
    sections: [news, missing]
    profile:
      fields: {title: title}
`), 0o600))

	out := filepath.Join(dir, "out")
	t.Setenv("HARVESTER_PROVIDERS_FILE", catalog)
	t.Setenv("HARVESTER_OUTPUT_DIR", out)
	t.Setenv("HARVESTER_LOG_LEVEL", "error")

	_, err := execute(t, "run", "--once")
	require.NoError(t, err)

	articles, err := os.ReadFile(filepath.Join(out, "Local_articles.json"))
	require.NoError(t, err)
	assert.Contains(t, string(articles), `"title": "Hello"`)
	assert.Contains(t, string(articles), `"section": "news"`)

	failures, err := os.ReadFile(filepath.Join(out, "errorLog.json"))
	require.NoError(t, err)
	assert.Contains(t, string(failures), `"section": "missing"`)
	assert.Contains(t, string(failures), `"error": "Failed to download articles"`)
}

func TestRunPublishesRoutedEvents(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news.xml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`<rss version="2.0"><channel><item><title>Hello</title></item></channel></rss>`))
	}))
	defer feed.Close()

	var (
		mu       sync.Mutex
		sections []string
	)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var evt struct {
			Section string `json:"section"`
			Status  string `json:"status"`
		}
		_ = json.NewDecoder(r.Body).Decode(&evt)
		mu.Lock()
		sections = append(sections, evt.Section+":"+evt.Status)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	dir := chdir(t)
	catalog := filepath.Join(dir, "providers.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(`
providers:
  - id: Local
    url_template: "`+feed.URL+`/{section}.xml"
    sections: [news, missing]
    profile:
      fields: {title: title}
`), 0o600))
	pubFile := filepath.Join(dir, "publishers.yaml")
	require.NoError(t, os.WriteFile(pubFile, []byte(`
publishers:
  - id: failures
    type: http
    route: {statuses: [failure]}
    http: {url: "`+hook.URL+`"}
`), 0o600))

	t.Setenv("HARVESTER_PROVIDERS_FILE", catalog)
	t.Setenv("HARVESTER_PUBLISHERS_FILE", pubFile)
	t.Setenv("HARVESTER_OUTPUT_DIR", filepath.Join(dir, "out"))
	t.Setenv("HARVESTER_LOG_LEVEL", "error")

	_, err := execute(t, "run", "--once")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"missing:failure"}, sections)
}
