package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestDoc = `{
	"components": {
		"commands": {"files": ["commands/sync.md", "commands/build.md"]},
		"hooks": {"files": ["hooks/pre-sync"]}
	}
}`

func newTestServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchManifest(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/manifest.json": manifestDoc})

	f := NewFetcher(srv.URL, 5*time.Second, 0)
	manifest, err := f.FetchManifest(context.Background())
	require.NoError(t, err)

	assert.Len(t, manifest.Components, 2)
	assert.Equal(t, []string{"commands/sync.md", "commands/build.md"}, manifest.Components["commands"].Files)
	assert.Equal(t, 3, manifest.FileCount())
}

func TestFetchManifest_MalformedJSON(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/manifest.json": `{"components": [broken`})

	f := NewFetcher(srv.URL, 5*time.Second, 0)
	_, err := f.FetchManifest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestFetchManifest_MissingComponents(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/manifest.json": `{"unexpected": true}`})

	f := NewFetcher(srv.URL, 5*time.Second, 0)
	_, err := f.FetchManifest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func TestFetchManifest_HTTPError(t *testing.T) {
	srv := newTestServer(t, nil)

	f := NewFetcher(srv.URL, 5*time.Second, 0)
	_, err := f.FetchManifest(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchFile(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/commands/sync.md": "# sync command",
	})

	f := NewFetcher(srv.URL, 5*time.Second, 0)

	data, err := f.FetchFile(context.Background(), "commands/sync.md")
	require.NoError(t, err)
	assert.Equal(t, "# sync command", string(data))

	_, err = f.FetchFile(context.Background(), "commands/absent.md")
	assert.Error(t, err)
}
