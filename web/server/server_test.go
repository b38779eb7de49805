package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/df07/go-enhanced-svg/pkg/config"
	"github.com/df07/go-enhanced-svg/pkg/loaders"
	"github.com/df07/go-enhanced-svg/pkg/scene"
)

const twoColorSVG = `<svg xmlns="http://www.w3.org/2000/svg">
  <rect fill="#ff0000"/>
  <rect fill="#00ff00"/>
  <circle fill="#ff0000"/>
</svg>`

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Import.Preprocessor = ""
	cfg.Import.TempDir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := NewServer(cfg, nil)
	require.NoError(t, err)
	return srv
}

func upload(t *testing.T, h http.Handler, name, variant, body string) *httptest.ResponseRecorder {
	t.Helper()
	url := "/api/import?name=" + name
	if variant != "" {
		url += "&variant=" + variant
	}
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "image/svg+xml")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleFiles(t *testing.T) {
	t.Run("no library", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newTestServer(t, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("lists titles", func(t *testing.T) {
		dir := t.TempDir()
		titled := `<svg xmlns="http://www.w3.org/2000/svg"><title>Launch Badge</title><rect/></svg>`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "badge.svg"), []byte(titled), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "company-logo.svg"), []byte(twoColorSVG), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
		h := newTestServer(t, func(c *config.Config) { c.Server.Library = dir }).Handler()

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/files", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var files []loaders.SVGInfo
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
		require.Len(t, files, 2)
		assert.Equal(t, "Launch Badge", files[0].DisplayName)
		assert.Equal(t, "Company Logo", files[1].DisplayName)
		assert.Equal(t, filepath.Join(dir, "company-logo.svg"), files[1].FilePath)
	})
}

func TestHandleImport_SimpleUpload(t *testing.T) {
	srv := newTestServer(t, nil)
	h := srv.Handler()

	rec := upload(t, h, "shape.svg", "simple", twoColorSVG)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SVG_Simple_shape", resp.Group.Name)
	assert.Len(t, resp.Group.Objects, 3)
	assert.Equal(t, []string{"Idle", "Validating", "Importing", "PostProcessing", "Done"}, resp.Trace)
	assert.Nil(t, resp.Stats)

	entries, err := os.ReadDir(srv.config.Import.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload dir is removed after the import")
}

func TestHandleImport_EmissionNeedsPreprocessor(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	rec := upload(t, h, "shape.svg", "emission", twoColorSVG)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleImport_EmissionCanonicalizesAndStacks(t *testing.T) {
	if _, err := os.Stat("/bin/cat"); err != nil {
		t.Skip("cat not available")
	}
	h := newTestServer(t, func(c *config.Config) {
		c.Import.Preprocessor = "/bin/cat"
		c.Elevation.Step = 2
	}).Handler()

	rec := upload(t, h, "logo.SVG", "emission", twoColorSVG)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SVG_Emission_logo", resp.Group.Name)
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 2, resp.Stats.Canonical)
	assert.Equal(t, []Assignment{{"n", 0}, {"n.001", 2}, {"n.002", 4}}, resp.Elevation)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/materials", nil))
	var mats []scene.MaterialSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mats))
	require.Len(t, mats, 2)
	assert.Equal(t, "Mat0_#ff0000", mats[0].Name)
	assert.Equal(t, "Mat1_#00ff00", mats[1].Name)
	assert.Equal(t, 2, mats[0].Users)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/materials/Mat0_%23ff0000", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var info MaterialInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "emissive_opacity_mix", info.MaterialType)
	assert.Equal(t, "opacity", info.Properties["opacityAttribute"])
}

func TestHandleImport_Errors(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"wrong extension", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/import?name=logo.png", strings.NewReader("x"))
			r.Header.Set("Content-Type", "image/png")
			return r
		}(), http.StatusBadRequest},
		{"missing name", httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader("x")), http.StatusBadRequest},
		{"bad variant", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`{"path":"a.svg","variant":"fancy"}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}(), http.StatusBadRequest},
		{"missing file", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/api/import", strings.NewReader(`{"path":"/nonexistent/a.svg","variant":"simple"}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}(), http.StatusInternalServerError},
		{"wrong method", httptest.NewRequest(http.MethodGet, "/api/import", nil), http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleImport_JSONPath(t *testing.T) {
	for _, contentType := range []string{"application/json", "application/json; charset=utf-8"} {
		t.Run(contentType, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "badge.svg")
			require.NoError(t, os.WriteFile(path, []byte(twoColorSVG), 0o644))
			h := newTestServer(t, nil).Handler()

			body, _ := json.Marshal(ImportRequest{Path: path, Variant: "simple"})
			req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(body))
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			_, err := os.Stat(path)
			assert.NoError(t, err, "the source file is left alone")
		})
	}
}

func TestHandleElevation(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	require.Equal(t, http.StatusOK, upload(t, h, "shape.svg", "simple", twoColorSVG).Code)

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/elevation", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := put(`{"group":"SVG_Simple_shape","step":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ElevationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []Assignment{{"Curve", 0}, {"Curve.001", 2}, {"Curve.002", 4}}, resp.Assignments)

	rec = put(`{"group":"SVG_Simple_shape","step":0}`)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []Assignment{{"Curve", 0}, {"Curve.001", 0}, {"Curve.002", 0}}, resp.Assignments)

	assert.Equal(t, http.StatusNotFound, put(`{"group":"nope","step":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(`{`).Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/scene", nil))
	var snap scene.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Groups, 1)
	for _, obj := range snap.Groups[0].Objects {
		assert.Equal(t, 0.0, obj.Location[2])
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/elevation", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SVG_Simple_shape", resp.Group)
	assert.Equal(t, 0.0, resp.Step)
}

func TestHandleConsole_StreamsLogs(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.console.run(ctx)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/console", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// wait until the handler has subscribed
	require.Eventually(t, func() bool {
		srv.console.mu.Lock()
		defer srv.console.mu.Unlock()
		return len(srv.console.subscribers) == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec := upload(t, srv.Handler(), "logo.png", "simple", "x")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed early")
			if strings.HasPrefix(line, "data: ") && strings.Contains(line, "Selected file is not an SVG file") {
				return
			}
		case <-deadline:
			t.Fatal("Timeout waiting for console event")
		}
	}
}
