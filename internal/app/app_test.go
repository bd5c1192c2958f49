package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bnema/zerowrap"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	orasmemory "oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"

	"github.com/bnema/hangar/internal/config"
)

func nopLogger() zerowrap.Logger {
	return zerowrap.New(zerowrap.Config{Level: "disabled", Output: io.Discard})
}

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	v := viper.New()
	v.Set("storage.backend", config.BackendMemory)
	v.Set("rate_limit.enabled", false)
	v.Set("logging.format", "json")
	v.Set("server.addr", "127.0.0.1:0")
	for k, val := range overrides {
		v.Set(k, val)
	}
	cfg, err := config.Load(v)
	require.NoError(t, err)
	return cfg
}

// startApp serves a on a loopback listener and returns its host:port.
func startApp(t *testing.T, cfg *config.Config) (*App, string) {
	t.Helper()

	a, err := New(cfg, nopLogger())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		assert.NoError(t, a.Close())
	})
	return a, ln.Addr().String()
}

func get(t *testing.T, url string, mutate func(*http.Request)) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if mutate != nil {
		mutate(req)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestApp_NonCorePaths(t *testing.T) {
	_, host := startApp(t, testConfig(t, nil))
	base := "http://" + host

	resp, body := get(t, base+"/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	resp, body = get(t, base+"/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"name":"hangar"`)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	resp, _ = get(t, base+"/elsewhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, base+"/v2/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "registry/2.0", resp.Header.Get("Docker-Distribution-Api-Version"))
	assert.JSONEq(t, `{}`, body)

	resp, body = get(t, base+"/api/repositories", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"repositories":[]}`, body)

	resp, body = get(t, base+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "hangar_http_requests_total")
}

func TestApp_MetricsDisabled(t *testing.T) {
	_, host := startApp(t, testConfig(t, map[string]any{"metrics.enabled": false}))

	resp, _ := get(t, "http://"+host+"/metrics", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApp_RateLimited(t *testing.T) {
	_, host := startApp(t, testConfig(t, map[string]any{
		"rate_limit.enabled":      true,
		"rate_limit.ip_rps":       0.001,
		"rate_limit.ip_burst":     1,
		"rate_limit.global_rps":   1000,
		"rate_limit.global_burst": 1000,
	}))

	first, _ := get(t, "http://"+host+"/v2/", nil)
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, body := get(t, "http://"+host+"/v2/", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Contains(t, body, "TOOMANYREQUESTS")

	// Only registry traffic is limited.
	health, _ := get(t, "http://"+host+"/healthz", nil)
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestApp_JanitorPurgesStaleUploads(t *testing.T) {
	a, host := startApp(t, testConfig(t, nil))

	resp, err := http.Post("http://"+host+"/v2/app/blobs/uploads/", "", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	location := resp.Header.Get("Location")

	time.Sleep(5 * time.Millisecond)
	a.purgeStaleUploads(context.Background(), time.Millisecond)

	status, _ := get(t, "http://"+host+location, nil)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
}

func TestApp_ORASPushPull(t *testing.T) {
	_, host := startApp(t, testConfig(t, nil))
	ctx := context.Background()

	repo, err := remote.NewRepository(host + "/example/artifact")
	require.NoError(t, err)
	repo.PlainHTTP = true

	pushed, layerDesc, layerData := packArtifact(t, ctx)

	desc, err := oras.Copy(ctx, pushed, "v1", repo, "v1", oras.DefaultCopyOptions)
	require.NoError(t, err)

	pulled := orasmemory.New()
	got, err := oras.Copy(ctx, repo, "v1", pulled, "v1", oras.DefaultCopyOptions)
	require.NoError(t, err)
	assert.Equal(t, desc.Digest, got.Digest)

	rc, err := pulled.Fetch(ctx, layerDesc)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()
	data, err := content.ReadAll(rc, layerDesc)
	require.NoError(t, err)
	assert.Equal(t, layerData, data)

	resp, body := get(t, "http://"+host+"/v2/example/artifact/tags/list", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"name":"example/artifact","tags":["v1"]}`, body)
}

func TestApp_ORASPushWithBasicAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	_, host := startApp(t, testConfig(t, map[string]any{
		"auth.enabled": true,
		"auth.users": []map[string]any{
			{"username": "alice", "password_hash": string(hash)},
		},
	}))
	ctx := context.Background()

	resp, _ := get(t, "http://"+host+"/v2/", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("WWW-Authenticate"), "Basic "))

	repo, err := remote.NewRepository(host + "/private/artifact")
	require.NoError(t, err)
	repo.PlainHTTP = true

	pushed, _, _ := packArtifact(t, ctx)
	_, err = oras.Copy(ctx, pushed, "v1", repo, "v1", oras.DefaultCopyOptions)
	require.Error(t, err, "anonymous push must be rejected")

	repo.Client = &auth.Client{
		Credential: auth.StaticCredential(host, auth.Credential{Username: "alice", Password: "s3cret"}),
	}
	_, err = oras.Copy(ctx, pushed, "v1", repo, "v1", oras.DefaultCopyOptions)
	require.NoError(t, err)

	resp, body := get(t, "http://"+host+"/api/repositories", func(r *http.Request) {
		r.SetBasicAuth("alice", "s3cret")
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listing struct {
		Repositories []struct {
			Name string   `json:"name"`
			Tags []string `json:"tags"`
		} `json:"repositories"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &listing))
	require.Len(t, listing.Repositories, 1)
	assert.Equal(t, "private/artifact", listing.Repositories[0].Name)
	assert.Equal(t, []string{"v1"}, listing.Repositories[0].Tags)
}

// packArtifact builds a one-layer OCI artifact tagged v1 in memory.
func packArtifact(t *testing.T, ctx context.Context) (*orasmemory.Store, ocispec.Descriptor, []byte) {
	t.Helper()
	store := orasmemory.New()

	layerData := []byte("hello from hangar")
	layerDesc, err := oras.PushBytes(ctx, store, "application/vnd.hangar.test.layer", layerData)
	require.NoError(t, err)

	manifestDesc, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, "application/vnd.hangar.test", oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layerDesc},
	})
	require.NoError(t, err)
	require.NoError(t, store.Tag(ctx, manifestDesc, "v1"))

	return store, layerDesc, layerData
}
