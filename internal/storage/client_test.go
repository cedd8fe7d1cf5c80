package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestClientDownload(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("model-bytes"))
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "secret", srv.Client())
	dest := filepath.Join(t.TempDir(), "model.glb")
	if err := client.Download(context.Background(), "gs://bucket/models/model.glb", dest); err != nil {
		t.Fatalf("download: %v", err)
	}

	if gotPath != "/bucket/models/model.glb" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if string(data) != "model-bytes" {
		t.Errorf("downloaded contents = %q", data)
	}
}

func TestClientDownloadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.URL, "", srv.Client())
	dest := filepath.Join(t.TempDir(), "model.glb")
	if err := client.Download(context.Background(), "gs://bucket/missing.glb", dest); err == nil {
		t.Fatal("expected error for 404 response")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("failed download should not leave a destination file")
	}
}

func TestClientUpload(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := filepath.Join(t.TempDir(), "hero.glb")
	if err := os.WriteFile(src, []byte("rigged"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	client := NewHTTPClient(srv.URL, "", srv.Client())
	if err := client.Upload(context.Background(), src, "gs://results/rigs/hero.glb"); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/results/rigs/hero.glb" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotBody != "rigged" {
		t.Errorf("uploaded body = %q", gotBody)
	}
}

func TestDisabledClientRejectsRemoteAccess(t *testing.T) {
	client := &Client{}
	if client.Enabled() {
		t.Error("zero client should be disabled")
	}
	err := client.Download(context.Background(), "gs://bucket/key", filepath.Join(t.TempDir(), "x"))
	if err == nil {
		t.Fatal("disabled client should refuse downloads")
	}
}
