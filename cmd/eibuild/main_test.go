//go:build unit

package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/emergingrobotics/go-edgeimpulse/pkg/studio"
)

func makeDeploymentZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		"edge-impulse-sdk/README.md":         "sdk",
		"model-parameters/model_metadata.h":  "#define EI_CLASSIFIER_LABEL_COUNT 2\n",
		"tflite-model/tflite_learn_1.tflite": "bin",
	} {
		f, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildStub answers the Studio endpoints the download flow touches and
// records the engine the build request carried.
type buildStub struct {
	t          *testing.T
	deployment []byte
	sawEngine  string
}

func (s *buildStub) handler() http.HandlerFunc {
	done := true
	impulse := 1
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/api/123":
			json.NewEncoder(w).Encode(studio.ProjectResponse{
				Success:          true,
				Project:          studio.Project{ID: 123, Name: "demo"},
				DefaultImpulseID: &impulse,
			})
		case "/v1/api/123/jobs/build-ondevice-model":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			s.sawEngine = body["engine"]
			json.NewEncoder(w).Encode(studio.BuildJobResponse{Success: true, ID: 9})
		case "/v1/api/123/jobs/9/status":
			json.NewEncoder(w).Encode(studio.JobStatusResponse{
				Success: true,
				Job: studio.JobStatus{
					ID:                 9,
					Finished:           "2026-08-30T00:00:00Z",
					FinishedSuccessful: &done,
				},
			})
		case "/v1/api/123/deployment/download":
			w.Write(s.deployment)
		default:
			http.NotFound(w, r)
		}
	}
}

func stubEnv(t *testing.T, server *httptest.Server, engine string) {
	t.Helper()
	t.Setenv("EI_PROJECT_ID", "123")
	t.Setenv("EI_API_KEY", "secret")
	t.Setenv("EDGE_IMPULSE_STUDIO_HOST", server.URL)
	t.Setenv("EI_ENGINE", engine)
}

func TestDownloadModelRequiresNumericProjectID(t *testing.T) {
	for _, id := range []string{"", "not-a-number"} {
		t.Setenv("EI_PROJECT_ID", id)
		if err := downloadModel(context.Background(), t.TempDir()); err == nil {
			t.Errorf("EI_PROJECT_ID=%q: expected error", id)
		}
	}
}

func TestDownloadModelWiresEngine(t *testing.T) {
	stub := &buildStub{t: t, deployment: makeDeploymentZip(t)}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	stubEnv(t, server, "tflite")

	dest := t.TempDir()
	err := downloadModel(context.Background(), dest,
		studio.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("downloadModel failed: %v", err)
	}
	if stub.sawEngine != "tflite" {
		t.Errorf("engine = %q, expected EI_ENGINE override", stub.sawEngine)
	}
	header := filepath.Join(dest, "model-parameters", "model_metadata.h")
	if _, err := os.Stat(header); err != nil {
		t.Errorf("extracted metadata missing: %v", err)
	}
}

func TestDownloadModelDefaultEngine(t *testing.T) {
	stub := &buildStub{t: t, deployment: makeDeploymentZip(t)}
	server := httptest.NewServer(stub.handler())
	defer server.Close()
	stubEnv(t, server, "")

	err := downloadModel(context.Background(), t.TempDir(),
		studio.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("downloadModel failed: %v", err)
	}
	if stub.sawEngine != studio.DefaultEngine {
		t.Errorf("engine = %q, expected default %q", stub.sawEngine, studio.DefaultEngine)
	}
}

func TestModelDirArg(t *testing.T) {
	if got := modelDirArg(nil); got != defaultModelDir {
		t.Errorf("no args: got %q", got)
	}
	if got := modelDirArg([]string{"custom"}); got != "custom" {
		t.Errorf("explicit arg: got %q", got)
	}
}
