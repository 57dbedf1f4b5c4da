// Package studio downloads built model deployments from the Edge Impulse
// Studio REST API.
package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

type studioError string

func (e studioError) Error() string { return string(e) }

// Errors returned by the Studio client.
const (
	ErrMissingCredentials = studioError("project id and api key are required")
	ErrNoDefaultImpulse   = studioError("project has no default impulse id")
	ErrRequestFailed      = studioError("studio api request was not successful")
	ErrJobFailed          = studioError("model build job failed")
	ErrJobTimeout         = studioError("model build job timed out")
)

// DefaultHost is the public Studio instance. Override with the
// EDGE_IMPULSE_STUDIO_HOST environment variable or WithHost.
const DefaultHost = "https://studio.edgeimpulse.com"

// DefaultEngine is the deployment engine requested when none is
// configured.
const DefaultEngine = "tflite-eon"

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxAttempts  = 120
)

// Client talks to the Edge Impulse Studio API for one project.
type Client struct {
	host         string
	projectID    string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int
}

// Option configures a Client.
type Option func(*Client)

// WithHost overrides the Studio host.
func WithHost(host string) Option {
	return func(c *Client) { c.host = host }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval changes the job status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithMaxAttempts changes the number of polls before giving up.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// NewClient creates a Studio client for the given project. Both the
// project id and the api key must be set.
func NewClient(projectID, apiKey string, opts ...Option) (*Client, error) {
	if projectID == "" || apiKey == "" {
		return nil, ErrMissingCredentials
	}
	host := DefaultHost
	if h := os.Getenv("EDGE_IMPULSE_STUDIO_HOST"); h != "" {
		host = h
	}
	c := &Client{
		host:         host,
		projectID:    projectID,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: defaultPollInterval,
		maxAttempts:  defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) url(format string, args ...any) string {
	return fmt.Sprintf("%s/v1/api/%s", c.host, c.projectID) + fmt.Sprintf(format, args...)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("studio request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: HTTP %d: %w", method, url, resp.StatusCode, ErrRequestFailed)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode studio response: %w", err)
		}
	}
	return nil
}

// ProjectInfo fetches the project metadata, including the default
// impulse id needed to request a build.
func (c *Client) ProjectInfo(ctx context.Context) (*ProjectResponse, error) {
	var out ProjectResponse
	if err := c.do(ctx, http.MethodGet, c.url(""), nil, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("project info: %s: %w", out.Error, ErrRequestFailed)
	}
	return &out, nil
}

// StartBuild triggers an on-device model build for the given impulse and
// engine, returning the job id to poll.
func (c *Client) StartBuild(ctx context.Context, impulseID int, engine string) (int, error) {
	if engine == "" {
		engine = DefaultEngine
	}
	body, err := json.Marshal(map[string]string{"engine": engine})
	if err != nil {
		return 0, fmt.Errorf("failed to encode build request: %w", err)
	}

	var out BuildJobResponse
	url := c.url("/jobs/build-ondevice-model?type=zip&impulse=%d", impulseID)
	if err := c.do(ctx, http.MethodPost, url, body, &out); err != nil {
		return 0, err
	}
	if !out.Success {
		return 0, fmt.Errorf("start build: %s: %w", out.Error, ErrRequestFailed)
	}
	return out.ID, nil
}

// WaitForJob polls the job status until it finishes, the attempt budget
// runs out, or the context is canceled.
func (c *Client) WaitForJob(ctx context.Context, jobID int) error {
	url := c.url("/jobs/%d/status", jobID)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		var out JobStatusResponse
		if err := c.do(ctx, http.MethodGet, url, nil, &out); err != nil {
			// Transient errors are retried until the budget runs out.
			log.WithError(err).Debug("Job status poll failed")
			continue
		}
		if !out.Success {
			return fmt.Errorf("job status: %s: %w", out.Error, ErrRequestFailed)
		}

		job := out.Job
		if job.FinishedSuccessful != nil && job.Finished != "" {
			if *job.FinishedSuccessful {
				log.WithField("job", jobID).Info("Model build completed")
				return nil
			}
			return fmt.Errorf("job %d (%s): %w", jobID, job.Category, ErrJobFailed)
		}
		log.WithFields(log.Fields{"job": jobID, "attempt": attempt}).
			Debug("Model build still running")
	}
	return fmt.Errorf("job %d after %d attempts: %w", jobID, c.maxAttempts, ErrJobTimeout)
}

// DownloadDeployment fetches the built deployment zip for the given
// impulse.
func (c *Client) DownloadDeployment(ctx context.Context, impulseID int) ([]byte, error) {
	url := c.url("/deployment/download?type=zip&impulse=%d", impulseID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deployment download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deployment download: HTTP %d: %w", resp.StatusCode, ErrRequestFailed)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment data: %w", err)
	}
	return data, nil
}

// FetchModel runs the full acquisition flow: look up the default
// impulse, trigger a build, wait for it, download the deployment and
// extract it into destDir.
func (c *Client) FetchModel(ctx context.Context, destDir, engine string) error {
	log.Info("Step 1/5: Getting project information...")
	info, err := c.ProjectInfo(ctx)
	if err != nil {
		return err
	}
	if info.DefaultImpulseID == nil {
		return fmt.Errorf("project %s: %w", c.projectID, ErrNoDefaultImpulse)
	}
	impulseID := *info.DefaultImpulseID
	log.WithFields(log.Fields{"project": info.Project.Name, "impulse": impulseID}).
		Info("Found default impulse")

	log.Info("Step 2/5: Triggering model build job...")
	jobID, err := c.StartBuild(ctx, impulseID, engine)
	if err != nil {
		return err
	}

	log.WithField("job", jobID).Info("Step 3/5: Waiting for model build to complete...")
	if err := c.WaitForJob(ctx, jobID); err != nil {
		return err
	}

	log.Info("Step 4/5: Downloading model deployment...")
	data, err := c.DownloadDeployment(ctx, impulseID)
	if err != nil {
		return err
	}

	log.Info("Step 5/5: Extracting model files...")
	if err := ExtractZip(data, destDir); err != nil {
		return err
	}
	log.Info("Model downloaded and extracted successfully")
	return nil
}
