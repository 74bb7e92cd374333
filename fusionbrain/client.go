// fusionbrain/client.go - Client for the FusionBrain image generation API
package fusionbrain

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const (
	DefaultBaseURL = "https://api-key.fusionbrain.ai/"

	// Poll budget: up to DefaultAttempts status checks with DefaultDelay
	// between attempts bounds worst-case latency per job.
	DefaultAttempts = 10
	DefaultDelay    = 10 * time.Second

	ImageWidth  = 1024
	ImageHeight = 1024
)

// Status is the lifecycle state of a generation job.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusDone     Status = "DONE"
	StatusFailed   Status = "FAILED"
	StatusTimedOut Status = "TIMED_OUT"
)

// Job is one generation request. Payloads holds the decoded image data and
// is populated only when the job reaches StatusDone.
type Job struct {
	Prompt   string
	ID       string
	Status   Status
	Payloads [][]byte
}

// UpstreamError reports a non-success or malformed response from the
// generation service, carrying the upstream status and body for diagnostics.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fusionbrain %s failed: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fusionbrain %s failed: %s", e.Op, e.Body)
}

// Config carries the client settings. Zero fields fall back to defaults.
type Config struct {
	BaseURL    string
	Key        string
	Secret     string
	Attempts   int
	Delay      time.Duration
	HTTPClient *http.Client
}

// Client submits prompts to the generation service and polls jobs to a
// terminal state. There is no cancellation once polling starts; callers
// that lose interest simply discard the result.
type Client struct {
	baseURL  string
	key      string
	secret   string
	attempts int
	delay    time.Duration
	http     *http.Client

	// sleep is swapped out in tests to count poll delays.
	sleep func(time.Duration)
}

func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:  cfg.BaseURL,
		key:      cfg.Key,
		secret:   cfg.Secret,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		http:     cfg.HTTPClient,
		sleep:    time.Sleep,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.attempts <= 0 {
		c.attempts = DefaultAttempts
	}
	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

type pipelineInfo struct {
	ID string `json:"id"`
}

type runResponse struct {
	UUID string `json:"uuid"`
}

type statusResponse struct {
	Status string `json:"status"`
	Result *struct {
		Files []string `json:"files"`
	} `json:"result"`
}

// ResolvePipeline returns the id of the first active processing pipeline.
func (c *Client) ResolvePipeline(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "key/api/v1/pipelines", "", nil, "pipelines")
	if err != nil {
		return "", err
	}

	var pipelines []pipelineInfo
	if err := json.Unmarshal(body, &pipelines); err != nil {
		return "", &UpstreamError{Op: "pipelines", Body: fmt.Sprintf("malformed response: %v", err)}
	}
	if len(pipelines) == 0 {
		return "", &UpstreamError{Op: "pipelines", Body: "no active pipelines"}
	}
	return pipelines[0].ID, nil
}

// Submit starts a generation job for prompt at the fixed image dimensions
// and returns it in the PENDING state.
func (c *Client) Submit(ctx context.Context, prompt string) (*Job, error) {
	pipelineID, err := c.ResolvePipeline(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"type":      "GENERATE",
		"numImages": 1,
		"width":     ImageWidth,
		"height":    ImageHeight,
		"generateParams": map[string]string{
			"query": prompt,
		},
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generation params: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("pipeline_id", pipelineID); err != nil {
		return nil, fmt.Errorf("failed to build run request: %w", err)
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="params"`)
	header.Set("Content-Type", "application/json")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("failed to build run request: %w", err)
	}
	if _, err := part.Write(paramsJSON); err != nil {
		return nil, fmt.Errorf("failed to build run request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build run request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, "key/api/v1/pipeline/run", writer.FormDataContentType(), &buf, "run")
	if err != nil {
		return nil, err
	}

	var run runResponse
	if err := json.Unmarshal(body, &run); err != nil || run.UUID == "" {
		return nil, &UpstreamError{Op: "run", Body: "malformed run response"}
	}

	return &Job{Prompt: prompt, ID: run.UUID, Status: StatusPending}, nil
}

// Poll drives the job to a terminal state: DONE with decoded payloads,
// FAILED when the upstream reports failure, or TIMED_OUT after the attempt
// budget is exhausted. Timing out is a normal outcome, not an error. A
// non-success HTTP status aborts polling immediately with an UpstreamError.
func (c *Client) Poll(ctx context.Context, job *Job) (*Job, error) {
	for attempt := 0; attempt < c.attempts; attempt++ {
		body, err := c.do(ctx, http.MethodGet, "key/api/v1/pipeline/status/"+job.ID, "", nil, "status")
		if err != nil {
			return nil, err
		}

		var status statusResponse
		if err := json.Unmarshal(body, &status); err != nil {
			return nil, &UpstreamError{Op: "status", Body: fmt.Sprintf("malformed status response: %v", err)}
		}

		switch status.Status {
		case "DONE":
			if status.Result == nil {
				return nil, &UpstreamError{Op: "status", Body: "done without result payload"}
			}
			payloads := make([][]byte, 0, len(status.Result.Files))
			for _, file := range status.Result.Files {
				data, err := base64.StdEncoding.DecodeString(file)
				if err != nil {
					return nil, &UpstreamError{Op: "status", Body: fmt.Sprintf("undecodable image payload: %v", err)}
				}
				payloads = append(payloads, data)
			}
			job.Status = StatusDone
			job.Payloads = payloads
			return job, nil
		case "FAIL":
			job.Status = StatusFailed
			return job, nil
		}

		if attempt < c.attempts-1 {
			c.sleep(c.delay)
		}
	}

	job.Status = StatusTimedOut
	return job, nil
}

// Generate runs the full submit-then-poll cycle for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (*Job, error) {
	job, err := c.Submit(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return c.Poll(ctx, job)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, op string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("X-Key", "Key "+c.key)
	req.Header.Set("X-Secret", "Secret "+c.secret)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &UpstreamError{Op: op, Body: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}
	return data, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
