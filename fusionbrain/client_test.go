package fusionbrain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream scripts the pipeline endpoints: a fixed pipeline listing, a
// run handler and a sequence of status responses consumed one per poll.
type fakeUpstream struct {
	t *testing.T

	statusResponses []string
	statusCodes     []int

	pipelineCalls int
	runCalls      int
	statusCalls   int
	lastRunReq    *http.Request
	lastRunParams map[string]interface{}
}

func (f *fakeUpstream) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/key/api/v1/pipelines":
			f.pipelineCalls++
			fmt.Fprint(w, `[{"id": "pipeline-1"}, {"id": "pipeline-2"}]`)

		case r.URL.Path == "/key/api/v1/pipeline/run":
			f.runCalls++
			f.lastRunReq = r
			require.NoError(f.t, r.ParseMultipartForm(1<<20))
			params := r.FormValue("params")
			require.NoError(f.t, json.Unmarshal([]byte(params), &f.lastRunParams))
			fmt.Fprint(w, `{"uuid": "job-123", "status": "INITIAL"}`)

		case r.URL.Path == "/key/api/v1/pipeline/status/job-123":
			i := f.statusCalls
			f.statusCalls++
			require.Less(f.t, i, len(f.statusResponses), "unexpected extra status poll")
			if f.statusCodes != nil && f.statusCodes[i] != http.StatusOK {
				w.WriteHeader(f.statusCodes[i])
			}
			fmt.Fprint(w, f.statusResponses[i])

		default:
			f.t.Errorf("unexpected request path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, upstream *fakeUpstream, attempts int) (*Client, *int) {
	t.Helper()
	srv := httptest.NewServer(upstream.handler())
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		BaseURL:  srv.URL + "/",
		Key:      "test-key",
		Secret:   "test-secret",
		Attempts: attempts,
		Delay:    time.Second,
	})

	sleeps := 0
	c.sleep = func(d time.Duration) {
		assert.Equal(t, time.Second, d)
		sleeps++
	}
	return c, &sleeps
}

func doneBody(payloads ...string) string {
	encoded := make([]string, len(payloads))
	for i, p := range payloads {
		encoded[i] = base64.StdEncoding.EncodeToString([]byte(p))
	}
	files, _ := json.Marshal(encoded)
	return fmt.Sprintf(`{"status": "DONE", "result": {"files": %s}}`, files)
}

func TestResolvePipelineReturnsFirstID(t *testing.T) {
	upstream := &fakeUpstream{t: t}
	client, _ := newTestClient(t, upstream, 1)

	id, err := client.ResolvePipeline(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pipeline-1", id)
}

func TestSubmitSendsCredentialsAndParams(t *testing.T) {
	upstream := &fakeUpstream{t: t}
	client, _ := newTestClient(t, upstream, 1)

	job, err := client.Submit(context.Background(), "a cat in a hat")
	require.NoError(t, err)
	assert.Equal(t, "job-123", job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, "a cat in a hat", job.Prompt)

	require.NotNil(t, upstream.lastRunReq)
	assert.Equal(t, "Key test-key", upstream.lastRunReq.Header.Get("X-Key"))
	assert.Equal(t, "Secret test-secret", upstream.lastRunReq.Header.Get("X-Secret"))
	assert.Equal(t, "pipeline-1", upstream.lastRunReq.FormValue("pipeline_id"))

	params := upstream.lastRunParams
	assert.Equal(t, "GENERATE", params["type"])
	assert.Equal(t, float64(1), params["numImages"])
	assert.Equal(t, float64(ImageWidth), params["width"])
	assert.Equal(t, float64(ImageHeight), params["height"])
	generate, ok := params["generateParams"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a cat in a hat", generate["query"])
}

func TestPollReturnsDecodedPayloadsOnDone(t *testing.T) {
	upstream := &fakeUpstream{
		t: t,
		statusResponses: []string{
			`{"status": "INITIAL"}`,
			`{"status": "PROCESSING"}`,
			doneBody("fake-png-bytes"),
		},
	}
	client, sleeps := newTestClient(t, upstream, 10)

	job, err := client.Generate(context.Background(), "sunset over mountains")
	require.NoError(t, err)

	assert.Equal(t, StatusDone, job.Status)
	require.Len(t, job.Payloads, 1)
	assert.Equal(t, []byte("fake-png-bytes"), job.Payloads[0])

	assert.Equal(t, 3, upstream.statusCalls, "polling stops at the first DONE")
	assert.Equal(t, 2, *sleeps, "no sleep after the final poll")
}

func TestPollTimesOutAfterAttemptBudget(t *testing.T) {
	const attempts = 4
	responses := make([]string, attempts)
	for i := range responses {
		responses[i] = `{"status": "PROCESSING"}`
	}
	upstream := &fakeUpstream{t: t, statusResponses: responses}
	client, sleeps := newTestClient(t, upstream, attempts)

	job, err := client.Generate(context.Background(), "never finishes")
	require.NoError(t, err, "timing out is a normal outcome")

	assert.Equal(t, StatusTimedOut, job.Status)
	assert.Empty(t, job.Payloads)
	assert.Equal(t, attempts, upstream.statusCalls)
	assert.Equal(t, attempts-1, *sleeps)
}

func TestPollReportsUpstreamFailure(t *testing.T) {
	upstream := &fakeUpstream{
		t:               t,
		statusResponses: []string{`{"status": "FAIL"}`},
	}
	client, sleeps := newTestClient(t, upstream, 10)

	job, err := client.Generate(context.Background(), "broken prompt")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, 0, *sleeps)
}

func TestPollAbortsOnHTTPError(t *testing.T) {
	upstream := &fakeUpstream{
		t:               t,
		statusResponses: []string{`{"status": "PROCESSING"}`, `{"error": "boom"}`},
		statusCodes:     []int{http.StatusOK, http.StatusInternalServerError},
	}
	client, _ := newTestClient(t, upstream, 10)

	_, err := client.Generate(context.Background(), "flaky upstream")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusInternalServerError, upErr.StatusCode)
	assert.Equal(t, "status", upErr.Op)
	assert.Equal(t, 2, upstream.statusCalls, "polling stops at the HTTP error")
}

func TestPollRejectsUndecodablePayload(t *testing.T) {
	upstream := &fakeUpstream{
		t:               t,
		statusResponses: []string{`{"status": "DONE", "result": {"files": ["not base64!!!"]}}`},
	}
	client, _ := newTestClient(t, upstream, 10)

	_, err := client.Generate(context.Background(), "corrupt payload")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Contains(t, upErr.Body, "undecodable")
}
