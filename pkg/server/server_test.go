package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"starlit/pkg/config"
	"starlit/pkg/metrics"
	"starlit/pkg/state"
	"starlit/pkg/story"
	"starlit/pkg/workflow"
)

type stubClassifier struct{}

func (stubClassifier) Classify(_ context.Context, _ workflow.ClassifyContext) (workflow.Classification, error) {
	return workflow.Classification{Route: story.RouteGenerate, Theme: "mice", RequestType: story.RequestNew}, nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, _ workflow.GenerateRequest) (story.Artifact, error) {
	return story.Artifact{Title: "The Brave Mouse", Body: "A small mouse did a big thing."}, nil
}

type stubValidator struct{}

func (stubValidator) Validate(_ context.Context, _ story.Artifact, _ string) (workflow.Verdict, error) {
	return workflow.Verdict{Approved: true, Score: 1}, nil
}

type stubRetriever struct{}

func (stubRetriever) Retrieve(_ context.Context, _ string) (workflow.RetrievalResult, error) {
	return workflow.RetrievalResult{Found: false, Reason: "not in catalog"}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, _ story.Artifact) (string, error) {
	return "Small friends can do big things.", nil
}

type stubFormatter struct{}

func (stubFormatter) Format(_ context.Context, a story.Artifact, moral string) (string, error) {
	return "# " + a.Title + "\n\n" + a.Body + "\n\n**Moral:** " + moral, nil
}

func newTestServer(t *testing.T) (*Server, state.Store) {
	t.Helper()
	store := state.NewMemoryStore()
	collab := workflow.Collaborators{
		Classifier: stubClassifier{},
		Generator:  stubGenerator{},
		Validator:  stubValidator{},
		Retriever:  stubRetriever{},
		Summarizer: stubSummarizer{},
		Formatter:  stubFormatter{},
	}
	cfg := config.DefaultConfig()
	engine := workflow.NewEngine(store, collab, cfg)
	return New(engine, store, cfg, nil), store
}

func TestHandleStory(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"user_input": "tell me a story about a brave mouse", "length_tier": "short"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/story", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "The Brave Mouse", resp.Title)
	assert.Equal(t, "A small mouse did a big thing.", resp.Story)
	assert.Equal(t, "Small friends can do big things.", resp.Moral)
	assert.NotEmpty(t, resp.ThreadID)
}

func TestHandleStoryKeepsThread(t *testing.T) {
	srv, store := newTestServer(t)
	handler := srv.Handler()

	post := func(body string) StoryResponse {
		req := httptest.NewRequest(http.MethodPost, "/v1/story", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp StoryResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := post(`{"user_input": "a mouse story"}`)
	second := post(`{"user_input": "another one", "thread_id": "` + first.ThreadID + `"}`)
	assert.Equal(t, first.ThreadID, second.ThreadID)

	st, found, err := store.Load(first.ThreadID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, st.TurnCount)
}

func TestHandleStoryValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	handler := srv.Handler()

	tests := []struct {
		name string
		body string
	}{
		{"empty input", `{"user_input": ""}`},
		{"whitespace input", `{"user_input": "   "}`},
		{"malformed json", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/story", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleStoryMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/story", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleExamples(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/examples", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["examples"])
}

func TestHandleThreads(t *testing.T) {
	srv, store := newTestServer(t)
	require.NoError(t, store.Save("t1", story.NewState("t1")))

	req := httptest.NewRequest(http.MethodGet, "/v1/threads", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["threads"], "t1")
}

func TestHandleThreadStateAndDelete(t *testing.T) {
	srv, store := newTestServer(t)
	st := story.NewState("t1")
	st.Theme = "mice"
	require.NoError(t, store.Save("t1", st))
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/threads/t1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var loaded story.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.Equal(t, "mice", loaded.Theme)

	req = httptest.NewRequest(http.MethodDelete, "/v1/threads/t1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/threads/t1", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleThreadUsageUnconfigured(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/v1/threads/t1/usage", "/v1/threads/t1/usage?by=stage"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestHandleThreadUsageUnknownBreakdown(t *testing.T) {
	srv, store := newTestServer(t)
	usage, err := metrics.NewQueryService("http://127.0.0.1:9")
	require.NoError(t, err)
	srv = New(srv.engine, store, config.DefaultConfig(), usage)

	req := httptest.NewRequest(http.MethodGet, "/v1/threads/t1/usage?by=model", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
