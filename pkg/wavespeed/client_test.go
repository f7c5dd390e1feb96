package wavespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	submits    int32
	polls      int32
	failSubmit int32
	lastModel  string
	lastBody   map[string]interface{}
	status     string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predictions/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.polls, 1)
		status := StatusProcessing
		if n >= 2 {
			status = f.status
		}
		data := map[string]interface{}{"id": "pred-1", "status": status}
		if status == StatusCompleted {
			data["outputs"] = []string{"https://cdn.example.com/out.png"}
		}
		if status == StatusFailed {
			data["error"] = "nsfw filter"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "data": data})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		if atomic.AddInt32(&f.submits, 1) <= f.failSubmit {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		f.lastModel = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"data": map[string]interface{}{"id": "pred-1", "status": StatusCreated},
		})
	})
	return mux
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL,
		Model:        "bytedance/seedream-v4",
		EditModel:    "bytedance/seedream-v4/edit",
		PollInterval: 10 * time.Millisecond,
		Timeout:      5 * time.Second,
	})
}

func TestGenerate_Completes(t *testing.T) {
	api := &fakeAPI{status: StatusCompleted}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	var progress []int
	urls, err := newTestClient(srv).Generate(context.Background(), Request{Prompt: "portrait"}, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/out.png"}, urls)
	assert.Equal(t, []int{100}, progress)
	assert.Equal(t, "/bytedance/seedream-v4", api.lastModel)
	assert.Equal(t, "portrait", api.lastBody["prompt"])
}

func TestGenerate_ReferenceUsesEditModel(t *testing.T) {
	api := &fakeAPI{status: StatusCompleted}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), Request{
		Prompt:         "beach",
		ReferenceImage: "https://cdn.example.com/ref.png",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/bytedance/seedream-v4/edit", api.lastModel)
	assert.Equal(t, []interface{}{"https://cdn.example.com/ref.png"}, api.lastBody["images"])
}

func TestGenerate_RetriesTransientSubmit(t *testing.T) {
	api := &fakeAPI{status: StatusCompleted, failSubmit: 1}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), Request{Prompt: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&api.submits))
}

func TestGenerate_PredictionFailed(t *testing.T) {
	api := &fakeAPI{status: StatusFailed}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), Request{Prompt: "x"}, nil)
	assert.ErrorIs(t, err, ErrPredictionFailed)
}

func TestGenerate_BadRequestIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":400,"message":"bad prompt"}`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Generate(context.Background(), Request{Prompt: "x"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDownload(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	data, contentType, err := newTestClient(srv).Download(context.Background(), srv.URL+"/out.png")
	require.NoError(t, err)
	assert.Equal(t, png, data)
	assert.Equal(t, "image/png", contentType)
}
