package openmask

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/AlexLike/OpenMaskXR/logging"
	"github.com/AlexLike/OpenMaskXR/rexec"
)

type fakeEncoder struct {
	prompts []string
	err     error
}

func (e *fakeEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.prompts = append(e.prompts, QueryPrompt(text))
	return []float32{0.25, -1, 3}, nil
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var resp statusResponse
	test.That(t, json.NewDecoder(rec.Body).Decode(&resp), test.ShouldBeNil)
	return resp
}

func TestHandlerRun(t *testing.T) {
	requireShell(t)
	logger := logging.NewTestLogger(t)

	ok := NewHandler(NewRunner(RunnerConfig{Masks: shell("true"), Features: shell("true")}, logger), nil, logger)
	rec := httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?intrinsicResolution=%5B480,640%5D&depthScale=1000", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	test.That(t, decodeStatus(t, rec).RunID, test.ShouldNotBeEmpty)

	rec = httptest.NewRecorder()
	ok.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?depthScale=deep", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	failing := NewHandler(NewRunner(RunnerConfig{Masks: shell("exit 1"), Features: shell("true")}, logger), nil, logger)
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusInternalServerError)
	test.That(t, decodeStatus(t, rec).Message, test.ShouldEqual, "mask computation failed")

	busyRunner := NewRunner(RunnerConfig{Masks: shell("true"), Features: shell("true")}, logger)
	busyRunner.mu.Lock()
	defer busyRunner.mu.Unlock()
	rec = httptest.NewRecorder()
	NewHandler(busyRunner, nil, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusServiceUnavailable)
}

func TestHandlerTextToClip(t *testing.T) {
	logger := logging.NewTestLogger(t)
	encoder := &fakeEncoder{}
	h := NewHandler(NewRunner(RunnerConfig{}, logger), encoder, logger)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text-to-clip", strings.NewReader(`{"text": "a chair"}`)))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusOK)
	var resp map[string][]float32
	test.That(t, json.NewDecoder(rec.Body).Decode(&resp), test.ShouldBeNil)
	test.That(t, resp["CLIP_embedding"], test.ShouldResemble, []float32{0.25, -1, 3})
	test.That(t, encoder.prompts, test.ShouldResemble, []string{"a chair in a scene"})

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text-to-clip", strings.NewReader(`{"query": "a chair"}`)))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusBadRequest)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/text-to-clip", nil))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusNotFound)

	encoder.err = errors.New("model unavailable")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/text-to-clip", strings.NewReader(`{"text": "a chair"}`)))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusInternalServerError)

	rec = httptest.NewRecorder()
	NewHandler(NewRunner(RunnerConfig{}, logger), nil, logger).ServeHTTP(rec,
		httptest.NewRequest(http.MethodPost, "/text-to-clip", strings.NewReader(`{"text": "a chair"}`)))
	test.That(t, rec.Code, test.ShouldEqual, http.StatusNotImplemented)
}

func TestCommandEncoder(t *testing.T) {
	requireShell(t)
	logger := logging.NewTestLogger(t)
	encoder := NewCommandEncoder(rexec.ProcessConfig{
		Name: "sh",
		Args: []string{"-c", `test "$1" = "a lamp in a scene" && echo "[1.5, 2, -0.5]"`, "encode"},
	}, logger)
	embedding, err := encoder.Encode(context.Background(), "a lamp")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, embedding, test.ShouldResemble, []float32{1.5, 2, -0.5})

	_, err = encoder.Encode(context.Background(), "a table")
	test.That(t, err, test.ShouldNotBeNil)

	bad := NewCommandEncoder(rexec.ProcessConfig{Name: "sh", Args: []string{"-c", "echo not json", "encode"}}, logger)
	_, err = bad.Encode(context.Background(), "a lamp")
	test.That(t, err, test.ShouldNotBeNil)

	empty := NewCommandEncoder(rexec.ProcessConfig{Name: "sh", Args: []string{"-c", "echo []", "encode"}}, logger)
	_, err = empty.Encode(context.Background(), "a lamp")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestServeListener(t *testing.T) {
	logger := logging.NewTestLogger(t)
	listener, err := net.Listen("tcp", "localhost:0")
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeListener(ctx, listener, NewHandler(NewRunner(RunnerConfig{}, logger), &fakeEncoder{}, logger), logger)
	}()

	resp, err := http.Post("http://"+listener.Addr().String()+"/text-to-clip", "application/json", strings.NewReader(`{"text": "a cup"}`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, resp.Body.Close(), test.ShouldBeNil)

	cancel()
	test.That(t, <-done, test.ShouldBeNil)
}
