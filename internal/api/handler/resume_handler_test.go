package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retractor-go/internal/parser"
	"retractor-go/internal/service"
	"retractor-go/internal/storage"
	"retractor-go/internal/types"
)

// fakeService 返回以输入为姓名的结果
type fakeService struct {
	err      error
	filename string
	upload   string
}

func (f *fakeService) outcome(name string) (service.Outcome, error) {
	if f.err != nil {
		return service.Outcome{}, f.err
	}
	res := types.NewParsedResume()
	res.Name = &name
	return service.Outcome{Resume: res}, nil
}

func (f *fakeService) ParseText(_ context.Context, text string) (service.Outcome, error) {
	return f.outcome(text)
}

func (f *fakeService) ParseUpload(_ context.Context, filename string, r io.Reader) (service.Outcome, error) {
	b, _ := io.ReadAll(r)
	f.filename, f.upload = filename, string(b)
	return f.outcome(string(b))
}

func (f *fakeService) ParseObject(_ context.Context, key string) (service.Outcome, error) {
	out, err := f.outcome(key)
	out.Cached = err == nil
	return out, err
}

func newTestServer(svc ResumeService) *server.Hertz {
	h := server.Default()
	rh := NewResumeHandler(svc, zerolog.Nop())
	h.POST("/api/v1/resume/parse", rh.HandleParse)
	h.GET("/api/v1/health", rh.HandleHealth)
	return h
}

func jsonBody(s string) *ut.Body {
	return &ut.Body{Body: bytes.NewBufferString(s), Len: len(s)}
}

func decode(t *testing.T, data []byte) ParseResponse {
	t.Helper()
	var resp ParseResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	return resp
}

func TestHandleParseText(t *testing.T) {
	h := newTestServer(&fakeService{})

	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse",
		jsonBody(`{"text":"Jane Doe"}`),
		ut.Header{Key: "Content-Type", Value: "application/json"})
	res := w.Result()

	assert.Equal(t, consts.StatusOK, res.StatusCode())
	resp := decode(t, res.Body())
	assert.Len(t, resp.RequestID, 36)
	assert.Equal(t, resp.RequestID, string(res.Header.Peek(HeaderRequestID)))
	require.NotNil(t, resp.Resume)
	require.NotNil(t, resp.Resume.Name)
	assert.Equal(t, "Jane Doe", *resp.Resume.Name)
	assert.False(t, resp.Cached)
}

func TestHandleParseEmptyText(t *testing.T) {
	h := newTestServer(&fakeService{})

	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse",
		jsonBody(`{"text":""}`),
		ut.Header{Key: "Content-Type", Value: "application/json"})
	assert.Equal(t, consts.StatusOK, w.Result().StatusCode())
}

func TestHandleParseObjectKey(t *testing.T) {
	h := newTestServer(&fakeService{})

	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse",
		jsonBody(`{"object_key":"resumes/a.pdf"}`),
		ut.Header{Key: "Content-Type", Value: "application/json"})
	res := w.Result()
	assert.Equal(t, consts.StatusOK, res.StatusCode())
	resp := decode(t, res.Body())
	assert.True(t, resp.Cached)
	assert.Equal(t, "resumes/a.pdf", *resp.Resume.Name)
}

func TestHandleParseUpload(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "resume.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("John Smith"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse",
		&ut.Body{Body: &buf, Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
	res := w.Result()

	assert.Equal(t, consts.StatusOK, res.StatusCode(), string(res.Body()))
	assert.Equal(t, "resume.txt", svc.filename)
	assert.Equal(t, "John Smith", svc.upload)
}

func TestHandleParseBadRequests(t *testing.T) {
	h := newTestServer(&fakeService{})

	cases := map[string]string{
		"malformed": `{"text":`,
		"no input":  `{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse",
				jsonBody(body),
				ut.Header{Key: "Content-Type", Value: "application/json"})
			assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
		})
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse",
		&ut.Body{Body: &buf, Len: buf.Len()},
		ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()})
	assert.Equal(t, consts.StatusBadRequest, w.Result().StatusCode())
}

func TestHandleParseErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("x: %w", service.ErrUnsupportedFormat), consts.StatusUnsupportedMediaType},
		{service.ErrFileTooLarge, consts.StatusRequestEntityTooLarge},
		{service.ErrNoObjectStore, consts.StatusNotImplemented},
		{fmt.Errorf("x: %w", storage.ErrObjectNotFound), consts.StatusNotFound},
		{parser.NewReadError("a.pdf", errors.New("corrupt")), consts.StatusUnprocessableEntity},
		{context.DeadlineExceeded, consts.StatusGatewayTimeout},
		{errors.New("boom"), consts.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			h := newTestServer(&fakeService{err: tc.err})
			w := ut.PerformRequest(h.Engine, consts.MethodPost, "/api/v1/resume/parse",
				jsonBody(`{"text":"x"}`),
				ut.Header{Key: "Content-Type", Value: "application/json"})
			res := w.Result()
			assert.Equal(t, tc.status, res.StatusCode())

			var e ErrorResponse
			require.NoError(t, json.Unmarshal(res.Body(), &e))
			assert.NotEmpty(t, e.RequestID)
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(&fakeService{})
	w := ut.PerformRequest(h.Engine, consts.MethodGet, "/api/v1/health", jsonBody(""))
	res := w.Result()
	assert.Equal(t, consts.StatusOK, res.StatusCode())
	assert.JSONEq(t, `{"status":"ok"}`, string(res.Body()))
}
