package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retractor-go/internal/constants"
	"retractor-go/internal/parser"
	"retractor-go/internal/service"
	"retractor-go/internal/storage"
	"retractor-go/internal/types"
)

type published struct {
	exchange, routingKey string
	msg                  storage.ParseResultMessage
}

type fakeTransport struct {
	mu         sync.Mutex
	published  []published
	publishErr error
	handlers   []func(context.Context, []byte) bool
	startErr   error
}

func (f *fakeTransport) StartConsumer(ctx context.Context, _ string, _ int, handler func(context.Context, []byte) bool) (<-chan struct{}, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.mu.Lock()
	f.handlers = append(f.handlers, handler)
	f.mu.Unlock()
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()
	return done, nil
}

func (f *fakeTransport) PublishJSON(_ context.Context, exchange, routingKey string, data any, _ bool) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	// 经过一次序列化，与真实队列一致
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var msg storage.ParseResultMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return err
	}
	f.mu.Lock()
	f.published = append(f.published, published{exchange, routingKey, msg})
	f.mu.Unlock()
	return nil
}

type fakeParser struct {
	textErr   error
	objectErr error
}

func (p fakeParser) ParseText(_ context.Context, text string) (service.Outcome, error) {
	if p.textErr != nil {
		return service.Outcome{}, p.textErr
	}
	res := types.NewParsedResume()
	res.Name = &text
	return service.Outcome{Resume: res}, nil
}

func (p fakeParser) ParseObject(_ context.Context, key string) (service.Outcome, error) {
	if p.objectErr != nil {
		return service.Outcome{}, p.objectErr
	}
	res := types.NewParsedResume()
	res.Name = &key
	return service.Outcome{Resume: res, Cached: true}, nil
}

type memDeduper struct {
	mu      sync.Mutex
	done    map[string]bool
	cleared []string
}

func (d *memDeduper) MarkRequestDone(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done[id] {
		return false, nil
	}
	d.done[id] = true
	return true, nil
}

func (d *memDeduper) ClearRequestDone(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.done, id)
	d.cleared = append(d.cleared, id)
	return nil
}

var testConfig = Config{
	RequestQueue:     "q.requests",
	ResultExchange:   "resume.parse.exchange",
	ResultRoutingKey: "resume.parsed",
	Workers:          2,
}

func newWorker(t *testing.T, tr Transport, p ResumeParser, opts ...Option) *Worker {
	t.Helper()
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	w, err := New(tr, p, testConfig, opts...)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC) }
	return w
}

func body(t *testing.T, msg storage.ParseRequestMessage) []byte {
	b, err := json.Marshal(msg)
	require.NoError(t, err)
	return b
}

func TestHandleTextRequest(t *testing.T) {
	tr := &fakeTransport{}
	w := newWorker(t, tr, fakeParser{})

	ack := w.Handle(context.Background(), body(t, storage.ParseRequestMessage{RequestID: "r-1", Text: "Jane Doe"}))
	assert.True(t, ack)

	require.Len(t, tr.published, 1)
	p := tr.published[0]
	assert.Equal(t, "resume.parse.exchange", p.exchange)
	assert.Equal(t, "resume.parsed", p.routingKey)
	assert.Equal(t, "r-1", p.msg.RequestID)
	assert.Equal(t, constants.StatusSucceeded, p.msg.Status)
	require.NotNil(t, p.msg.Resume)
	assert.Equal(t, "Jane Doe", *p.msg.Resume.Name)
	assert.False(t, p.msg.Cached)
}

func TestHandleObjectRequestTakesPrecedence(t *testing.T) {
	tr := &fakeTransport{}
	w := newWorker(t, tr, fakeParser{})

	assert.True(t, w.Handle(context.Background(), body(t, storage.ParseRequestMessage{
		RequestID: "r-2", ObjectKey: "resumes/a.pdf", Text: "ignored",
	})))
	require.Len(t, tr.published, 1)
	assert.Equal(t, "resumes/a.pdf", *tr.published[0].msg.Resume.Name)
	assert.True(t, tr.published[0].msg.Cached)
}

func TestHandleGeneratesRequestID(t *testing.T) {
	tr := &fakeTransport{}
	w := newWorker(t, tr, fakeParser{})

	assert.True(t, w.Handle(context.Background(), body(t, storage.ParseRequestMessage{Text: "x"})))
	require.Len(t, tr.published, 1)
	assert.Len(t, tr.published[0].msg.RequestID, 36)
}

func TestHandlePermanentFailuresAreAcked(t *testing.T) {
	cases := map[string]struct {
		msg storage.ParseRequestMessage
		p   fakeParser
	}{
		"empty":       {storage.ParseRequestMessage{RequestID: "e"}, fakeParser{}},
		"unsupported": {storage.ParseRequestMessage{RequestID: "u", ObjectKey: "a.exe"}, fakeParser{objectErr: service.ErrUnsupportedFormat}},
		"missing":     {storage.ParseRequestMessage{RequestID: "m", ObjectKey: "a.pdf"}, fakeParser{objectErr: fmt.Errorf("x: %w", storage.ErrObjectNotFound)}},
		"unreadable":  {storage.ParseRequestMessage{RequestID: "r", ObjectKey: "a.pdf"}, fakeParser{objectErr: parser.NewReadError("a.pdf", errors.New("corrupt"))}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			tr := &fakeTransport{}
			w := newWorker(t, tr, tc.p)
			assert.True(t, w.Handle(context.Background(), body(t, tc.msg)))
			require.Len(t, tr.published, 1)
			assert.Equal(t, constants.StatusFailed, tr.published[0].msg.Status)
			assert.NotEmpty(t, tr.published[0].msg.Error)
			assert.Nil(t, tr.published[0].msg.Resume)
		})
	}
}

func TestHandleInfrastructureFailureIsNacked(t *testing.T) {
	tr := &fakeTransport{}
	d := &memDeduper{done: map[string]bool{}}
	w := newWorker(t, tr, fakeParser{objectErr: errors.New("minio timeout")}, WithDeduper(d))

	assert.False(t, w.Handle(context.Background(), body(t, storage.ParseRequestMessage{RequestID: "r-3", ObjectKey: "a.pdf"})))
	assert.Empty(t, tr.published)
	assert.Equal(t, []string{"r-3"}, d.cleared, "失败后允许重新投递")
}

func TestHandlePublishFailureIsNacked(t *testing.T) {
	tr := &fakeTransport{publishErr: errors.New("channel closed")}
	w := newWorker(t, tr, fakeParser{})
	assert.False(t, w.Handle(context.Background(), body(t, storage.ParseRequestMessage{RequestID: "r-4", Text: "x"})))
}

func TestHandleMalformedMessageIsDropped(t *testing.T) {
	tr := &fakeTransport{}
	w := newWorker(t, tr, fakeParser{})
	assert.True(t, w.Handle(context.Background(), []byte("{not json")))
	assert.Empty(t, tr.published)
}

func TestHandleDuplicateDelivery(t *testing.T) {
	tr := &fakeTransport{}
	d := &memDeduper{done: map[string]bool{}}
	w := newWorker(t, tr, fakeParser{}, WithDeduper(d))

	msg := body(t, storage.ParseRequestMessage{RequestID: "dup", Text: "x"})
	assert.True(t, w.Handle(context.Background(), msg))
	assert.True(t, w.Handle(context.Background(), msg))
	assert.Len(t, tr.published, 1)
}

func TestStartAndWait(t *testing.T) {
	tr := &fakeTransport{}
	w := newWorker(t, tr, fakeParser{})
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, w.Start(ctx))
	assert.Len(t, tr.handlers, 2)

	cancel()
	waited := make(chan struct{})
	go func() {
		w.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("消费者未退出")
	}
}

func TestStartError(t *testing.T) {
	w := newWorker(t, &fakeTransport{startErr: errors.New("no channel")}, fakeParser{})
	assert.Error(t, w.Start(context.Background()))
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, fakeParser{}, testConfig)
	assert.Error(t, err)
	_, err = New(&fakeTransport{}, fakeParser{}, Config{})
	assert.Error(t, err)
}
