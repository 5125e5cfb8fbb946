package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	applogger "ProScalper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeService struct {
	name     string
	rec      *recorder
	startErr error
}

func (s *fakeService) Start() error {
	s.rec.add(s.name + ".start")
	return s.startErr
}

func (s *fakeService) Stop(context.Context) error {
	s.rec.add(s.name + ".stop")
	return nil
}

type fakeRunner struct {
	rec     *recorder
	started chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	r.rec.add("runner.stop")
	return nil
}

type fakeCloser struct{ rec *recorder }

func (c fakeCloser) Close() error {
	c.rec.add("closer.close")
	return nil
}

func TestServeShutdownOrder(t *testing.T) {
	rec := &recorder{}
	runner := &fakeRunner{rec: rec, started: make(chan struct{})}
	app := New(applogger.Nop(), &fakeService{name: "http", rec: rec},
		WithConsumer(&fakeService{name: "consumer", rec: rec}),
		WithRunner("scanner", runner),
		WithCloser("publisher", fakeCloser{rec: rec}),
		WithShutdownTimeout(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- app.Serve(ctx) }()

	select {
	case <-runner.started:
	case <-time.After(time.Second):
		t.Fatal("runner not started")
	}
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return")
	}

	assert.Equal(t, []string{
		"consumer.start",
		"http.start",
		"http.stop",
		"consumer.stop",
		"runner.stop",
		"closer.close",
	}, rec.list())
}

func TestServeConsumerStartFailure(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("no handlers registered")
	app := New(nil, &fakeService{name: "http", rec: rec},
		WithConsumer(&fakeService{name: "consumer", rec: rec, startErr: boom}),
		WithCloser("publisher", fakeCloser{rec: rec}),
	)

	err := app.Serve(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"consumer.start", "closer.close"}, rec.list())
}

func TestServeHTTPStartFailureStopsConsumer(t *testing.T) {
	rec := &recorder{}
	boom := errors.New("listen 0.0.0.0:8080: address already in use")
	app := New(nil, &fakeService{name: "http", rec: rec, startErr: boom},
		WithConsumer(&fakeService{name: "consumer", rec: rec}),
		WithCloser("publisher", fakeCloser{rec: rec}),
	)

	err := app.Serve(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"consumer.start", "http.start", "consumer.stop", "closer.close"}, rec.list())
}

func TestNilOptionsIgnored(t *testing.T) {
	app := New(nil, &fakeService{name: "http", rec: &recorder{}},
		WithConsumer(nil),
		WithRunner("none", nil),
		WithCloser("none", nil),
		WithShutdownTimeout(0),
	)
	assert.Nil(t, app.consumer)
	assert.Empty(t, app.runners)
	assert.Empty(t, app.closers)
	assert.Equal(t, 10*time.Second, app.shutdownTimeout)
}
