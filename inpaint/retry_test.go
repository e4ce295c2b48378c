package inpaint

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// scriptedClient replays a fixed error sequence, then succeeds.
type scriptedClient struct {
	errs  []error
	calls int
}

func (c *scriptedClient) Inpaint(ctx context.Context, image, mask []byte, prompt string) ([]byte, error) {
	c.calls++
	if c.calls <= len(c.errs) {
		return nil, c.errs[c.calls-1]
	}
	return []byte("image-bytes"), nil
}

// failingClient never recovers.
type failingClient struct {
	err error
}

func (c *failingClient) Inpaint(ctx context.Context, image, mask []byte, prompt string) ([]byte, error) {
	return nil, c.err
}

func TestRetrier_RecoversFromTransientErrors(t *testing.T) {
	assert := assert.New(t)

	client := &scriptedClient{errs: []error{
		&StatusError{Code: http.StatusTooManyRequests},
		&StatusError{Code: http.StatusBadGateway},
	}}
	r := NewRetrier(client, 4, time.Millisecond)

	reply, err := r.Inpaint(context.Background(), nil, nil, "")
	assert.NoError(err)
	assert.Equal([]byte("image-bytes"), reply)
	assert.Equal(3, client.calls)
}

func TestRetrier_FatalErrorPassesThrough(t *testing.T) {
	assert := assert.New(t)

	fatal := &StatusError{Code: http.StatusBadRequest, Body: "malformed mask"}
	client := &scriptedClient{errs: []error{fatal}}
	r := NewRetrier(client, 5, time.Millisecond)

	_, err := r.Inpaint(context.Background(), nil, nil, "")
	assert.ErrorIs(err, error(fatal))
	assert.Equal(1, client.calls)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	assert := assert.New(t)

	transient := &StatusError{Code: http.StatusServiceUnavailable}
	client := &scriptedClient{errs: []error{transient, transient, transient}}
	r := NewRetrier(client, 3, time.Millisecond)

	_, err := r.Inpaint(context.Background(), nil, nil, "")
	assert.ErrorIs(err, error(transient))
	assert.Equal(3, client.calls)
}

func TestRetrier_ContextCancelDuringBackoff(t *testing.T) {
	assert := assert.New(t)

	client := &failingClient{err: &StatusError{Code: http.StatusTooManyRequests}}
	r := NewRetrier(client, 10, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := r.Inpaint(ctx, nil, nil, "")
		done <- err
	}()

	// Give the first attempt a chance to fail, then cancel mid backoff.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Inpaint expected to return promptly after the context was canceled")
	}
}

func TestRetryable_Classification(t *testing.T) {
	assert := assert.New(t)

	assert.True(retryable(&StatusError{Code: http.StatusTooManyRequests}))
	assert.True(retryable(&StatusError{Code: http.StatusInternalServerError}))
	assert.False(retryable(&StatusError{Code: http.StatusUnauthorized}))
	assert.False(retryable(errors.New("no api key configured")))
}
