// Package inpaint provides the clients used to call a generative
// inpainting backend: the current image and the painted mask are sent
// out as encoded rasters and a full proposed replacement image comes
// back. The package knows nothing about compositing; the caller clips
// the reply through the mask itself.
package inpaint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"google.golang.org/api/googleapi"
)

// DefaultPrompt instructs the model to fill the masked region with
// context matching background content.
const DefaultPrompt = "Remove the objects covered by the white areas of the mask image " +
	"from the photo and fill the region with realistic, context matching background. " +
	"Keep every area outside the mask unchanged and return only the edited photo."

// Client sends an image and its mask to an inpainting backend and
// returns the encoded replacement image. Implementations perform a
// single attempt; retry policy is layered on through Retrier.
type Client interface {
	Inpaint(ctx context.Context, image, mask []byte, prompt string) ([]byte, error)
}

// ErrNoImage reports a backend reply that carried no image payload.
var ErrNoImage = errors.New("inpaint: the backend returned no image")

// StatusError reports a non-OK HTTP response from an inpainting endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inpaint: endpoint returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the status indicates a transient
// condition worth retrying: rate limiting or a server side failure.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// retryable classifies an error as transient. Rate limits and server
// failures are retried, everything else is surfaced to the caller
// right away.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}

	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return ge.Code == http.StatusTooManyRequests || ge.Code >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}

	return false
}
