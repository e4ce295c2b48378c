package inpaint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient talks to a self hosted inpainting endpoint following the
// stable-diffusion-webui img2img convention: images travel as base64
// strings inside a JSON body.
type HTTPClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTP returns a client for the given inpainting endpoint URL.
func NewHTTP(endpoint string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type inpaintRequest struct {
	InitImages     []string `json:"init_images"`
	Mask           string   `json:"mask"`
	Prompt         string   `json:"prompt"`
	InpaintingFill int      `json:"inpainting_fill"`
	DenoisingStr   float64  `json:"denoising_strength"`
}

type inpaintResponse struct {
	Images []string `json:"images"`
}

// Inpaint implements the Client interface.
func (c *HTTPClient) Inpaint(ctx context.Context, image, mask []byte, prompt string) ([]byte, error) {
	if prompt == "" {
		prompt = DefaultPrompt
	}

	body, err := json.Marshal(inpaintRequest{
		InitImages:     []string{base64.StdEncoding.EncodeToString(image)},
		Mask:           base64.StdEncoding.EncodeToString(mask),
		Prompt:         prompt,
		InpaintingFill: 1,
		DenoisingStr:   0.75,
	})
	if err != nil {
		return nil, fmt.Errorf("inpaint: failed to encode the request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("inpaint: failed to build the request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inpaint: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(msg)}
	}

	var reply inpaintResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("inpaint: failed to decode the response: %w", err)
	}

	if len(reply.Images) == 0 {
		return nil, ErrNoImage
	}

	img, err := base64.StdEncoding.DecodeString(reply.Images[0])
	if err != nil {
		return nil, fmt.Errorf("inpaint: failed to decode the returned image: %w", err)
	}

	return img, nil
}
