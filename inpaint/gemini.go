package inpaint

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is the image generation capable Gemini model
// used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash-exp"

// Gemini calls the Google Gemini API with the photo and the mask as
// inline image parts and expects an inline image blob back.
type Gemini struct {
	model string
}

// NewGemini returns a Gemini backed inpainting client. An empty model
// name selects DefaultGeminiModel. The API key is read from the
// GEMINI_API_KEY environment variable at call time.
func NewGemini(model string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{model: model}
}

// Inpaint implements the Client interface.
func (g *Gemini) Inpaint(ctx context.Context, image, mask []byte, prompt string) ([]byte, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("inpaint: GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("inpaint: failed to create the gemini client: %w", err)
	}
	defer client.Close()

	if prompt == "" {
		prompt = DefaultPrompt
	}

	model := client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx,
		genai.Text(prompt),
		genai.ImageData("png", image),
		genai.ImageData("png", mask),
	)
	if err != nil {
		return nil, fmt.Errorf("inpaint: failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return nil, ErrNoImage
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, ErrNoImage
	}

	for _, part := range candidate.Content.Parts {
		if blob, ok := part.(genai.Blob); ok {
			return blob.Data, nil
		}
	}

	return nil, ErrNoImage
}
