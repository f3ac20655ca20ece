package artifact

import (
	"context"
	"fmt"

	"github.com/BTreeMap/PromptCanvas/internal/genai"
	"github.com/BTreeMap/PromptCanvas/internal/imgutil"
)

// OpenAIName identifies the OpenAI source.
const OpenAIName = "openai"

// imageGenerator is the part of genai.Client used here.
type imageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) (genai.Image, error)
}

// OpenAI produces images through the OpenAI Images API.
type OpenAI struct {
	client imageGenerator
}

// NewOpenAI wraps a genai client as an artifact source.
func NewOpenAI(client *genai.Client) *OpenAI {
	return &OpenAI{client: client}
}

// Name returns "openai".
func (o *OpenAI) Name() string {
	return OpenAIName
}

// Generate requests an image. Hosted URLs are returned as-is and base64 payloads as data URIs.
func (o *OpenAI) Generate(ctx context.Context, req Request) (Image, error) {
	img, err := o.client.GenerateImage(ctx, req.Prompt)
	if err != nil {
		return Image{}, fmt.Errorf("openai source: %w", err)
	}
	if img.URL != "" {
		return Image{URL: img.URL, MIMEType: "image/png"}, nil
	}
	uri, err := imgutil.DataURIFromBase64("image/png", img.B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("openai source: %w", err)
	}
	return Image{URL: uri, MIMEType: "image/png"}, nil
}
