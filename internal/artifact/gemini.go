package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/PromptCanvas/internal/imgutil"
	"google.golang.org/genai"
)

// Gemini defaults
const (
	GeminiName         = "gemini"
	DefaultGeminiModel = "gemini-2.5-flash-image"
)

// Gemini errors
var (
	ErrGeminiAPIKeyNotSet = errors.New("Gemini API key not set")
	ErrNoImageData        = errors.New("no image data in response")
)

// contentGenerator is the part of genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini produces images with a Gemini image model and returns them as JPEG data URIs.
type Gemini struct {
	models  contentGenerator
	model   string
	quality int
}

// GeminiOption configures a Gemini source.
type GeminiOption func(*Gemini)

// WithGeminiModel overrides the image model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *Gemini) {
		if model != "" {
			g.model = model
		}
	}
}

// WithJPEGQuality sets the recompression quality (1-100).
func WithJPEGQuality(quality int) GeminiOption {
	return func(g *Gemini) {
		if quality > 0 && quality <= 100 {
			g.quality = quality
		}
	}
}

// NewGemini creates a Gemini source using the Gemini API backend.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrGeminiAPIKeyNotSet
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models, opts...), nil
}

func newGemini(models contentGenerator, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		models:  models,
		model:   DefaultGeminiModel,
		quality: imgutil.DefaultJPEGQuality,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns "gemini".
func (g *Gemini) Name() string {
	return GeminiName
}

// Generate asks the model for an image and returns it inline.
func (g *Gemini) Generate(ctx context.Context, req Request) (Image, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	config := &genai.GenerateContentConfig{ResponseModalities: []string{"IMAGE"}}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return Image{}, fmt.Errorf("gemini source: %w", err)
	}
	data, mimeType, err := firstInlineImage(resp)
	if err != nil {
		return Image{}, fmt.Errorf("gemini source: %w", err)
	}

	if compressed, err := imgutil.CompressToJPEG(data, g.quality); err == nil {
		data, mimeType = compressed, "image/jpeg"
	} else {
		slog.Warn("Gemini.Generate: recompression failed, using original bytes", "error", err, "mimeType", mimeType)
	}

	uri, err := imgutil.DataURI(mimeType, data)
	if err != nil {
		return Image{}, fmt.Errorf("gemini source: %w", err)
	}
	return Image{URL: uri, MIMEType: mimeType}, nil
}

func firstInlineImage(resp *genai.GenerateContentResponse) ([]byte, string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, "", ErrNoImageData
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, part.InlineData.MIMEType, nil
			}
		}
	}
	return nil, "", ErrNoImageData
}
