// Package genai provides image generation backed by the OpenAI Images API.
package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Default configuration constants
const (
	// DefaultModel is the image model used when none is configured
	DefaultModel = string(openai.ImageModelDallE3)
	// DefaultSize is the image size requested when none is configured
	DefaultSize = "1024x1024"
	// DefaultQuality is the quality requested when none is configured
	DefaultQuality = "standard"
	// debugDirName is the subdirectory of the state directory holding request/response dumps
	debugDirName = "debug"
)

// Error variables for better error handling and testability
var (
	ErrAPIKeyNotSet      = errors.New("OpenAI API key not set")
	ErrNoImagesReturned  = errors.New("no images returned")
	ErrEmptyImagePayload = errors.New("image has neither url nor base64 payload")
)

// imageService defines the minimal interface for image generation.
type imageService interface {
	Generate(ctx context.Context, params openai.ImageGenerateParams, opts ...option.RequestOption) (*openai.ImagesResponse, error)
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey    string
	Model     string
	Size      string
	Quality   string
	DebugMode bool
	StateDir  string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey overrides the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel sets the image model (e.g. "dall-e-3", "gpt-image-1").
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// WithSize sets the requested image size (e.g. "1024x1024").
func WithSize(size string) Option {
	return func(o *Opts) {
		o.Size = size
	}
}

// WithQuality sets the requested image quality.
func WithQuality(quality string) Option {
	return func(o *Opts) {
		o.Quality = quality
	}
}

// WithDebug enables writing request/response dumps under stateDir/debug.
func WithDebug(stateDir string) Option {
	return func(o *Opts) {
		o.DebugMode = true
		o.StateDir = stateDir
	}
}

// Image is the result of a single image generation call.
type Image struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// Client wraps the OpenAI Images service for generating images from prompts.
type Client struct {
	images    imageService
	model     string
	size      string
	quality   string
	debugMode bool
	stateDir  string
}

// NewClient initializes a new GenAI client, using OPENAI_API_KEY unless overridden by options.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{
		APIKey:  os.Getenv("OPENAI_API_KEY"),
		Model:   DefaultModel,
		Size:    DefaultSize,
		Quality: DefaultQuality,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		slog.Error("GenAI.NewClient: API key not set")
		return nil, ErrAPIKeyNotSet
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("GenAI.NewClient: client created", "model", cfg.Model, "size", cfg.Size, "quality", cfg.Quality, "debug", cfg.DebugMode)
	return &Client{
		images:    &cli.Images,
		model:     cfg.Model,
		size:      cfg.Size,
		quality:   cfg.Quality,
		debugMode: cfg.DebugMode,
		stateDir:  cfg.StateDir,
	}, nil
}

// Model returns the configured image model name.
func (c *Client) Model() string {
	return c.model
}

// GenerateImage requests a single image for the prompt.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (Image, error) {
	params := openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(c.model),
		N:      openai.Int(1),
		Size:   openai.ImageGenerateParamsSize(c.size),
	}
	if c.quality != "" {
		params.Quality = openai.ImageGenerateParamsQuality(c.quality)
	}
	// gpt-image models always answer with base64 and reject response_format.
	if c.model != string(openai.ImageModelGPTImage1) {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatURL
	}

	slog.Debug("GenAI.GenerateImage: sending request", "model", c.model, "size", c.size, "prompt_length", len(prompt))
	start := time.Now()
	resp, err := c.images.Generate(ctx, params)
	if err != nil {
		slog.Error("GenAI.GenerateImage: request failed", "error", err, "model", c.model)
		c.writeDebug(params, nil, err)
		return Image{}, fmt.Errorf("image generation request failed: %w", err)
	}
	c.writeDebug(params, resp, nil)

	if resp == nil || len(resp.Data) == 0 {
		slog.Warn("GenAI.GenerateImage: no images in response", "model", c.model)
		return Image{}, ErrNoImagesReturned
	}
	first := resp.Data[0]
	if first.URL == "" && first.B64JSON == "" {
		return Image{}, ErrEmptyImagePayload
	}

	slog.Debug("GenAI.GenerateImage: image received", "model", c.model, "has_url", first.URL != "", "elapsed", time.Since(start))
	return Image{URL: first.URL, B64JSON: first.B64JSON, RevisedPrompt: first.RevisedPrompt}, nil
}

// debugRecord is the on-disk shape of a debug dump.
type debugRecord struct {
	Timestamp string                     `json:"timestamp"`
	Request   openai.ImageGenerateParams `json:"request"`
	Response  *openai.ImagesResponse     `json:"response,omitempty"`
	Error     string                     `json:"error,omitempty"`
}

// writeDebug dumps the request and response when debug mode is on. Failures are logged only.
func (c *Client) writeDebug(params openai.ImageGenerateParams, resp *openai.ImagesResponse, callErr error) {
	if !c.debugMode || c.stateDir == "" {
		return
	}
	dir := filepath.Join(c.stateDir, debugDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Warn("GenAI.writeDebug: failed to create debug directory", "error", err, "dir", dir)
		return
	}

	rec := debugRecord{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Request:   params,
		Response:  resp,
	}
	if callErr != nil {
		rec.Error = callErr.Error()
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		slog.Warn("GenAI.writeDebug: failed to marshal debug record", "error", err)
		return
	}

	name := fmt.Sprintf("image_%s.json", time.Now().UTC().Format("20060102T150405.000000000"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Warn("GenAI.writeDebug: failed to write debug file", "error", err, "path", path)
		return
	}
	slog.Debug("GenAI.writeDebug: debug file written", "path", path)
}
