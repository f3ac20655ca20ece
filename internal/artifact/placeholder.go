package artifact

import (
	"context"
	"fmt"
	"net/url"
)

// Placeholder defaults
const (
	PlaceholderName          = "placeholder"
	DefaultPlaceholderBase   = "https://picsum.photos"
	DefaultPlaceholderWidth  = 400
	DefaultPlaceholderHeight = 400
)

// Placeholder returns picsum.photos URLs keyed by the artifact identifier. It never fails
// and produces the same URL for the same request.
type Placeholder struct {
	baseURL string
	width   int
	height  int
}

// PlaceholderOption configures a Placeholder.
type PlaceholderOption func(*Placeholder)

// WithBaseURL overrides the image host.
func WithBaseURL(base string) PlaceholderOption {
	return func(p *Placeholder) {
		p.baseURL = base
	}
}

// WithDimensions sets the requested image size in pixels.
func WithDimensions(width, height int) PlaceholderOption {
	return func(p *Placeholder) {
		if width > 0 {
			p.width = width
		}
		if height > 0 {
			p.height = height
		}
	}
}

// NewPlaceholder creates a Placeholder source.
func NewPlaceholder(opts ...PlaceholderOption) *Placeholder {
	p := &Placeholder{
		baseURL: DefaultPlaceholderBase,
		width:   DefaultPlaceholderWidth,
		height:  DefaultPlaceholderHeight,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns "placeholder".
func (p *Placeholder) Name() string {
	return PlaceholderName
}

// Generate builds the image URL for req.
func (p *Placeholder) Generate(_ context.Context, req Request) (Image, error) {
	u := fmt.Sprintf("%s/%d/%d?random=%s", p.baseURL, p.width, p.height, url.QueryEscape(req.ID))
	if req.Variant {
		u += "&grayscale"
	}
	return Image{URL: u, MIMEType: "image/jpeg"}, nil
}
