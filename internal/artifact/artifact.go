// Package artifact defines the capability that turns a prompt into an image reference,
// along with the placeholder, OpenAI and Gemini implementations.
package artifact

import "context"

// Request describes one image to produce.
type Request struct {
	ID      string // unique, time-ordered artifact identifier
	Prompt  string // exact prompt text
	Variant bool   // implementation-defined variant flag (grayscale for the placeholder)
}

// Image is a reference to a produced image: an http(s) URL or a data URI.
type Image struct {
	URL      string
	MIMEType string
}

// Source produces image references for prompts.
type Source interface {
	// Name identifies the source in artifacts and receipts.
	Name() string
	// Generate produces an image for req.
	Generate(ctx context.Context, req Request) (Image, error)
}
