// Package models defines the core data structures for PromptCanvas.
//
// It includes the artifact and session types handed to rendering surfaces, generation
// receipts, and the JSON envelope shared by the API.
package models

import (
	"errors"
	"time"
)

// Validation constants for input validation
const (
	// MaxPromptLength defines the maximum allowed length for prompt text accepted over the API
	MaxPromptLength = 4096
	// DefaultHistoryLimit is the number of most-recent artifacts kept in session history
	DefaultHistoryLimit = 5
)

// Error variables for better error handling and testability
var (
	ErrEmptyPrompt         = errors.New("prompt cannot be empty")
	ErrAlreadyInProgress   = errors.New("a generation is already in progress")
	ErrGenerationFailed    = errors.New("image generation failed")
	ErrNothingToRegenerate = errors.New("no current result to regenerate")
	ErrPromptTooLong       = errors.New("prompt exceeds maximum length")
)

// Artifact is one generated-looking image together with the prompt that produced it.
type Artifact struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	ImageURL  string    `json:"image_url"`
	Source    string    `json:"source"`
	Variant   bool      `json:"variant,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReceiptStatus represents the outcome of a generation attempt.
type ReceiptStatus string

const (
	// ReceiptStatusGenerated indicates the artifact source returned an image.
	ReceiptStatusGenerated ReceiptStatus = "generated"
	// ReceiptStatusFailed indicates the artifact source failed.
	ReceiptStatusFailed ReceiptStatus = "failed"
)

// Receipt records a single generation attempt for the operator audit log.
type Receipt struct {
	ArtifactID string        `json:"artifact_id"`
	Prompt     string        `json:"prompt"`
	Source     string        `json:"source"`
	Status     ReceiptStatus `json:"status"`
	Error      string        `json:"error,omitempty"`
	Time       int64         `json:"time"`
}

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// PromptRequest is the payload for setting or submitting prompt text.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// Validate checks the request length. Blank prompts are left to the workflow so that
// the rejection is reported the same way on every surface.
func (r *PromptRequest) Validate() error {
	if len(r.Prompt) > MaxPromptLength {
		return ErrPromptTooLong
	}
	return nil
}
