package workflow

import (
	"time"

	"github.com/BTreeMap/PromptCanvas/internal/models"
)

// Opts holds configuration options for a PromptWorkflow.
type Opts struct {
	HistoryLimit int           // artifacts kept in history, newest first, at most models.DefaultHistoryLimit
	Timeout      time.Duration // per-attempt generation timeout; zero disables it
	MaxAttempts  int           // total attempts per generation, including the first
	Variant      bool          // variant flag passed to the artifact source
	Recorder     Recorder      // optional audit log of generation attempts
	Now          func() time.Time
	NewID        func() string
}

// Option defines a configuration option for a PromptWorkflow.
type Option func(*Opts)

// WithHistoryLimit sets how many artifacts are kept in history. Limits above
// models.DefaultHistoryLimit are lowered to it.
func WithHistoryLimit(limit int) Option {
	return func(o *Opts) {
		o.HistoryLimit = limit
	}
}

// WithTimeout bounds every call to the artifact source.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) {
		o.Timeout = d
	}
}

// WithMaxAttempts enables bounded retries with exponential backoff.
func WithMaxAttempts(n int) Option {
	return func(o *Opts) {
		o.MaxAttempts = n
	}
}

// WithVariant sets the variant flag sent with every request.
func WithVariant(variant bool) Option {
	return func(o *Opts) {
		o.Variant = variant
	}
}

// WithRecorder sets the receipt recorder notified after every generation attempt.
func WithRecorder(r Recorder) Option {
	return func(o *Opts) {
		o.Recorder = r
	}
}

// WithClock overrides the time source used for artifact timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// WithIDGenerator overrides the artifact identifier generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *Opts) {
		o.NewID = newID
	}
}

func defaultOpts() Opts {
	return Opts{
		HistoryLimit: models.DefaultHistoryLimit,
		MaxAttempts:  1,
		Now:          time.Now,
		NewID:        newArtifactID,
	}
}

func (o *Opts) normalize() {
	if o.HistoryLimit <= 0 || o.HistoryLimit > models.DefaultHistoryLimit {
		o.HistoryLimit = models.DefaultHistoryLimit
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = newArtifactID
	}
	if o.Timeout < 0 {
		o.Timeout = 0
	}
}
