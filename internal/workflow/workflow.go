// Package workflow owns the prompt-to-image session state and its transitions.
//
// A PromptWorkflow holds exactly one session: the prompt text, a busy flag, the current
// result and a bounded newest-first history. Rendering surfaces read Snapshot values and
// call Submit, Clear, SetPrompt and Regenerate; they never touch the state directly.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/BTreeMap/PromptCanvas/internal/artifact"
	"github.com/BTreeMap/PromptCanvas/internal/models"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// ErrEmptyImage is returned when a source reports success without an image reference.
var ErrEmptyImage = errors.New("artifact source returned an empty image reference")

// Recorder receives one receipt per generation attempt.
type Recorder interface {
	AddReceipt(r models.Receipt) error
}

// Listener is called with a fresh snapshot after every state change.
type Listener func(models.Session)

// PromptWorkflow is the single-session state machine behind every rendering surface.
type PromptWorkflow struct {
	source     artifact.Source
	opts       Opts
	newBackOff func() backoff.BackOff

	mu           sync.Mutex
	promptText   string
	busy         bool
	current      *models.Artifact
	history      []models.Artifact
	version      uint64
	listeners    map[int]Listener
	nextListener int

	// notifyMu orders delivery; delivered is the newest version handed to listeners.
	notifyMu  sync.Mutex
	delivered uint64
}

// New creates a PromptWorkflow generating images with the given source.
func New(source artifact.Source, opts ...Option) *PromptWorkflow {
	cfg := defaultOpts()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.normalize()

	slog.Debug("PromptWorkflow.New: workflow created", "source", source.Name(), "historyLimit", cfg.HistoryLimit,
		"timeout", cfg.Timeout, "maxAttempts", cfg.MaxAttempts, "variant", cfg.Variant)
	return &PromptWorkflow{
		source:     source,
		opts:       cfg,
		newBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
		history:    make([]models.Artifact, 0, cfg.HistoryLimit),
		listeners:  make(map[int]Listener),
	}
}

// SourceName returns the name of the configured artifact source.
func (w *PromptWorkflow) SourceName() string {
	return w.source.Name()
}

// HistoryLimit returns the configured history bound.
func (w *PromptWorkflow) HistoryLimit() int {
	return w.opts.HistoryLimit
}

// Submit generates an artifact for promptText. Blank prompts are rejected with
// ErrEmptyPrompt and a second submit while one is in flight gets ErrAlreadyInProgress;
// neither changes any state. A source failure is reported as ErrGenerationFailed and
// leaves the current result and history untouched.
//
// Once started, generation is not cancelled by ctx.
func (w *PromptWorkflow) Submit(ctx context.Context, promptText string) (models.Artifact, error) {
	if strings.TrimSpace(promptText) == "" {
		slog.Warn("PromptWorkflow.Submit: empty prompt rejected")
		return models.Artifact{}, models.ErrEmptyPrompt
	}

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		slog.Warn("PromptWorkflow.Submit: generation already in progress")
		return models.Artifact{}, models.ErrAlreadyInProgress
	}
	prevPrompt := w.promptText
	snap := w.beginLocked(promptText)
	w.mu.Unlock()
	w.notify(snap)

	return w.generate(ctx, promptText, prevPrompt)
}

// Regenerate resubmits the prompt of the current result.
func (w *PromptWorkflow) Regenerate(ctx context.Context) (models.Artifact, error) {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		slog.Warn("PromptWorkflow.Regenerate: generation already in progress")
		return models.Artifact{}, models.ErrAlreadyInProgress
	}
	if w.current == nil {
		w.mu.Unlock()
		slog.Warn("PromptWorkflow.Regenerate: no current result")
		return models.Artifact{}, models.ErrNothingToRegenerate
	}
	promptText := w.current.Prompt
	prevPrompt := w.promptText
	snap := w.beginLocked(promptText)
	w.mu.Unlock()
	w.notify(snap)

	return w.generate(ctx, promptText, prevPrompt)
}

// Clear resets the prompt text and current result. History is kept.
func (w *PromptWorkflow) Clear() {
	w.mu.Lock()
	w.promptText = ""
	w.current = nil
	w.version++
	snap := w.snapshotLocked()
	w.mu.Unlock()

	slog.Debug("PromptWorkflow.Clear: session cleared", "history", len(snap.History))
	w.notify(snap)
}

// TryClear clears the session unless a generation is in flight.
func (w *PromptWorkflow) TryClear() error {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return models.ErrAlreadyInProgress
	}
	w.promptText = ""
	w.current = nil
	w.version++
	snap := w.snapshotLocked()
	w.mu.Unlock()

	slog.Debug("PromptWorkflow.TryClear: session cleared", "history", len(snap.History))
	w.notify(snap)
	return nil
}

// SetPrompt updates the prompt text without generating anything.
func (w *PromptWorkflow) SetPrompt(text string) {
	w.mu.Lock()
	if w.promptText == text {
		w.mu.Unlock()
		return
	}
	w.promptText = text
	w.version++
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(snap)
}

// Snapshot returns a deep copy of the current session state.
func (w *PromptWorkflow) Snapshot() models.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Subscribe registers fn for state changes and returns a function that removes it.
// Listeners run on the goroutine that changed the state, one at a time and in state
// order; a snapshot older than one already delivered is skipped. Listeners must not
// block or change the workflow.
func (w *PromptWorkflow) Subscribe(fn Listener) func() {
	w.mu.Lock()
	id := w.nextListener
	w.nextListener++
	w.listeners[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.listeners, id)
			w.mu.Unlock()
		})
	}
}

// beginLocked marks the session busy. Caller must hold w.mu.
func (w *PromptWorkflow) beginLocked(promptText string) models.Session {
	w.busy = true
	w.promptText = promptText
	w.version++
	return w.snapshotLocked()
}

// generate runs the source call and applies its outcome. On failure the prompt text
// goes back to prevPrompt unless it was edited while the call was in flight.
func (w *PromptWorkflow) generate(ctx context.Context, promptText, prevPrompt string) (models.Artifact, error) {
	req := artifact.Request{
		ID:      w.opts.NewID(),
		Prompt:  promptText,
		Variant: w.opts.Variant,
	}
	createdAt := w.opts.Now()

	slog.Debug("PromptWorkflow.generate: generation started", "id", req.ID, "source", w.source.Name())
	img, err := w.callSource(context.WithoutCancel(ctx), req)

	if err != nil {
		w.mu.Lock()
		w.busy = false
		if w.promptText == promptText {
			w.promptText = prevPrompt
		}
		w.version++
		snap := w.snapshotLocked()
		w.mu.Unlock()
		w.notify(snap)

		slog.Error("PromptWorkflow.generate: generation failed", "id", req.ID, "source", w.source.Name(), "error", err)
		w.record(models.Receipt{
			ArtifactID: req.ID,
			Prompt:     promptText,
			Source:     w.source.Name(),
			Status:     models.ReceiptStatusFailed,
			Error:      err.Error(),
			Time:       createdAt.Unix(),
		})
		return models.Artifact{}, fmt.Errorf("%w: %w", models.ErrGenerationFailed, err)
	}

	a := models.Artifact{
		ID:        req.ID,
		Prompt:    promptText,
		ImageURL:  img.URL,
		Source:    w.source.Name(),
		Variant:   req.Variant,
		CreatedAt: createdAt,
	}

	w.mu.Lock()
	current := a
	w.current = &current
	w.history = append([]models.Artifact{a}, w.history...)
	if len(w.history) > w.opts.HistoryLimit {
		w.history = w.history[:w.opts.HistoryLimit]
	}
	w.busy = false
	w.version++
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.notify(snap)

	slog.Info("PromptWorkflow.generate: artifact generated", "id", a.ID, "source", a.Source, "history", len(snap.History))
	w.record(models.Receipt{
		ArtifactID: a.ID,
		Prompt:     promptText,
		Source:     a.Source,
		Status:     models.ReceiptStatusGenerated,
		Time:       createdAt.Unix(),
	})
	return a, nil
}

// callSource calls the artifact source, applying the per-attempt timeout and bounded retry.
func (w *PromptWorkflow) callSource(ctx context.Context, req artifact.Request) (artifact.Image, error) {
	attempt := 0
	op := func() (artifact.Image, error) {
		attempt++
		attemptCtx := ctx
		if w.opts.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
			defer cancel()
		}

		img, err := w.source.Generate(attemptCtx, req)
		if err != nil {
			slog.Warn("PromptWorkflow.callSource: attempt failed", "id", req.ID, "attempt", attempt, "error", err)
			return artifact.Image{}, err
		}
		if img.URL == "" {
			return artifact.Image{}, backoff.Permanent(ErrEmptyImage)
		}
		return img, nil
	}

	if w.opts.MaxAttempts <= 1 {
		img, err := op()
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return img, perm.Err
		}
		return img, err
	}

	b := backoff.WithMaxRetries(w.newBackOff(), uint64(w.opts.MaxAttempts-1))
	return backoff.RetryWithData(op, backoff.WithContext(b, ctx))
}

func (w *PromptWorkflow) record(r models.Receipt) {
	if w.opts.Recorder == nil {
		return
	}
	if err := w.opts.Recorder.AddReceipt(r); err != nil {
		slog.Warn("PromptWorkflow.record: failed to store receipt", "id", r.ArtifactID, "error", err)
	}
}

// snapshotLocked copies the session state. Caller must hold w.mu.
func (w *PromptWorkflow) snapshotLocked() models.Session {
	s := models.Session{
		Version: w.version,
		Prompt:  w.promptText,
		Busy:    w.busy,
		State:   models.StateIdle,
		History: make([]models.Artifact, len(w.history)),
	}
	if w.busy {
		s.State = models.StateBusy
	}
	copy(s.History, w.history)
	if w.current != nil {
		current := *w.current
		s.Current = &current
	}
	return s
}

// notify hands snap to every listener unless a newer snapshot was already delivered.
func (w *PromptWorkflow) notify(snap models.Session) {
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	if snap.Version <= w.delivered {
		slog.Debug("PromptWorkflow.notify: stale snapshot skipped", "version", snap.Version, "delivered", w.delivered)
		return
	}
	w.delivered = snap.Version

	w.mu.Lock()
	listeners := make([]Listener, 0, len(w.listeners))
	for _, fn := range w.listeners {
		listeners = append(listeners, fn)
	}
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func newArtifactID() string {
	return uuid.Must(uuid.NewV7()).String()
}
