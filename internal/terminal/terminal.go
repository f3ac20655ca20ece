// Package terminal renders the PromptCanvas session as an interactive terminal menu.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BTreeMap/PromptCanvas/internal/imgutil"
	"github.com/BTreeMap/PromptCanvas/internal/models"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/mdp/qrterminal/v3"
)

// Menu actions
const (
	ActionGenerate   = "Generate"
	ActionRegenerate = "Regenerate"
	ActionEditPrompt = "Edit prompt"
	ActionClear      = "Clear"
	ActionHistory    = "History"
	ActionShare      = "Share"
	ActionQuit       = "Quit"
)

var menuItems = []string{
	ActionGenerate,
	ActionRegenerate,
	ActionEditPrompt,
	ActionClear,
	ActionHistory,
	ActionShare,
	ActionQuit,
}

// maxDisplayURL is the longest image reference printed verbatim.
const maxDisplayURL = 96

// Workflow is the session behaviour the terminal drives.
type Workflow interface {
	Submit(ctx context.Context, promptText string) (models.Artifact, error)
	Regenerate(ctx context.Context) (models.Artifact, error)
	Clear()
	SetPrompt(text string)
	Snapshot() models.Session
}

// Prompter asks the user for input.
type Prompter interface {
	Select(label string, items []string) (string, error)
	Input(label, defaultValue string) (string, error)
}

// Terminal is the interactive rendering surface.
type Terminal struct {
	wf       Workflow
	prompter Prompter
	out      io.Writer
}

// Option configures a Terminal.
type Option func(*Terminal)

// WithOutput redirects rendered output.
func WithOutput(w io.Writer) Option {
	return func(t *Terminal) {
		t.out = w
	}
}

// WithPrompter replaces the interactive prompter.
func WithPrompter(p Prompter) Option {
	return func(t *Terminal) {
		t.prompter = p
	}
}

// New creates a Terminal bound to stdin and stdout.
func New(wf Workflow, opts ...Option) *Terminal {
	t := &Terminal{
		wf:       wf,
		prompter: promptuiPrompter{},
		out:      os.Stdout,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run shows the menu until the user quits, interrupts, or ctx is done.
func (t *Terminal) Run(ctx context.Context) error {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	fmt.Fprintln(t.out, cyan("PromptCanvas")+" - describe an image and generate it.")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		t.renderStatus()

		action, err := t.prompter.Select("What would you like to do?", menuItems)
		if err != nil {
			if isExit(err) {
				return nil
			}
			return fmt.Errorf("menu selection failed: %w", err)
		}
		if action == ActionQuit {
			return nil
		}
		if err := t.dispatch(ctx, action); err != nil {
			if isExit(err) {
				return nil
			}
			return err
		}
	}
}

func (t *Terminal) dispatch(ctx context.Context, action string) error {
	switch action {
	case ActionGenerate:
		return t.generate(ctx)
	case ActionRegenerate:
		t.report(t.wf.Regenerate(ctx))
	case ActionEditPrompt:
		return t.editPrompt()
	case ActionClear:
		t.clear()
	case ActionHistory:
		t.renderHistory()
	case ActionShare:
		t.share()
	default:
		slog.Warn("Terminal.dispatch: unknown action", "action", action)
	}
	return nil
}

func (t *Terminal) generate(ctx context.Context) error {
	text, err := t.prompter.Input("Prompt", t.wf.Snapshot().Prompt)
	if err != nil {
		return err
	}
	t.wf.SetPrompt(text)

	faint := color.New(color.Faint).SprintFunc()
	fmt.Fprintln(t.out, faint("Generating..."))
	t.report(t.wf.Submit(ctx, text))
	return nil
}

func (t *Terminal) editPrompt() error {
	text, err := t.prompter.Input("Prompt", t.wf.Snapshot().Prompt)
	if err != nil {
		return err
	}
	t.wf.SetPrompt(text)
	return nil
}

func (t *Terminal) clear() {
	if t.wf.Snapshot().Busy {
		t.warn("A generation is in progress; wait for it to finish before clearing.")
		return
	}
	t.wf.Clear()
	fmt.Fprintln(t.out, color.New(color.FgGreen).Sprint("Cleared. History is kept."))
}

// report prints the outcome of a generation as a colored banner.
func (t *Terminal) report(a models.Artifact, err error) {
	switch {
	case err == nil:
		green := color.New(color.FgGreen, color.Bold).SprintFunc()
		fmt.Fprintf(t.out, "%s %s\n", green("✔ Image generated!"), displayURL(a.ImageURL))
	case errors.Is(err, models.ErrEmptyPrompt):
		t.warn("Please enter a prompt to generate an image.")
	case errors.Is(err, models.ErrAlreadyInProgress):
		t.warn("A generation is already in progress.")
	case errors.Is(err, models.ErrNothingToRegenerate):
		t.warn("Nothing to regenerate yet. Generate an image first.")
	default:
		red := color.New(color.FgRed, color.Bold).SprintFunc()
		fmt.Fprintf(t.out, "%s %v\n", red("✘ Generation failed:"), err)
	}
}

func (t *Terminal) warn(msg string) {
	fmt.Fprintln(t.out, color.New(color.FgYellow).Sprint(msg))
}

func (t *Terminal) renderStatus() {
	snap := t.wf.Snapshot()
	cyan := color.New(color.FgCyan).SprintFunc()

	prompt := snap.Prompt
	if prompt == "" {
		prompt = color.New(color.Faint).Sprint("(empty)")
	}
	fmt.Fprintf(t.out, "\n%s %s\n", cyan("Prompt:"), prompt)
	if snap.HasResult() {
		fmt.Fprintf(t.out, "%s %s\n", cyan("Image:"), displayURL(snap.Current.ImageURL))
	}
	fmt.Fprintf(t.out, "%s %d\n", cyan("History:"), len(snap.History))
}

func (t *Terminal) renderHistory() {
	snap := t.wf.Snapshot()
	if len(snap.History) == 0 {
		t.warn("No history yet.")
		return
	}
	bold := color.New(color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	for i, a := range snap.History {
		fmt.Fprintf(t.out, "%d. %s\n   %s %s\n", i+1, bold(a.Prompt), faint(a.CreatedAt.Format("15:04:05")), displayURL(a.ImageURL))
	}
}

// share prints the current image URL as a QR code.
func (t *Terminal) share() {
	snap := t.wf.Snapshot()
	if !snap.HasResult() {
		t.warn("Nothing to share yet. Generate an image first.")
		return
	}
	if imgutil.IsDataURI(snap.Current.ImageURL) {
		t.warn("This image is stored inline and has no shareable link.")
		return
	}
	qrterminal.GenerateHalfBlock(snap.Current.ImageURL, qrterminal.L, t.out)
	fmt.Fprintln(t.out, snap.Current.ImageURL)
}

// displayURL shortens inline data URIs for display.
func displayURL(ref string) string {
	if imgutil.IsDataURI(ref) {
		mime, _, _ := strings.Cut(strings.TrimPrefix(ref, "data:"), ";")
		return fmt.Sprintf("[inline %s, %d bytes]", mime, len(ref))
	}
	if len(ref) > maxDisplayURL {
		return ref[:maxDisplayURL] + "..."
	}
	return ref
}

func isExit(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF)
}
