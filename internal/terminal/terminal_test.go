package terminal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/PromptCanvas/internal/artifact"
	"github.com/BTreeMap/PromptCanvas/internal/models"
	"github.com/BTreeMap/PromptCanvas/internal/testutil"
	"github.com/BTreeMap/PromptCanvas/internal/workflow"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// scriptedPrompter replays canned answers.
type scriptedPrompter struct {
	selects []string
	inputs  []string
	labels  []string
}

func (p *scriptedPrompter) Select(label string, items []string) (string, error) {
	if len(p.selects) == 0 {
		return "", promptui.ErrInterrupt
	}
	choice := p.selects[0]
	p.selects = p.selects[1:]
	return choice, nil
}

func (p *scriptedPrompter) Input(label, defaultValue string) (string, error) {
	p.labels = append(p.labels, defaultValue)
	if len(p.inputs) == 0 {
		return "", promptui.ErrEOF
	}
	in := p.inputs[0]
	p.inputs = p.inputs[1:]
	return in, nil
}

func sourceWithURL(url string) *testutil.Source {
	src := testutil.NewSource("fixed")
	src.SetURL(url)
	return src
}

func runScript(t *testing.T, src artifact.Source, p *scriptedPrompter) (*workflow.PromptWorkflow, string) {
	t.Helper()
	wf := workflow.New(src)
	var out bytes.Buffer
	term := New(wf, WithPrompter(p), WithOutput(&out))
	require.NoError(t, term.Run(context.Background()))
	return wf, out.String()
}

func TestRun_GenerateThenQuit(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{ActionGenerate, ActionQuit},
		inputs:  []string{"sunset over mountains"},
	}
	wf, out := runScript(t, testutil.NewSource("fixed"), p)

	snap := wf.Snapshot()
	require.NotNil(t, snap.Current)
	assert.Equal(t, "sunset over mountains", snap.Current.Prompt)
	assert.Contains(t, out, "✔ Image generated!")
	assert.Contains(t, out, snap.Current.ImageURL)
}

func TestRun_EmptyPromptWarns(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{ActionGenerate, ActionQuit},
		inputs:  []string{"   "},
	}
	wf, out := runScript(t, testutil.NewSource("fixed"), p)

	assert.Contains(t, out, "Please enter a prompt")
	assert.Empty(t, wf.Snapshot().History)
}

func TestRun_FailureBanner(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{ActionGenerate},
		inputs:  []string{"a storm"},
	}
	src := testutil.NewSource("fixed")
	src.SetError(errors.New("upstream down"))
	wf, out := runScript(t, src, p)

	assert.Contains(t, out, "✘ Generation failed:")
	assert.Contains(t, out, "upstream down")
	assert.Nil(t, wf.Snapshot().Current)
}

func TestRun_EditPromptPrefillsGenerate(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{ActionEditPrompt, ActionGenerate, ActionQuit},
		inputs:  []string{"draft", "draft refined"},
	}
	wf, _ := runScript(t, testutil.NewSource("fixed"), p)

	require.Len(t, p.labels, 2)
	assert.Equal(t, "", p.labels[0])
	assert.Equal(t, "draft", p.labels[1])
	assert.Equal(t, "draft refined", wf.Snapshot().Current.Prompt)
}

func TestRun_ClearKeepsHistory(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{ActionGenerate, ActionClear, ActionHistory, ActionQuit},
		inputs:  []string{"a lighthouse"},
	}
	wf, out := runScript(t, testutil.NewSource("fixed"), p)

	snap := wf.Snapshot()
	assert.Nil(t, snap.Current)
	assert.Empty(t, snap.Prompt)
	assert.Len(t, snap.History, 1)
	assert.Contains(t, out, "Cleared. History is kept.")
	assert.Contains(t, out, "1. a lighthouse")
}

func TestRun_RegenerateWithoutResult(t *testing.T) {
	p := &scriptedPrompter{selects: []string{ActionRegenerate, ActionQuit}}
	_, out := runScript(t, testutil.NewSource("fixed"), p)

	assert.Contains(t, out, "Nothing to regenerate yet")
}

func TestRun_ShareHostedURL(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{ActionShare, ActionGenerate, ActionShare, ActionQuit},
		inputs:  []string{"a fox"},
	}
	wf, out := runScript(t, sourceWithURL("https://picsum.photos/400/400?random=1"), p)

	assert.Contains(t, out, "Nothing to share yet")
	assert.Equal(t, "https://picsum.photos/400/400?random=1", wf.Snapshot().Current.ImageURL)
	assert.True(t, strings.ContainsAny(out, "▀▄█"), "expected a QR code in output")
}

func TestRun_ShareInlineImage(t *testing.T) {
	p := &scriptedPrompter{
		selects: []string{ActionGenerate, ActionShare, ActionQuit},
		inputs:  []string{"inline"},
	}
	_, out := runScript(t, sourceWithURL("data:image/jpeg;base64,AQID"), p)

	assert.Contains(t, out, "no shareable link")
	assert.Contains(t, out, "[inline image/jpeg")
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &scriptedPrompter{selects: []string{ActionGenerate}}
	term := New(workflow.New(testutil.NewSource("fixed")), WithPrompter(p), WithOutput(&bytes.Buffer{}))
	require.NoError(t, term.Run(ctx))
	assert.Len(t, p.selects, 1)
}

func TestDisplayURL(t *testing.T) {
	assert.Equal(t, "https://x/y.png", displayURL("https://x/y.png"))
	long := "https://x/" + strings.Repeat("a", 200)
	assert.True(t, strings.HasSuffix(displayURL(long), "..."))
	assert.Equal(t, "[inline image/png, 26 bytes]", displayURL("data:image/png;base64,AQID"))
}

func TestValidatePromptLength(t *testing.T) {
	assert.NoError(t, validatePromptLength("short"))
	assert.ErrorIs(t, validatePromptLength(strings.Repeat("a", models.MaxPromptLength+1)), models.ErrPromptTooLong)
}
