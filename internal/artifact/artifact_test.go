package artifact

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/BTreeMap/PromptCanvas/internal/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gg "google.golang.org/genai"
)

func TestPlaceholder_Generate(t *testing.T) {
	p := NewPlaceholder()
	assert.Equal(t, "placeholder", p.Name())

	img, err := p.Generate(context.Background(), Request{ID: "abc", Prompt: "sunset over mountains"})
	require.NoError(t, err)
	assert.Equal(t, "https://picsum.photos/400/400?random=abc", img.URL)

	again, err := p.Generate(context.Background(), Request{ID: "abc", Prompt: "something else"})
	require.NoError(t, err)
	assert.Equal(t, img.URL, again.URL, "same id must produce the same url")
}

func TestPlaceholder_Variant(t *testing.T) {
	p := NewPlaceholder(WithBaseURL("http://img.local"), WithDimensions(200, 100))

	img, err := p.Generate(context.Background(), Request{ID: "x1", Variant: true})
	require.NoError(t, err)
	assert.Equal(t, "http://img.local/200/100?random=x1&grayscale", img.URL)
}

type mockImageGenerator struct {
	img    genai.Image
	err    error
	prompt string
}

func (m *mockImageGenerator) GenerateImage(ctx context.Context, prompt string) (genai.Image, error) {
	m.prompt = prompt
	return m.img, m.err
}

func TestOpenAI_Generate(t *testing.T) {
	t.Run("hosted url", func(t *testing.T) {
		gen := &mockImageGenerator{img: genai.Image{URL: "https://cdn.example.com/1.png"}}
		src := &OpenAI{client: gen}

		img, err := src.Generate(context.Background(), Request{ID: "1", Prompt: "a cat"})
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/1.png", img.URL)
		assert.Equal(t, "a cat", gen.prompt)
	})

	t.Run("base64 payload", func(t *testing.T) {
		src := &OpenAI{client: &mockImageGenerator{img: genai.Image{B64JSON: "aGVsbG8="}}}

		img, err := src.Generate(context.Background(), Request{ID: "2", Prompt: "a dog"})
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,aGVsbG8=", img.URL)
	})

	t.Run("client error", func(t *testing.T) {
		boom := errors.New("boom")
		src := &OpenAI{client: &mockImageGenerator{err: boom}}

		_, err := src.Generate(context.Background(), Request{ID: "3", Prompt: "x"})
		assert.ErrorIs(t, err, boom)
	})
}

type mockContentGenerator struct {
	resp  *gg.GenerateContentResponse
	err   error
	model string
}

func (m *mockContentGenerator) GenerateContent(ctx context.Context, model string, contents []*gg.Content, config *gg.GenerateContentConfig) (*gg.GenerateContentResponse, error) {
	m.model = model
	return m.resp, m.err
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func TestGemini_Generate(t *testing.T) {
	t.Run("inline image is recompressed to jpeg", func(t *testing.T) {
		gen := &mockContentGenerator{resp: &gg.GenerateContentResponse{
			Candidates: []*gg.Candidate{{
				Content: &gg.Content{Parts: []*gg.Part{
					{Text: "here you go"},
					{InlineData: &gg.Blob{MIMEType: "image/png", Data: pngBytes(t)}},
				}},
			}},
		}}
		src := newGemini(gen, WithGeminiModel("test-model"))
		assert.Equal(t, "gemini", src.Name())

		img, err := src.Generate(context.Background(), Request{ID: "g1", Prompt: "a tree"})
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.MIMEType)
		assert.True(t, strings.HasPrefix(img.URL, "data:image/jpeg;base64,"))
		assert.Equal(t, "test-model", gen.model)
	})

	t.Run("undecodable bytes are kept", func(t *testing.T) {
		gen := &mockContentGenerator{resp: &gg.GenerateContentResponse{
			Candidates: []*gg.Candidate{{
				Content: &gg.Content{Parts: []*gg.Part{{InlineData: &gg.Blob{MIMEType: "image/webp", Data: []byte{1, 2, 3}}}}},
			}},
		}}

		img, err := newGemini(gen).Generate(context.Background(), Request{ID: "g2", Prompt: "x"})
		require.NoError(t, err)
		assert.Equal(t, "data:image/webp;base64,AQID", img.URL)
	})

	t.Run("text only response", func(t *testing.T) {
		gen := &mockContentGenerator{resp: &gg.GenerateContentResponse{
			Candidates: []*gg.Candidate{{Content: &gg.Content{Parts: []*gg.Part{{Text: "sorry"}}}}},
		}}

		_, err := newGemini(gen).Generate(context.Background(), Request{ID: "g3", Prompt: "x"})
		assert.ErrorIs(t, err, ErrNoImageData)
	})

	t.Run("api error", func(t *testing.T) {
		_, err := newGemini(&mockContentGenerator{err: errors.New("quota")}).Generate(context.Background(), Request{ID: "g4"})
		assert.ErrorContains(t, err, "quota")
	})
}

func TestNewGemini_NoKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "")
	assert.ErrorIs(t, err, ErrGeminiAPIKeyNotSet)
}
