package models

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		wantErr error
	}{
		{"normal prompt", "sunset over mountains", nil},
		{"empty prompt is left to the workflow", "", nil},
		{"exactly at limit", strings.Repeat("a", MaxPromptLength), nil},
		{"over limit", strings.Repeat("a", MaxPromptLength+1), ErrPromptTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := PromptRequest{Prompt: tt.prompt}
			err := req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestAPIResponseConstructors(t *testing.T) {
	ok := SuccessWithMessage("done", map[string]int{"n": 1})
	assert.Equal(t, string(APIStatusOK), ok.Status)
	assert.Equal(t, "done", ok.Message)

	errResp := Error("boom")
	assert.Equal(t, string(APIStatusError), errResp.Status)
	assert.Nil(t, errResp.Result)

	data, err := json.Marshal(Success(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestSessionHelpers(t *testing.T) {
	var empty Session
	assert.False(t, empty.HasResult())
	_, ok := empty.Latest()
	assert.False(t, ok)

	a := Artifact{ID: "a1", Prompt: "p"}
	s := Session{Current: &a, History: []Artifact{a}}
	assert.True(t, s.HasResult())
	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, "a1", latest.ID)
}
