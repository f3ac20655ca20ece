package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"true", false, true},
		{"YES", false, true},
		{" on ", false, true},
		{"0", true, false},
		{"off", true, false},
		{"maybe", true, true},
	}
	for _, tt := range tests {
		t.Setenv("PROMPTCANVAS_TEST_BOOL", tt.value)
		assert.Equal(t, tt.want, ParseBoolEnv("PROMPTCANVAS_TEST_BOOL", tt.def), "value %q", tt.value)
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("PROMPTCANVAS_TEST_INT", "")
	assert.Equal(t, 5, ParseIntEnv("PROMPTCANVAS_TEST_INT", 5))

	t.Setenv("PROMPTCANVAS_TEST_INT", " 12 ")
	assert.Equal(t, 12, ParseIntEnv("PROMPTCANVAS_TEST_INT", 5))

	t.Setenv("PROMPTCANVAS_TEST_INT", "twelve")
	assert.Equal(t, 5, ParseIntEnv("PROMPTCANVAS_TEST_INT", 5))
}

func TestParseDurationEnv(t *testing.T) {
	t.Setenv("PROMPTCANVAS_TEST_DURATION", "")
	assert.Equal(t, time.Second, ParseDurationEnv("PROMPTCANVAS_TEST_DURATION", time.Second))

	t.Setenv("PROMPTCANVAS_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, ParseDurationEnv("PROMPTCANVAS_TEST_DURATION", time.Second))

	t.Setenv("PROMPTCANVAS_TEST_DURATION", "soon")
	assert.Equal(t, time.Second, ParseDurationEnv("PROMPTCANVAS_TEST_DURATION", time.Second))
}
