package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Setenv(EnvModel, "")
	assert.Equal(t, "fallback", String(EnvModel, "fallback"))

	t.Setenv(EnvModel, "  models/x.onnx ")
	assert.Equal(t, "models/x.onnx", String(EnvModel, "fallback"))
}

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"unset", "", 7},
		{"valid", "42", 42},
		{"malformed", "forty", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEACHABLE_TEST_INT", tt.value)
			assert.Equal(t, tt.want, Int("TEACHABLE_TEST_INT", 7))
		})
	}
}

func TestBool(t *testing.T) {
	t.Setenv("TEACHABLE_TEST_BOOL", "true")
	assert.True(t, Bool("TEACHABLE_TEST_BOOL", false))

	t.Setenv("TEACHABLE_TEST_BOOL", "nope")
	assert.False(t, Bool("TEACHABLE_TEST_BOOL", false))
}
