package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		candidate string
		want      bool
	}{
		{"0102", true},
		{"102", false},
		{"", false},
		{"0103", false},
		{"01020", false},
		{"2010", false},
		{"010", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Validate(tt.candidate, "0102"), "candidate %q", tt.candidate)
	}
}

func TestValidateLettersAreExact(t *testing.T) {
	assert.True(t, Validate("A1B2", "A1B2"))
	assert.False(t, Validate("a1b2", "A1B2"))
}
