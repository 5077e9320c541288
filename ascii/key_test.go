package ascii

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"empty", "", false},
		{"simple", "foo", true},
		{"max length", strings.Repeat("a", 250), true},
		{"too long", strings.Repeat("a", 251), false},
		{"space", "foo bar", false},
		{"cr", "foo\rbar", false},
		{"lf", "foo\nbar", false},
		{"nul", "foo\x00bar", false},
		{"single byte", "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateKey(tt.key))
		})
	}
}
