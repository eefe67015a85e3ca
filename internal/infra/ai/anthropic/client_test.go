package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClient_DefaultModel(t *testing.T) {
	c := NewClient("test-key", "")
	assert.Equal(t, "claude-haiku-4-5", c.Model())
}

func TestNewClient_ModelOverride(t *testing.T) {
	c := NewClient("test-key", "claude-sonnet-4-5")
	assert.Equal(t, "claude-sonnet-4-5", c.Model())
}
