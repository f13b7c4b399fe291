package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveArgvSplitsOnSpaces(t *testing.T) {
	argv, err := resolveArgv([]string{"add", "art/level.png"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"add", "art/level.png"}, argv)
}

func TestResolveArgvPreservesQuotedSearchExpression(t *testing.T) {
	argv, err := resolveArgv([]string{"view", "\"art/level*.png\""})
	assert.NoError(t, err)
	assert.Equal(t, []string{"view", "art/level*.png"}, argv)
}

func TestResolveArgvRejectsUnbalancedQuotes(t *testing.T) {
	_, err := resolveArgv([]string{"view", "\"unterminated"})
	assert.Error(t, err)
}
