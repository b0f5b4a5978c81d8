package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringIsEmptyOrWhitespace(t *testing.T) {
	assert.True(t, StringIsEmptyOrWhitespace(""))
	assert.True(t, StringIsEmptyOrWhitespace(" \t\n"))
	assert.False(t, StringIsEmptyOrWhitespace(" a "))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"localhost:9092", "localhost:9093"}, SplitList(" localhost:9092, ,localhost:9093,"))
	assert.Empty(t, SplitList(""))
}
