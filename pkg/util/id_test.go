package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandStr(t *testing.T) {
	a := RandStr(10)
	b := RandStr(10)

	assert.Len(t, a, 10)
	assert.NotEqual(t, a, b)
	assert.Empty(t, strings.Trim(a, charset))
}
