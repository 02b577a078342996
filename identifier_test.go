package reactor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIdentifierIsUniqueAndNonEmpty(t *testing.T) {
	a := newIdentifier()
	b := newIdentifier()
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
