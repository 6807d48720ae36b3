package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashPIN(t *testing.T) {
	hash := HashPIN("1234")

	assert.Len(t, hash, 64)
	assert.NotContains(t, hash, "1234")
	assert.Equal(t, hash, HashPIN("1234"))
	assert.NotEqual(t, hash, HashPIN("4321"))
}

func TestVerifyPIN(t *testing.T) {
	hash := HashPIN("1234")

	assert.True(t, VerifyPIN("1234", hash))
	assert.False(t, VerifyPIN("4321", hash))
	assert.False(t, VerifyPIN("1234", "not-a-hash"))
}
