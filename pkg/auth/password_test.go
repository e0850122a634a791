package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("ReadingList#42")
	require.NoError(t, err)
	assert.NotEqual(t, "ReadingList#42", hash)

	assert.NoError(t, ComparePassword(hash, "ReadingList#42"))
	assert.Error(t, ComparePassword(hash, "readinglist#42"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestGenerateTokenKey(t *testing.T) {
	key1, err := GenerateTokenKey()
	require.NoError(t, err)
	key2, err := GenerateTokenKey()
	require.NoError(t, err)

	assert.NotEmpty(t, key1)
	assert.NotEqual(t, key1, key2)
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid", "Turning#Pages9", true},
		{"too short", "Pg#1", false},
		{"too long", strings.Repeat("Aa1#", 40), false},
		{"no uppercase", "turning#pages9", false},
		{"no lowercase", "TURNING#PAGES9", false},
		{"no digit", "Turning#Pages", false},
		{"no special", "TurningPages9", false},
		{"common password", "password", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
