package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test looking up values succeeds, then fails
func TestLookup(t *testing.T) {
	for key, val := range keywords {
		require.Equal(t, val, LookupIdentifier(key), key)

		// Keywords are case sensitive, so a changed case is an identifier.
		require.Equal(t, IDENT, LookupIdentifier(strings.ToUpper(key)), key)
	}
}

func TestIsAugmentedAssign(t *testing.T) {
	require.True(t, IsAugmentedAssign(PLUS_EQUALS))
	require.True(t, IsAugmentedAssign(SLASH_SLASH_EQ))
	require.False(t, IsAugmentedAssign(ASSIGN))
	require.False(t, IsAugmentedAssign(EQ))
}
