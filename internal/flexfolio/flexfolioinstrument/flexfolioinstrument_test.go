// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

package flexfolioinstrument

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	resolver := NewResolver()
	canonicalID, err := resolver.Resolve("AAPL", "265598", "USD")
	require.NoError(t, err)
	require.Equal(t, "AAPL", canonicalID)

	// Same tuple resolves to the same ID.
	again, err := resolver.Resolve("AAPL", "265598", "USD")
	require.NoError(t, err)
	require.Equal(t, canonicalID, again)

	// Symbol casing does not mint a second identity.
	lower, err := resolver.Resolve("aapl", "265598", "USD")
	require.NoError(t, err)
	require.Equal(t, canonicalID, lower)

	require.Len(t, resolver.Instruments(), 1)
}

func TestResolveDeterministic(t *testing.T) {
	t.Parallel()
	// Two resolvers fed the same tuples in different orders assign the same IDs.
	first := NewResolver()
	a1, err := first.Resolve("AAPL", "265598", "USD")
	require.NoError(t, err)
	m1, err := first.Resolve("MSFT", "272093", "USD")
	require.NoError(t, err)

	second := NewResolver()
	m2, err := second.Resolve("MSFT", "272093", "USD")
	require.NoError(t, err)
	a2, err := second.Resolve("AAPL", "265598", "USD")
	require.NoError(t, err)

	require.Equal(t, a1, a2)
	require.Equal(t, m1, m2)
}

func TestResolveAmbiguous(t *testing.T) {
	t.Parallel()
	resolver := NewResolver()
	_, err := resolver.Resolve("SAP", "14204", "EUR")
	require.NoError(t, err)
	_, err = resolver.Resolve("SAP", "77777", "USD")
	require.ErrorIs(t, err, ErrAmbiguousInstrument)
}

func TestResolveEmptySymbol(t *testing.T) {
	t.Parallel()
	resolver := NewResolver()
	_, err := resolver.Resolve("", "265598", "USD")
	require.Error(t, err)
}
