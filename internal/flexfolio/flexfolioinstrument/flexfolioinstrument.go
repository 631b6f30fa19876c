// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package flexfolioinstrument maps statement-local instrument identifiers
// onto canonical IDs used uniformly across the normalized datasets.
//
// A Resolver is constructed per pipeline run and discarded afterward: its
// cache is scoped to one statement and never shared across concurrent runs.
package flexfolioinstrument

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAmbiguousInstrument indicates that a statement presents the same symbol
// under two different currencies with no way to disambiguate. Surfaced as an
// error rather than silently picking one.
var ErrAmbiguousInstrument = errors.New("ambiguous instrument")

// Instrument is a canonical instrument identity.
type Instrument struct {
	// CanonicalID is the identifier used across all normalized datasets.
	CanonicalID string
	// Symbol is the statement-local ticker symbol.
	Symbol string
	// Currency is the ISO currency code the instrument trades in.
	Currency string
}

// Resolver assigns canonical instrument IDs for the lifetime of one statement.
type Resolver struct {
	// bySymbol caches resolutions keyed by normalized symbol so that a
	// conflicting second currency for the same symbol is detected.
	bySymbol map[string]Instrument
}

// NewResolver creates an empty Resolver for a single pipeline run.
func NewResolver() *Resolver {
	return &Resolver{
		bySymbol: make(map[string]Instrument),
	}
}

// Resolve returns the stable canonical ID for a statement-local identifier
// tuple. The canonical ID is derived deterministically from the
// (symbol, currency) pair, never from insertion order, so independent runs
// over the same statement produce identical IDs. The conid is accepted as a
// disambiguation hint but does not contribute to the ID.
func (r *Resolver) Resolve(symbol string, conid string, currency string) (string, error) {
	if symbol == "" {
		return "", fmt.Errorf("resolving instrument: symbol is empty")
	}
	normalizedSymbol := strings.ToUpper(symbol)
	normalizedCurrency := strings.ToUpper(currency)
	if existing, ok := r.bySymbol[normalizedSymbol]; ok {
		// Same symbol under two currencies cannot share a canonical ID, and
		// minting a second ID for the symbol would break the bijection.
		if existing.Currency != normalizedCurrency {
			return "", fmt.Errorf("%w: symbol %q appears as both %s and %s (conid %q)",
				ErrAmbiguousInstrument, symbol, existing.Currency, normalizedCurrency, conid)
		}
		return existing.CanonicalID, nil
	}
	instrument := Instrument{
		CanonicalID: normalizedSymbol,
		Symbol:      symbol,
		Currency:    normalizedCurrency,
	}
	r.bySymbol[normalizedSymbol] = instrument
	return instrument.CanonicalID, nil
}

// Instruments returns every instrument resolved so far, in no particular order.
func (r *Resolver) Instruments() []Instrument {
	instruments := make([]Instrument, 0, len(r.bySymbol))
	for _, instrument := range r.bySymbol {
		instruments = append(instruments, instrument)
	}
	return instruments
}
