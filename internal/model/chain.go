package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Chain identifies one of the supermarket chains covered by the scrapers.
type Chain string

const (
	ChainBravo Chain = "BRAVO"
	ChainAraz  Chain = "ARAZ"
	ChainRahat Chain = "RAHAT"
	ChainOBA   Chain = "OBA"
	ChainTam   Chain = "TAM"
)

// Chains returns every known chain in merge priority order.
func Chains() []Chain {
	return []Chain{ChainBravo, ChainAraz, ChainRahat, ChainOBA, ChainTam}
}

// ParseChain converts a case-insensitive name into a Chain.
func ParseChain(s string) (Chain, error) {
	c := Chain(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", eris.Errorf("unknown chain: %q (valid: bravo, araz, rahat, oba, tam)", s)
	}
	return c, nil
}

// Valid reports whether c is one of the known chains.
func (c Chain) Valid() bool {
	switch c {
	case ChainBravo, ChainAraz, ChainRahat, ChainOBA, ChainTam:
		return true
	default:
		return false
	}
}

// Priority returns the chain's position in merge order, or -1 if unknown.
func (c Chain) Priority() int {
	for i, known := range Chains() {
		if known == c {
			return i
		}
	}
	return -1
}

// Slug is the lower-case name used for file names and CLI arguments.
func (c Chain) Slug() string {
	return strings.ToLower(string(c))
}

// SourceFormat records which representation a coordinate was recovered from.
type SourceFormat string

const (
	FormatDecimal   SourceFormat = "decimal"
	FormatDMS       SourceFormat = "dms"
	FormatMapLink   SourceFormat = "map_link"
	FormatShortLink SourceFormat = "short_link"
)
