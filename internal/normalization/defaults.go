package normalization

import (
	"strings"
	"time"

	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/solana"
)

// Defaulting rules shared by all sources. Every raw field is optional; the
// helpers below are the only place where a missing value becomes a default.

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Stats reports how many raw rows one normalization pass saw and dropped.
type Stats struct {
	Total   int
	Dropped int
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func nameOr(p *string) string {
	if s := str(p); s != "" {
		return s
	}
	return domain.DefaultTokenName
}

func symbolOr(p *string) string {
	if s := str(p); s != "" {
		return s
	}
	return domain.DefaultTokenSymbol
}

// amount converts a raw number to a finite float64, 0 when missing.
func amount(n bitquery.Number) float64 {
	return n.Float64()
}

// sum adds raw numbers in decimal precision. Invalid terms count as 0.
func sum(ns ...bitquery.Number) float64 {
	var total bitquery.Number
	for _, n := range ns {
		if !n.Valid {
			continue
		}
		if !total.Valid {
			total = n
			continue
		}
		total.Value = total.Value.Add(n.Value)
	}
	return total.Float64()
}

// parseTime parses an upstream block time, returning the zero time when
// missing or unparsable.
func parseTime(p *string) time.Time {
	s := str(p)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func blockTime(b *bitquery.Block) time.Time {
	if b == nil {
		return time.Time{}
	}
	return parseTime(b.Time)
}

func signature(tx *bitquery.Transaction) string {
	if tx == nil {
		return ""
	}
	return str(tx.Signature)
}

// resolveAddress returns the mint when it is a usable token address.
func resolveAddress(p *string, cache *solana.AddressCache) (string, bool) {
	addr := str(p)
	if !cache.Valid(addr) {
		return "", false
	}
	return addr, true
}

// signer keeps addr only when it is an on-curve key able to sign.
func signer(tx *bitquery.Transaction, cache *solana.AddressCache) string {
	if tx == nil {
		return ""
	}
	addr := str(tx.Signer)
	if !cache.OnCurve(addr) {
		return ""
	}
	return addr
}
