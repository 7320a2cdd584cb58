package domain

// Source identifies one upstream feed of the aggregation cycle.
type Source string

const (
	SourceTrades   Source = "trades"
	SourcePools    Source = "pools"
	SourceLaunches Source = "launches"
)

// Precedence is the merge order across sources. The first source to report a
// token address owns the merged record for that address.
var Precedence = []Source{SourceTrades, SourcePools, SourceLaunches}

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceTrades || s == SourcePools || s == SourceLaunches
}

// TokenType returns the record type produced by the source.
func (s Source) TokenType() TokenType {
	switch s {
	case SourceTrades:
		return TokenTypeTrading
	case SourcePools:
		return TokenTypeLiquidity
	case SourceLaunches:
		return TokenTypeLaunch
	default:
		return ""
	}
}
