package domain

import "time"

// TokenType tags the provenance of a TokenRecord. Display only.
type TokenType string

const (
	TokenTypeTrading   TokenType = "trading"
	TokenTypeLiquidity TokenType = "liquidity"
	TokenTypeLaunch    TokenType = "launch"
)

// Display defaults for missing upstream identity fields.
const (
	DefaultTokenName   = "Unknown"
	DefaultTokenSymbol = ""
)

// TokenRecord is the normalized unit produced from any source and stored in
// the cache. TokenAddress is the join key across sources; ID is only a list
// key and may collide between sources.
type TokenRecord struct {
	ID           string    `json:"id"`
	TokenAddress string    `json:"tokenAddress"`
	TokenName    string    `json:"tokenName"`
	TokenSymbol  string    `json:"tokenSymbol"`
	PriceUSD     float64   `json:"priceUSD"`
	AmountUSD    float64   `json:"amountUSD"`
	BaseAmount   float64   `json:"baseAmount"`
	QuoteAmount  float64   `json:"quoteAmount"`
	LiquidityUSD float64   `json:"liquidityUSD"`
	Timestamp    time.Time `json:"timestamp,omitzero"`
	LastActivity time.Time `json:"lastActivity,omitzero"`
	Type         TokenType `json:"type"`

	// Origin-specific, optional.
	TradeType      string `json:"tradeType,omitempty"`
	Dex            string `json:"dex,omitempty"`
	Method         string `json:"method,omitempty"`
	Signer         string `json:"signer,omitempty"`
	ProgramAddress string `json:"programAddress,omitempty"`
}

// TokenActivity is one observation of a merged token in a refresh cycle.
// Corresponds to token_activity table in ClickHouse.
type TokenActivity struct {
	TokenAddress string
	TokenName    string
	TokenSymbol  string
	Type         TokenType
	PriceUSD     float64
	AmountUSD    float64
	LiquidityUSD float64
	LastActivity int64 // Unix ms, 0 when unknown
	ObservedAt   int64 // Unix ms of the refresh cycle
}

// NewTokenActivity converts a merged record into an activity row.
func NewTokenActivity(r TokenRecord, observedAt time.Time) *TokenActivity {
	a := &TokenActivity{
		TokenAddress: r.TokenAddress,
		TokenName:    r.TokenName,
		TokenSymbol:  r.TokenSymbol,
		Type:         r.Type,
		PriceUSD:     r.PriceUSD,
		AmountUSD:    r.AmountUSD,
		LiquidityUSD: r.LiquidityUSD,
		ObservedAt:   observedAt.UnixMilli(),
	}
	if !r.LastActivity.IsZero() {
		a.LastActivity = r.LastActivity.UnixMilli()
	}
	return a
}
