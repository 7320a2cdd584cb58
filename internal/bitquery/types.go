package bitquery

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Raw upstream schemas. Every node is optional: Bitquery omits or nulls
// fields freely, and the normalizer decides the defaults.

// Number is a JSON number that may arrive as a number, a numeric string or
// null. Anything unparsable decodes to an invalid Number instead of failing
// the whole response.
type Number struct {
	Value decimal.Decimal
	Valid bool
}

// NewNumber returns a valid Number.
func NewNumber(f float64) Number {
	return Number{Value: decimal.NewFromFloat(f), Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil
		}
		s = unquoted
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	n.Value = d
	n.Valid = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return []byte(n.Value.String()), nil
}

// Float64 returns the value, or 0 when invalid or not finite.
func (n Number) Float64() float64 {
	if !n.Valid {
		return 0
	}
	f := n.Value.InexactFloat64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Currency identifies a token.
type Currency struct {
	Name        *string `json:"Name"`
	Symbol      *string `json:"Symbol"`
	MintAddress *string `json:"MintAddress"`
}

// Block carries the block time as an ISO-8601 string.
type Block struct {
	Time *string `json:"Time"`
}

// Transaction identifies the transaction a row came from.
type Transaction struct {
	Signature *string `json:"Signature"`
	Signer    *string `json:"Signer"`
}

// Dex identifies the protocol a trade or pool belongs to.
type Dex struct {
	ProtocolName   *string `json:"ProtocolName"`
	ProtocolFamily *string `json:"ProtocolFamily"`
	ProgramAddress *string `json:"ProgramAddress"`
}

// TradesResponse is the data object of getLatestTrades.
type TradesResponse struct {
	Solana *TradesSolana `json:"Solana"`
}

// TradesSolana wraps the trade rows.
type TradesSolana struct {
	DEXTradeByTokens []TradeRow `json:"DEXTradeByTokens"`
}

// Rows returns the trade rows, nil-safe.
func (r *TradesResponse) Rows() []TradeRow {
	if r == nil || r.Solana == nil {
		return nil
	}
	return r.Solana.DEXTradeByTokens
}

// TradeRow is one DEXTradeByTokens row.
type TradeRow struct {
	Block       *Block       `json:"Block"`
	Transaction *Transaction `json:"Transaction"`
	Trade       *Trade       `json:"Trade"`
}

// Trade is the traded side of a row.
type Trade struct {
	Currency    *Currency  `json:"Currency"`
	Amount      Number     `json:"Amount"`
	AmountInUSD Number     `json:"AmountInUSD"`
	PriceInUSD  Number     `json:"PriceInUSD"`
	Side        *TradeSide `json:"Side"`
	Dex         *Dex       `json:"Dex"`
}

// TradeSide is the counter side of a trade.
type TradeSide struct {
	Type        *string   `json:"Type"`
	Amount      Number    `json:"Amount"`
	AmountInUSD Number    `json:"AmountInUSD"`
	Currency    *Currency `json:"Currency"`
}

// PoolsResponse is the data object of getLiquidityPools.
type PoolsResponse struct {
	Solana *PoolsSolana `json:"Solana"`
}

// PoolsSolana wraps the pool rows.
type PoolsSolana struct {
	DEXPools []PoolRow `json:"DEXPools"`
}

// Rows returns the pool rows, nil-safe.
func (r *PoolsResponse) Rows() []PoolRow {
	if r == nil || r.Solana == nil {
		return nil
	}
	return r.Solana.DEXPools
}

// PoolRow is one DEXPools row.
type PoolRow struct {
	Block       *Block       `json:"Block"`
	Transaction *Transaction `json:"Transaction"`
	Pool        *Pool        `json:"Pool"`
}

// Pool is a liquidity pool state.
type Pool struct {
	Market *Market   `json:"Market"`
	Dex    *Dex      `json:"Dex"`
	Base   *PoolSide `json:"Base"`
	Quote  *PoolSide `json:"Quote"`
}

// Market identifies the pool and its currencies.
type Market struct {
	MarketAddress *string   `json:"MarketAddress"`
	BaseCurrency  *Currency `json:"BaseCurrency"`
	QuoteCurrency *Currency `json:"QuoteCurrency"`
}

// PoolSide holds post-trade reserves of one side of the pool.
type PoolSide struct {
	PostAmount      Number `json:"PostAmount"`
	PostAmountInUSD Number `json:"PostAmountInUSD"`
	PriceInUSD      Number `json:"PriceInUSD"`
}

// LaunchesResponse is the data object of getTokenLaunches.
type LaunchesResponse struct {
	Solana *LaunchesSolana `json:"Solana"`
}

// LaunchesSolana wraps the instruction rows.
type LaunchesSolana struct {
	Instructions []LaunchRow `json:"Instructions"`
}

// Rows returns the launch rows, nil-safe.
func (r *LaunchesResponse) Rows() []LaunchRow {
	if r == nil || r.Solana == nil {
		return nil
	}
	return r.Solana.Instructions
}

// LaunchRow is one Instructions row.
type LaunchRow struct {
	Block       *Block       `json:"Block"`
	Transaction *Transaction `json:"Transaction"`
	Instruction *Instruction `json:"Instruction"`
}

// Instruction is a program invocation.
type Instruction struct {
	Program  *Program  `json:"Program"`
	Accounts []Account `json:"Accounts"`
}

// Program describes the invoked program and its decoded arguments.
type Program struct {
	Address   *string    `json:"Address"`
	Name      *string    `json:"Name"`
	Method    *string    `json:"Method"`
	Arguments []Argument `json:"Arguments"`
}

// Argument is one decoded instruction argument.
type Argument struct {
	Name  *string        `json:"Name"`
	Type  *string        `json:"Type"`
	Value *ArgumentValue `json:"Value"`
}

// ArgumentValue holds the string variant of an argument value.
type ArgumentValue struct {
	String *string `json:"string"`
}

// Account is one instruction account.
type Account struct {
	Address    *string       `json:"Address"`
	IsWritable *bool         `json:"IsWritable"`
	Token      *AccountToken `json:"Token"`
}

// AccountToken is present for accounts that carry mint metadata.
type AccountToken struct {
	Mint      *string `json:"Mint"`
	Owner     *string `json:"Owner"`
	ProgramID *string `json:"ProgramId"`
}

// graphQLRequest is the POST body.
type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

// graphQLResponse is the response envelope.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors graphQLErrors   `json:"errors"`
}
