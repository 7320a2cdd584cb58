package stub

import (
	"time"

	"launchpad-feed/internal/bitquery"
)

func ptr[T any](v T) *T {
	return &v
}

func block(t time.Time) *bitquery.Block {
	return &bitquery.Block{Time: ptr(t.UTC().Format(time.RFC3339))}
}

// TradeRow builds a trade row for mint at t.
func TradeRow(sig, mint, name, symbol string, priceUSD, amountUSD float64, t time.Time) bitquery.TradeRow {
	return bitquery.TradeRow{
		Block:       block(t),
		Transaction: &bitquery.Transaction{Signature: ptr(sig)},
		Trade: &bitquery.Trade{
			Currency:    &bitquery.Currency{Name: ptr(name), Symbol: ptr(symbol), MintAddress: ptr(mint)},
			Amount:      bitquery.NewNumber(1000),
			AmountInUSD: bitquery.NewNumber(amountUSD),
			PriceInUSD:  bitquery.NewNumber(priceUSD),
			Side: &bitquery.TradeSide{
				Type:   ptr("buy"),
				Amount: bitquery.NewNumber(1.5),
			},
			Dex: &bitquery.Dex{ProtocolName: ptr("raydium_launchpad"), ProgramAddress: ptr(bitquery.LaunchLabProgram)},
		},
	}
}

// PoolRow builds a pool row for mint at t.
func PoolRow(market, mint, name, symbol string, baseUSD, quoteUSD float64, t time.Time) bitquery.PoolRow {
	return bitquery.PoolRow{
		Block: block(t),
		Pool: &bitquery.Pool{
			Market: &bitquery.Market{
				MarketAddress: ptr(market),
				BaseCurrency:  &bitquery.Currency{Name: ptr(name), Symbol: ptr(symbol), MintAddress: ptr(mint)},
			},
			Dex:   &bitquery.Dex{ProtocolName: ptr("raydium_launchpad"), ProgramAddress: ptr(bitquery.LaunchLabProgram)},
			Base:  &bitquery.PoolSide{PostAmount: bitquery.NewNumber(1e6), PostAmountInUSD: bitquery.NewNumber(baseUSD)},
			Quote: &bitquery.PoolSide{PostAmount: bitquery.NewNumber(10), PostAmountInUSD: bitquery.NewNumber(quoteUSD)},
		},
	}
}

// LaunchRow builds a launch row whose third account carries the mint.
func LaunchRow(sig, mint, name, symbol string, t time.Time) bitquery.LaunchRow {
	return bitquery.LaunchRow{
		Block:       block(t),
		Transaction: &bitquery.Transaction{Signature: ptr(sig)},
		Instruction: &bitquery.Instruction{
			Program: &bitquery.Program{
				Address: ptr(bitquery.LaunchLabProgram),
				Method:  ptr("initialize"),
				Arguments: []bitquery.Argument{
					{Name: ptr("name"), Value: &bitquery.ArgumentValue{String: ptr(name)}},
					{Name: ptr("symbol"), Value: &bitquery.ArgumentValue{String: ptr(symbol)}},
				},
			},
			Accounts: []bitquery.Account{
				{Address: ptr("payer")},
				{Address: ptr("config")},
				{Address: ptr(mint), Token: &bitquery.AccountToken{Mint: ptr(mint)}},
			},
		},
	}
}
