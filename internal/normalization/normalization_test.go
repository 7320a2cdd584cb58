package normalization

import (
	"math"
	"testing"
	"time"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"

	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/bitquery/stub"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/solana"
)

const (
	mintBonk = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	mintJup  = "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
)

func ptr[T any](v T) *T {
	return &v
}

var t0 = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func TestTrades_Basic(t *testing.T) {
	row := stub.TradeRow("sig1", mintBonk, "Bonk", "BONK", 0.00002, 12.5, t0)
	row.Transaction.Signer = ptr(base58.Encode(edwards25519.NewGeneratorPoint().Bytes()))
	raw := &bitquery.TradesResponse{Solana: &bitquery.TradesSolana{DEXTradeByTokens: []bitquery.TradeRow{row}}}

	records, stats := Trades(raw, solana.NewAddressCache(16))

	if stats.Total != 1 || stats.Dropped != 0 {
		t.Fatalf("Expected stats {1 0}, got %+v", stats)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.ID != "sig1" || r.TokenAddress != mintBonk || r.TokenName != "Bonk" || r.TokenSymbol != "BONK" {
		t.Errorf("Unexpected identity: %+v", r)
	}
	if r.Type != domain.TokenTypeTrading {
		t.Errorf("Expected type trading, got %s", r.Type)
	}
	if r.PriceUSD != 0.00002 || r.AmountUSD != 12.5 || r.BaseAmount != 1000 || r.QuoteAmount != 1.5 {
		t.Errorf("Unexpected metrics: %+v", r)
	}
	if r.TradeType != "buy" || r.Dex != "raydium_launchpad" || r.ProgramAddress != bitquery.LaunchLabProgram {
		t.Errorf("Unexpected origin fields: %+v", r)
	}
	if !r.Timestamp.Equal(t0) || !r.LastActivity.Equal(t0) {
		t.Errorf("Expected timestamp %v, got %v / %v", t0, r.Timestamp, r.LastActivity)
	}
	if r.Signer == "" {
		t.Error("Expected on-curve signer to be kept")
	}
}

func TestTrades_MissingNodes(t *testing.T) {
	raw := &bitquery.TradesResponse{Solana: &bitquery.TradesSolana{DEXTradeByTokens: []bitquery.TradeRow{
		{},
		{Trade: &bitquery.Trade{}},
		{Trade: &bitquery.Trade{Currency: &bitquery.Currency{}}},
		{Trade: &bitquery.Trade{Currency: &bitquery.Currency{MintAddress: ptr("not-a-mint")}}},
		{Trade: &bitquery.Trade{Currency: &bitquery.Currency{MintAddress: ptr(mintJup)}}},
	}}}

	records, stats := Trades(raw, nil)

	if stats.Total != 5 || stats.Dropped != 4 {
		t.Fatalf("Expected stats {5 4}, got %+v", stats)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.TokenName != domain.DefaultTokenName || r.TokenSymbol != domain.DefaultTokenSymbol {
		t.Errorf("Expected default name/symbol, got %q/%q", r.TokenName, r.TokenSymbol)
	}
	if r.PriceUSD != 0 || r.AmountUSD != 0 || r.BaseAmount != 0 || r.QuoteAmount != 0 {
		t.Errorf("Expected zero metrics, got %+v", r)
	}
	if !r.LastActivity.IsZero() {
		t.Errorf("Expected zero lastActivity, got %v", r.LastActivity)
	}
}

func TestTrades_NilResponse(t *testing.T) {
	records, stats := Trades(nil, nil)
	if len(records) != 0 || stats.Total != 0 {
		t.Errorf("Expected empty result, got %d records, %+v", len(records), stats)
	}
	if records == nil {
		t.Error("Expected non-nil slice")
	}
}

func TestTrades_OffCurveSignerCleared(t *testing.T) {
	row := stub.TradeRow("sig1", mintBonk, "Bonk", "BONK", 1, 1, t0)
	// y = 2 has no x on the curve.
	offCurve := base58.Encode(offCurveBytes())
	row.Transaction.Signer = ptr(offCurve)
	raw := &bitquery.TradesResponse{Solana: &bitquery.TradesSolana{DEXTradeByTokens: []bitquery.TradeRow{row}}}

	records, _ := Trades(raw, nil)
	if len(records) != 1 {
		t.Fatalf("Expected record to be kept, got %d", len(records))
	}
	if records[0].Signer != "" {
		t.Errorf("Expected signer cleared, got %q", records[0].Signer)
	}
}

func offCurveBytes() []byte {
	out := make([]byte, 32)
	out[0] = 2
	return out
}

func TestPools_Liquidity(t *testing.T) {
	row := stub.PoolRow("market1", mintBonk, "Bonk", "BONK", 100.5, 50.25, t0)
	row.Pool.Base.PriceInUSD = bitquery.NewNumber(0.0001)
	raw := &bitquery.PoolsResponse{Solana: &bitquery.PoolsSolana{DEXPools: []bitquery.PoolRow{row}}}

	records, stats := Pools(raw, nil)

	if stats.Dropped != 0 || len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d (%+v)", len(records), stats)
	}
	r := records[0]
	if r.ID != "market1" || r.Type != domain.TokenTypeLiquidity {
		t.Errorf("Unexpected id/type: %q/%s", r.ID, r.Type)
	}
	if r.LiquidityUSD != 150.75 {
		t.Errorf("Expected liquidity 150.75, got %v", r.LiquidityUSD)
	}
	if r.BaseAmount != 1e6 || r.QuoteAmount != 10 || r.PriceUSD != 0.0001 {
		t.Errorf("Unexpected metrics: %+v", r)
	}
}

func TestPools_PartialReserves(t *testing.T) {
	row := stub.PoolRow("market1", mintBonk, "Bonk", "BONK", 0, 0, t0)
	row.Pool.Quote = nil
	row.Pool.Base.PostAmountInUSD = bitquery.Number{}
	raw := &bitquery.PoolsResponse{Solana: &bitquery.PoolsSolana{DEXPools: []bitquery.PoolRow{
		row,
		{Pool: &bitquery.Pool{Market: &bitquery.Market{}}},
	}}}

	records, stats := Pools(raw, nil)

	if stats.Total != 2 || stats.Dropped != 1 {
		t.Fatalf("Expected stats {2 1}, got %+v", stats)
	}
	if records[0].LiquidityUSD != 0 || records[0].QuoteAmount != 0 {
		t.Errorf("Expected zero liquidity and quote amount, got %+v", records[0])
	}
	if math.IsNaN(records[0].LiquidityUSD) {
		t.Error("Liquidity must never be NaN")
	}
}

func TestLaunches_FirstMintAccount(t *testing.T) {
	row := stub.LaunchRow("sig9", mintJup, "Jupiter", "JUP", t0)
	// A later account with another mint must not win.
	row.Instruction.Accounts = append(row.Instruction.Accounts, bitquery.Account{
		Token: &bitquery.AccountToken{Mint: ptr(mintBonk)},
	})
	raw := &bitquery.LaunchesResponse{Solana: &bitquery.LaunchesSolana{Instructions: []bitquery.LaunchRow{row}}}

	records, stats := Launches(raw, solana.NewAddressCache(0))

	if stats.Dropped != 0 || len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d (%+v)", len(records), stats)
	}
	r := records[0]
	if r.TokenAddress != mintJup {
		t.Errorf("Expected mint %s, got %s", mintJup, r.TokenAddress)
	}
	if r.ID != "sig9" || r.Type != domain.TokenTypeLaunch || r.Method != "initialize" {
		t.Errorf("Unexpected record: %+v", r)
	}
	if r.TokenName != "Jupiter" || r.TokenSymbol != "JUP" {
		t.Errorf("Expected name/symbol from arguments, got %q/%q", r.TokenName, r.TokenSymbol)
	}
}

func TestLaunches_NoMintAccount(t *testing.T) {
	row := stub.LaunchRow("sig9", mintJup, "Jupiter", "JUP", t0)
	row.Instruction.Accounts = []bitquery.Account{{Address: ptr("payer")}}
	raw := &bitquery.LaunchesResponse{Solana: &bitquery.LaunchesSolana{Instructions: []bitquery.LaunchRow{
		row,
		{},
	}}}

	records, stats := Launches(raw, nil)
	if len(records) != 0 || stats.Dropped != 2 {
		t.Errorf("Expected all rows dropped, got %d records, %+v", len(records), stats)
	}
}

func TestLaunches_MissingArguments(t *testing.T) {
	row := stub.LaunchRow("sig9", mintJup, "", "", t0)
	row.Instruction.Program.Arguments = nil
	raw := &bitquery.LaunchesResponse{Solana: &bitquery.LaunchesSolana{Instructions: []bitquery.LaunchRow{row}}}

	records, _ := Launches(raw, nil)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].TokenName != domain.DefaultTokenName || records[0].TokenSymbol != "" {
		t.Errorf("Expected defaults, got %q/%q", records[0].TokenName, records[0].TokenSymbol)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-07-01T12:00:00Z", t0},
		{"2025-07-01T14:00:00+02:00", t0},
		{"2025-07-01T12:00:00.000000001Z", t0.Add(time.Nanosecond)},
		{"2025-07-01T12:00:00", t0},
		{"yesterday", time.Time{}},
		{"", time.Time{}},
	}

	for _, tt := range tests {
		got := parseTime(&tt.in)
		if !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if !got.IsZero() && got.Location() != time.UTC {
			t.Errorf("parseTime(%q) not UTC", tt.in)
		}
	}
	if !parseTime(nil).IsZero() {
		t.Error("parseTime(nil) should be zero")
	}
}

func TestSum(t *testing.T) {
	if got := sum(); got != 0 {
		t.Errorf("sum() = %v, want 0", got)
	}
	if got := sum(bitquery.Number{}, bitquery.NewNumber(2)); got != 2 {
		t.Errorf("sum(invalid, 2) = %v, want 2", got)
	}
	if got := sum(bitquery.NewNumber(0.1), bitquery.NewNumber(0.2)); got != 0.3 {
		t.Errorf("sum(0.1, 0.2) = %v, want 0.3", got)
	}
}
