package normalization

import (
	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/solana"
)

// Pools normalizes DEXPools rows. The base currency is the token; liquidity
// is the USD value of both post-trade reserves.
func Pools(raw *bitquery.PoolsResponse, cache *solana.AddressCache) ([]domain.TokenRecord, Stats) {
	rows := raw.Rows()
	stats := Stats{Total: len(rows)}
	out := make([]domain.TokenRecord, 0, len(rows))

	for _, row := range rows {
		rec, ok := pool(row, cache)
		if !ok {
			stats.Dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, stats
}

func pool(row bitquery.PoolRow, cache *solana.AddressCache) (domain.TokenRecord, bool) {
	p := row.Pool
	if p == nil || p.Market == nil || p.Market.BaseCurrency == nil {
		return domain.TokenRecord{}, false
	}
	base := p.Market.BaseCurrency
	addr, ok := resolveAddress(base.MintAddress, cache)
	if !ok {
		return domain.TokenRecord{}, false
	}

	ts := blockTime(row.Block)
	rec := domain.TokenRecord{
		ID:           str(p.Market.MarketAddress),
		TokenAddress: addr,
		TokenName:    nameOr(base.Name),
		TokenSymbol:  symbolOr(base.Symbol),
		Timestamp:    ts,
		LastActivity: ts,
		Type:         domain.TokenTypeLiquidity,
		Signer:       signer(row.Transaction, cache),
	}

	var baseUSD, quoteUSD bitquery.Number
	if b := p.Base; b != nil {
		rec.BaseAmount = amount(b.PostAmount)
		rec.PriceUSD = amount(b.PriceInUSD)
		baseUSD = b.PostAmountInUSD
	}
	if q := p.Quote; q != nil {
		rec.QuoteAmount = amount(q.PostAmount)
		quoteUSD = q.PostAmountInUSD
	}
	rec.LiquidityUSD = sum(baseUSD, quoteUSD)

	if dex := p.Dex; dex != nil {
		rec.Dex = str(dex.ProtocolName)
		rec.ProgramAddress = str(dex.ProgramAddress)
	}
	return rec, true
}
