package normalization

import (
	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/solana"
)

// Trades normalizes DEXTradeByTokens rows. Rows without a usable mint
// address are dropped.
func Trades(raw *bitquery.TradesResponse, cache *solana.AddressCache) ([]domain.TokenRecord, Stats) {
	rows := raw.Rows()
	stats := Stats{Total: len(rows)}
	out := make([]domain.TokenRecord, 0, len(rows))

	for _, row := range rows {
		rec, ok := trade(row, cache)
		if !ok {
			stats.Dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, stats
}

func trade(row bitquery.TradeRow, cache *solana.AddressCache) (domain.TokenRecord, bool) {
	t := row.Trade
	if t == nil || t.Currency == nil {
		return domain.TokenRecord{}, false
	}
	addr, ok := resolveAddress(t.Currency.MintAddress, cache)
	if !ok {
		return domain.TokenRecord{}, false
	}

	ts := blockTime(row.Block)
	rec := domain.TokenRecord{
		ID:           signature(row.Transaction),
		TokenAddress: addr,
		TokenName:    nameOr(t.Currency.Name),
		TokenSymbol:  symbolOr(t.Currency.Symbol),
		PriceUSD:     amount(t.PriceInUSD),
		AmountUSD:    amount(t.AmountInUSD),
		BaseAmount:   amount(t.Amount),
		Timestamp:    ts,
		LastActivity: ts,
		Type:         domain.TokenTypeTrading,
		Signer:       signer(row.Transaction, cache),
	}

	if side := t.Side; side != nil {
		rec.QuoteAmount = amount(side.Amount)
		rec.TradeType = str(side.Type)
		if !t.AmountInUSD.Valid {
			rec.AmountUSD = amount(side.AmountInUSD)
		}
	}
	if dex := t.Dex; dex != nil {
		rec.Dex = str(dex.ProtocolName)
		rec.ProgramAddress = str(dex.ProgramAddress)
	}
	return rec, true
}
