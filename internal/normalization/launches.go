package normalization

import (
	"strings"

	"launchpad-feed/internal/bitquery"
	"launchpad-feed/internal/domain"
	"launchpad-feed/internal/solana"
)

// Launch instruction argument names carrying token metadata.
const (
	argName   = "name"
	argSymbol = "symbol"
)

// Launches normalizes launchpad initialize instructions. The token is the
// first account carrying mint metadata.
func Launches(raw *bitquery.LaunchesResponse, cache *solana.AddressCache) ([]domain.TokenRecord, Stats) {
	rows := raw.Rows()
	stats := Stats{Total: len(rows)}
	out := make([]domain.TokenRecord, 0, len(rows))

	for _, row := range rows {
		rec, ok := launch(row, cache)
		if !ok {
			stats.Dropped++
			continue
		}
		out = append(out, rec)
	}
	return out, stats
}

func launch(row bitquery.LaunchRow, cache *solana.AddressCache) (domain.TokenRecord, bool) {
	ins := row.Instruction
	if ins == nil {
		return domain.TokenRecord{}, false
	}
	addr, ok := launchMint(ins.Accounts, cache)
	if !ok {
		return domain.TokenRecord{}, false
	}

	ts := blockTime(row.Block)
	rec := domain.TokenRecord{
		ID:           signature(row.Transaction),
		TokenAddress: addr,
		TokenName:    domain.DefaultTokenName,
		TokenSymbol:  domain.DefaultTokenSymbol,
		Timestamp:    ts,
		LastActivity: ts,
		Type:         domain.TokenTypeLaunch,
		Signer:       signer(row.Transaction, cache),
	}

	if prog := ins.Program; prog != nil {
		rec.Method = str(prog.Method)
		rec.Dex = str(prog.Name)
		rec.ProgramAddress = str(prog.Address)
		rec.TokenName = nameOr(argument(prog.Arguments, argName))
		rec.TokenSymbol = symbolOr(argument(prog.Arguments, argSymbol))
	}
	return rec, true
}

func launchMint(accounts []bitquery.Account, cache *solana.AddressCache) (string, bool) {
	for _, acc := range accounts {
		if acc.Token == nil || str(acc.Token.Mint) == "" {
			continue
		}
		// Only the first account with mint metadata is considered.
		return resolveAddress(acc.Token.Mint, cache)
	}
	return "", false
}

func argument(args []bitquery.Argument, name string) *string {
	for _, arg := range args {
		if !strings.EqualFold(str(arg.Name), name) || arg.Value == nil {
			continue
		}
		return arg.Value.String
	}
	return nil
}
