package bitquery

// LaunchLabProgram is the Raydium LaunchLab program used by the LetsBonk
// launchpad.
const LaunchLabProgram = "LanMV9sAd7wArD4vJFi2qDdfnVhFxYSUg6eADduJ3uj"

// DefaultLimit is the row count requested when the caller passes none.
const DefaultLimit = 20

// Operation names sent with each query.
const (
	OpLatestTrades   = "getLatestTrades"
	OpLiquidityPools = "getLiquidityPools"
	OpTokenLaunches  = "getTokenLaunches"
)

const latestTradesQuery = `
query getLatestTrades($limit: Int!) {
  Solana {
    DEXTradeByTokens(
      limit: {count: $limit}
      orderBy: {descending: Block_Time}
      where: {Trade: {Dex: {ProgramAddress: {is: "` + LaunchLabProgram + `"}}}, Transaction: {Result: {Success: true}}}
    ) {
      Block {
        Time
      }
      Transaction {
        Signature
        Signer
      }
      Trade {
        Currency {
          Name
          Symbol
          MintAddress
        }
        Amount
        AmountInUSD
        PriceInUSD
        Side {
          Type
          Amount
          AmountInUSD
          Currency {
            Symbol
            MintAddress
          }
        }
        Dex {
          ProtocolName
          ProtocolFamily
          ProgramAddress
        }
      }
    }
  }
}
`

// Pools query takes no variables; the page size is fixed.
const liquidityPoolsQuery = `
query getLiquidityPools {
  Solana {
    DEXPools(
      limit: {count: 20}
      orderBy: {descending: Block_Time}
      where: {Pool: {Dex: {ProgramAddress: {is: "` + LaunchLabProgram + `"}}}}
    ) {
      Block {
        Time
      }
      Transaction {
        Signature
      }
      Pool {
        Market {
          MarketAddress
          BaseCurrency {
            Name
            Symbol
            MintAddress
          }
          QuoteCurrency {
            Name
            Symbol
            MintAddress
          }
        }
        Dex {
          ProtocolName
          ProgramAddress
        }
        Base {
          PostAmount
          PostAmountInUSD
          PriceInUSD
        }
        Quote {
          PostAmount
          PostAmountInUSD
          PriceInUSD
        }
      }
    }
  }
}
`

const tokenLaunchesQuery = `
query getTokenLaunches($limit: Int!) {
  Solana {
    Instructions(
      limit: {count: $limit}
      orderBy: {descending: Block_Time}
      where: {Instruction: {Program: {Address: {is: "` + LaunchLabProgram + `"}, Method: {is: "initialize"}}}, Transaction: {Result: {Success: true}}}
    ) {
      Block {
        Time
      }
      Transaction {
        Signature
        Signer
      }
      Instruction {
        Program {
          Address
          Name
          Method
          Arguments {
            Name
            Type
            Value {
              ... on Solana_ABI_String_Value_Arg {
                string
              }
            }
          }
        }
        Accounts {
          Address
          IsWritable
          Token {
            Mint
            Owner
            ProgramId
          }
        }
      }
    }
  }
}
`
