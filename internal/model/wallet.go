package model

import "github.com/shopspring/decimal"

// DefaultInitialBalanceSOL is the wallet's starting balance absent config override.
var DefaultInitialBalanceSOL = decimal.RequireFromString("0.100")

// Wallet tracks the ledger's cash position for the session.
type Wallet struct {
	BalanceSOL         decimal.Decimal
	StartingBalanceSOL decimal.Decimal
	SessionPnLSOL      decimal.Decimal
}

func NewWallet(initial decimal.Decimal) Wallet {
	return Wallet{
		BalanceSOL:         initial,
		StartingBalanceSOL: initial,
		SessionPnLSOL:      decimal.Zero,
	}
}
