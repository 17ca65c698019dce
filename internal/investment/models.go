// Package investment models contributions moving through the two payment
// rails and the treasury split each confirmed contribution produces.
package investment

import (
	"time"

	"github.com/shopspring/decimal"

	"seedfund/internal/treasury"
)

type PaymentRail string

const (
	RailFiat   PaymentRail = "fiat"
	RailCrypto PaymentRail = "crypto"
)

type FiatMethod string

const (
	MethodACH  FiatMethod = "ach"
	MethodWire FiatMethod = "wire"
)

type CryptoAsset string

const (
	AssetUSDC CryptoAsset = "usdc"
	AssetETH  CryptoAsset = "eth"
	AssetBTC  CryptoAsset = "btc"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// WireInstructions tell a wire investor where to send funds. The reference
// ties the inbound wire back to the transaction.
type WireInstructions struct {
	BankName      string `json:"bank_name"`
	RoutingNumber string `json:"routing_number"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	Reference     string `json:"reference"`
	SwiftCode     string `json:"swift_code"`
}

// Investment is one contribution moving through a rail. The allocation is
// computed at initiation and frozen; confirmation only flips status and
// triggers the mint.
type Investment struct {
	TransactionID    string
	InvestorID       string
	Rail             PaymentRail
	AmountUSD        decimal.Decimal
	Method           FiatMethod
	Asset            CryptoAsset
	Status           Status
	Allocation       treasury.Allocation
	WireInstructions *WireInstructions
	ChargeURL        string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
