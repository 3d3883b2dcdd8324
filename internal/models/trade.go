// Package models defines data structures for Navio
package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Operation identifies the ledger operation of a trade.
type Operation string

const (
	OperationBuy      Operation = "B"
	OperationSell     Operation = "S"
	OperationDeposit  Operation = "D"
	OperationWithdraw Operation = "W"
)

// ParseOperation maps a ledger operation string ("B", "buy", "Sell", ...) to
// an Operation. Returns an error for anything unrecognised.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "B", "BUY":
		return OperationBuy, nil
	case "S", "SELL":
		return OperationSell, nil
	case "D", "DEPOSIT":
		return OperationDeposit, nil
	case "W", "WITHDRAW", "WITHDRAWAL":
		return OperationWithdraw, nil
	}
	return "", fmt.Errorf("unknown trade operation '%s'", s)
}

// IncreasesPosition reports whether the operation adds to a holding.
func (o Operation) IncreasesPosition() bool {
	return o == OperationBuy || o == OperationDeposit
}

// Trade is a single immutable ledger entry. Quantity and CashValue carry the
// operation's sign: Buy/Deposit positive, Sell/Withdraw negative.
type Trade struct {
	UserID      string    `json:"user_id"`
	ReferenceID string    `json:"reference_id"` // unique within user+ticker
	Ticker      string    `json:"ticker"`
	Operation   Operation `json:"operation"`
	Quantity    float64   `json:"quantity"`
	CashValue   float64   `json:"cash_value"`
	Fees        float64   `json:"fees"`
	Price       float64   `json:"price"`
	Date        time.Time `json:"date"`
}

// SignedQuantity returns the quantity with the operation's sign applied,
// regardless of how the quantity was recorded.
func (t *Trade) SignedQuantity() float64 {
	q := math.Abs(t.Quantity)
	if t.Operation.IncreasesPosition() {
		return q
	}
	return -q
}

// SignedCashValue returns the cash value with the operation's sign applied.
func (t *Trade) SignedCashValue() float64 {
	cv := math.Abs(t.CashValue)
	if t.Operation.IncreasesPosition() {
		return cv
	}
	return -cv
}

// Day returns the trade date truncated to midnight UTC.
func (t *Trade) Day() time.Time {
	return time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), 0, 0, 0, 0, time.UTC)
}
