// Package sizing computes integer-lot position sizes for the two legs of a
// long/short operation.
package sizing

import (
	"github.com/shopspring/decimal"

	"pairs-lab/internal/storage"
)

// DefaultLotSize is the round-lot size of the exchange.
const DefaultLotSize = 100

// Leg identifies which side of the pair carries the higher unit price.
type Leg string

const (
	LegLong  Leg = "long"
	LegShort Leg = "short"
)

// Input describes one sizing request. SellCap is the maximum capital the
// short leg may allocate; the long leg is funded from the short proceeds.
type Input struct {
	ShortPrice float64
	LongPrice  float64
	SellCap    float64
	LotSize    int // zero means DefaultLotSize

	ShortTicker string
	LongTicker  string

	// InformedCapital preserves the amount originally entered by the
	// user before any adjustment, for display only.
	InformedCapital *float64
}

// Result is a fully sized long/short operation. All monetary fields use
// decimal arithmetic; share quantities are whole multiples of the lot size.
type Result struct {
	ShortPrice decimal.Decimal
	LongPrice  decimal.Decimal
	LotSize    int

	SharesSold   int
	SharesBought int
	SoldValue    decimal.Decimal
	BoughtValue  decimal.Decimal
	// Residual is the short proceeds left over after buying the long leg.
	Residual decimal.Decimal

	// MinimumCapital is one full lot of the pricier leg, the smallest
	// amount with which the operation can be assembled at all.
	MinimumCapital decimal.Decimal
	PricierLeg     Leg

	CapitalUsed     decimal.Decimal
	InformedCapital *decimal.Decimal

	ShortTicker string
	LongTicker  string
}

// LotsSold reports the number of round lots on the short leg.
func (r *Result) LotsSold() int {
	if r.LotSize == 0 {
		return 0
	}
	return r.SharesSold / r.LotSize
}

// LotsBought reports the number of round lots on the long leg.
func (r *Result) LotsBought() int {
	if r.LotSize == 0 {
		return 0
	}
	return r.SharesBought / r.LotSize
}

// Ratio is bought shares per sold share.
func (r *Result) Ratio() float64 {
	if r.SharesSold <= 0 {
		return 0
	}
	return float64(r.SharesBought) / float64(r.SharesSold)
}

// Proportion sizes both legs under the sell cap, respecting integer lots.
// Returns (nil, nil) when the cap cannot fund a single short lot or is not
// positive. Non-positive prices or lot size are invalid input.
func Proportion(in Input) (*Result, error) {
	lotSize := in.LotSize
	if lotSize == 0 {
		lotSize = DefaultLotSize
	}
	if in.ShortPrice <= 0 || in.LongPrice <= 0 || lotSize < 0 {
		return nil, storage.ErrInvalidInput
	}

	shortPrice := decimal.NewFromFloat(in.ShortPrice)
	longPrice := decimal.NewFromFloat(in.LongPrice)
	sellCap := decimal.NewFromFloat(in.SellCap)
	lot := decimal.NewFromInt(int64(lotSize))

	if sellCap.Sign() <= 0 {
		return nil, nil
	}

	pricierLeg := LegShort
	minimumCapital := shortPrice.Mul(lot)
	if longPrice.GreaterThanOrEqual(shortPrice) {
		pricierLeg = LegLong
		minimumCapital = longPrice.Mul(lot)
	}

	shortLotValue := shortPrice.Mul(lot)
	lotsSold := sellCap.Div(shortLotValue).IntPart()
	if lotsSold == 0 {
		return nil, nil
	}

	sharesSold := int(lotsSold) * lotSize
	soldValue := shortPrice.Mul(decimal.NewFromInt(int64(sharesSold)))

	longLotValue := longPrice.Mul(lot)
	lotsBought := soldValue.Div(longLotValue).IntPart()
	sharesBought := int(lotsBought) * lotSize
	boughtValue := longPrice.Mul(decimal.NewFromInt(int64(sharesBought)))

	r := &Result{
		ShortPrice:     shortPrice,
		LongPrice:      longPrice,
		LotSize:        lotSize,
		SharesSold:     sharesSold,
		SharesBought:   sharesBought,
		SoldValue:      soldValue,
		BoughtValue:    boughtValue,
		Residual:       soldValue.Sub(boughtValue),
		MinimumCapital: minimumCapital,
		PricierLeg:     pricierLeg,
		CapitalUsed:    sellCap,
		ShortTicker:    in.ShortTicker,
		LongTicker:     in.LongTicker,
	}
	if in.InformedCapital != nil {
		informed := decimal.NewFromFloat(*in.InformedCapital)
		r.InformedCapital = &informed
	}
	return r, nil
}
