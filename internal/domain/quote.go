package domain

import "time"

// PriceObservation is one daily closing price for one instrument.
// Immutable once stored; (ticker, date) is unique. Corresponds to the
// quotes_daily table.
type PriceObservation struct {
	Ticker string    // instrument ticker
	Date   time.Time // trading date, UTC midnight
	Close  float64   // closing price
}

// QuoteDay normalizes a timestamp to the UTC trading date used as the
// alignment key between two series.
func QuoteDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
