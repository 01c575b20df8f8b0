package model

import "github.com/guregu/null/v6"

// SymbolDetails is reference and quote data for one symbol. Every field
// other than Symbol is optional; providers fill what they know.
type SymbolDetails struct {
	Symbol            string      `json:"symbol"`
	Name              null.String `json:"name"`
	Sector            null.String `json:"sector"`
	ListingExchange   null.String `json:"listingExchange"`
	SecurityType      null.String `json:"securityType"`
	Currency          null.String `json:"currency"`
	Dividend          null.Float  `json:"dividend"`
	DividendYield     null.Float  `json:"dividendYield"`
	PERatio           null.Float  `json:"peRatio"`
	EPS               null.Float  `json:"eps"`
	MarketCap         null.Float  `json:"marketCap"`
	OutstandingShares null.Int    `json:"outstandingShares"`
	ExDividendDate    null.String `json:"exDividendDate"`
	Open              null.Float  `json:"open"`
	High              null.Float  `json:"high"`
	Low               null.Float  `json:"low"`
	LastTradePrice    null.Float  `json:"lastTradePrice"`
	Volume            null.Int    `json:"volume"`
	High52w           null.Float  `json:"high52w"`
	Low52w            null.Float  `json:"low52w"`
}

// OptString wraps s as a null.String that is null when s is empty.
func OptString(s string) null.String {
	return null.NewString(s, s != "")
}

// OptFloat wraps f as a null.Float that is null when f is zero.
func OptFloat(f float64) null.Float {
	return null.NewFloat(f, f != 0)
}
