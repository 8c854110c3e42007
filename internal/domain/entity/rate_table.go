package entity

// RateTable maps a currency to the value of one unit of BaseCurrency in that currency
type RateTable map[CurrencyCode]float64

// FallbackRates are approximate offline rates used when the live provider is unavailable
var FallbackRates = RateTable{
	ZAR: 1,
	USD: 0.053,
	EUR: 0.049,
	GBP: 0.042,
	INR: 4.4,
	AUD: 0.08,
	CAD: 0.07,
	JPY: 8.5,
}

// NewRateTable returns a table holding only the base identity rate
func NewRateTable() RateTable {
	return RateTable{BaseCurrency: 1}
}

// Rate returns the rate for a currency. Non-positive entries are treated as missing.
func (t RateTable) Rate(code CurrencyCode) (float64, bool) {
	rate, ok := t[code]
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// Clone returns a copy of the table with the base identity rate enforced
func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t)+1)
	for code, rate := range t {
		if rate > 0 {
			out[code] = rate
		}
	}
	out[BaseCurrency] = 1
	return out
}

// Merge returns a copy of t overlaid with the positive entries of other
func (t RateTable) Merge(other RateTable) RateTable {
	out := t.Clone()
	for code, rate := range other {
		if rate > 0 && code != BaseCurrency {
			out[code] = rate
		}
	}
	return out
}
