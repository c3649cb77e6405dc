package postgres

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC. They are selected as ::text and written as
// $n::numeric so values cross the wire without float rounding.

func parseMoney(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fmt.Errorf("parse numeric %q: %w", *raw, err)
	}
	return &d, nil
}

func moneyArg(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
