package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"tradeledger/internal/money"

	"github.com/shopspring/decimal"
)

var errInvalidAmount = errors.New("invalid amount")

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParseMinor(raw)
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

func parseFeeMinor(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	fee, err := money.ParseMinor(raw)
	if err != nil || fee < 0 {
		return 0, errInvalidAmount
	}
	return fee, nil
}

func parsePositiveDecimal(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil || value.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, errInvalidAmount
	}
	return value, nil
}

func parseOptionalDecimal(raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	value, err := parsePositiveDecimal(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(value), nil
}

func parsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
