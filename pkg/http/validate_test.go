package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validateProbe struct {
	Symbol  string   `json:"symbol" validate:"required,symbol"`
	TF      string   `json:"tf" validate:"omitempty,timeframe"`
	Symbols []string `json:"symbols" validate:"max=2"`
	Limit   int      `query:"limit" validate:"gte=1,lte=500"`
	Mode    string   `json:"mode" validate:"omitempty,oneof=pattern regime"`
}

func TestValidationErrors_Messages(t *testing.T) {
	err := ValidateStruct(&validateProbe{
		Symbol:  "aapl",
		TF:      "2h",
		Symbols: []string{"A", "B", "C"},
		Limit:   0,
		Mode:    "random",
	})
	require.Error(t, err)

	byField := map[string]ValidationError{}
	for _, ve := range ValidationErrors(err) {
		byField[ve.Field] = ve
	}
	require.Len(t, byField, 5)

	assert.Equal(t, "ERR_SYMBOL", byField["symbol"].Code)
	assert.Equal(t, "tf must be one of: 15m, 1h, 4h, 1d", byField["tf"].Message)
	assert.Equal(t, "symbols must have at most 2 items", byField["symbols"].Message)
	assert.Equal(t, "limit must be greater than or equal to 1", byField["limit"].Message)
	assert.Equal(t, map[string]interface{}{"min": "1"}, byField["limit"].Params)
	assert.Equal(t, []string{"pattern", "regime"}, byField["mode"].Params["options"])
}

func TestValidationErrors_PlainError(t *testing.T) {
	out := ValidationErrors(assert.AnError)
	require.Len(t, out, 1)
	assert.Equal(t, "ERR_UNKNOWN", out[0].Code)
	assert.Equal(t, assert.AnError.Error(), out[0].Message)
}
