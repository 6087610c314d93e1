package models

import "time"

// Requests for the HTTP API. The CLI fills the same structs and runs the
// same validator.

type GenerateRequest struct {
	// Symbols defaults to the configured universe when empty.
	Symbols []string  `json:"symbols" validate:"omitempty,max=500,dive,symbol"`
	At      time.Time `json:"at"`
	// Emit publishes the ranked list to the configured sinks.
	Emit bool `json:"emit"`
}

type RegimeRequest struct {
	Symbol string    `query:"symbol" json:"symbol" validate:"required,symbol"`
	TF     string    `query:"tf" json:"tf" default:"1d" validate:"timeframe"`
	N      int       `query:"n" json:"n" default:"200" validate:"gte=10,lte=5000"`
	At     time.Time `query:"at" json:"at"`
}

type IndicatorsRequest struct {
	Symbol string    `query:"symbol" json:"symbol" validate:"required,symbol"`
	TF     string    `query:"tf" json:"tf" default:"1h" validate:"timeframe"`
	N      int       `query:"n" json:"n" default:"200" validate:"gte=1,lte=5000"`
	At     time.Time `query:"at" json:"at"`
}

type BarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,symbol"`
	TF     string `query:"tf" json:"tf" default:"1h" validate:"timeframe"`
	// From and To accept RFC3339, a date or unix seconds/milliseconds.
	From  string `query:"from" json:"from" validate:"required"`
	To    string `query:"to" json:"to"`
	Limit int    `query:"limit" json:"limit" default:"1000" validate:"gte=1,lte=50000"`
}

type BacktestRequest struct {
	Symbols []string     `json:"symbols" validate:"required,min=1,max=100,dive,symbol"`
	From    time.Time    `json:"from" validate:"required"`
	To      time.Time    `json:"to" validate:"required,gtfield=From"`
	Step    string       `json:"step" default:"4h"`
	Mode    BacktestMode `json:"mode" validate:"omitempty,oneof=pattern fixed_percentage"`
}
