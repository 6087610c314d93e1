package models

import "errors"

var (
	ErrMissingTimestamp = errors.New("signal has no creation timestamp")
	ErrInvalidGeometry  = errors.New("entry must lie strictly between stop and target")
	ErrUnorderedSeries  = errors.New("bar series is not strictly ascending")
	ErrEmptySymbol      = errors.New("symbol is required")
)
