package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRaw() map[string]float64 {
	return map[string]float64{
		"technical": 0.35, "sentiment": 0.25, "news": 0.15, "volume": 0.15, "pattern": 0.10,
	}
}

func TestParseWeights_Defaults(t *testing.T) {
	w, err := ParseWeights(1, defaultRaw())
	require.NoError(t, err)
	assert.Equal(t, DefaultWeights(), w)
}

func TestParseWeights_Rejections(t *testing.T) {
	unknown := defaultRaw()
	unknown["momentum"] = 0
	_, err := ParseWeights(1, unknown)
	assert.ErrorIs(t, err, ErrUnknownFactor)
	assert.Contains(t, err.Error(), "momentum")

	missing := defaultRaw()
	delete(missing, "news")
	_, err = ParseWeights(1, missing)
	assert.ErrorIs(t, err, ErrMissingFactor)

	off := defaultRaw()
	off["technical"] = 0.25
	_, err = ParseWeights(1, off)
	assert.ErrorIs(t, err, ErrWeightSum)

	neg := defaultRaw()
	neg["technical"] = 0.55
	neg["pattern"] = -0.10
	_, err = ParseWeights(1, neg)
	assert.Error(t, err)

	_, err = ParseWeights(2, defaultRaw())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}
