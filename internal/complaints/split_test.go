package complaints

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lensbook/lensbook-backend/pkg/errors"
)

func resolution(refund, photographer string) ManualResolution {
	return ManualResolution{
		RefundPercent:       decimal.RequireFromString(refund),
		PhotographerPercent: decimal.RequireFromString(photographer),
		RefundProofURL:      "https://cdn.lensbook.test/refund.png",
		PayoutProofURL:      "https://cdn.lensbook.test/payout.png",
	}
}

func TestValidateResolution(t *testing.T) {
	cases := []struct {
		name string
		res  ManualResolution
		ok   bool
	}{
		{"even split", resolution("50", "50"), true},
		{"platform keeps remainder", resolution("30", "60"), true},
		{"overflow", resolution("70", "40"), false},
		{"negative refund", resolution("-1", "40"), false},
		{"missing refund proof", func() ManualResolution { r := resolution("10", "10"); r.RefundProofURL = " "; return r }(), false},
		{"missing payout proof", func() ManualResolution { r := resolution("10", "10"); r.PayoutProofURL = ""; return r }(), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.res.Validate()
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
		})
	}
}

func TestSplitAmount(t *testing.T) {
	split := SplitAmount(2_000_000, resolution("30", "60"))
	assert.Equal(t, int64(600_000), split.Refund)
	assert.Equal(t, int64(1_200_000), split.Photographer)
	assert.Equal(t, int64(200_000), split.Platform)

	odd := SplitAmount(1_001, resolution("33.33", "33.33"))
	assert.Equal(t, odd.Disputed, odd.Refund+odd.Photographer+odd.Platform)

	assert.Equal(t, Split{}, SplitAmount(0, resolution("50", "50")))
	assert.True(t, resolution("30", "60").PlatformPercent().Equal(decimal.NewFromInt(10)))
}
