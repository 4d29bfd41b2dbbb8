package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount  string
		want    int64
		wantErr bool
	}{
		{amount: "560", want: 56000},
		{amount: "280.50", want: 28050},
		{amount: "0.01", want: 1},
		{amount: "10.005", want: 1001},
		{amount: "10.004", want: 1000},
		{amount: "0.004", wantErr: true},
		{amount: "0", wantErr: true},
		{amount: "-5", wantErr: true},
		{amount: "1000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := ToMinorUnits(decimal.RequireFromString(tt.amount))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromMinorUnits(t *testing.T) {
	assert.True(t, decimal.RequireFromString("560.00").Equal(FromMinorUnits(56000)))
	assert.True(t, decimal.RequireFromString("0.01").Equal(FromMinorUnits(1)))
}

func TestIntentIDFromSecret(t *testing.T) {
	id, ok := IntentIDFromSecret("pi_3Nabc_secret_xyz")
	require.True(t, ok)
	assert.Equal(t, "pi_3Nabc", id)

	_, ok = IntentIDFromSecret("pi_3Nabc")
	assert.False(t, ok)

	_, ok = IntentIDFromSecret("_secret_xyz")
	assert.False(t, ok)
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.False(t, StatusRequiresAction.Terminal())
	assert.False(t, StatusProcessing.Terminal())
}
