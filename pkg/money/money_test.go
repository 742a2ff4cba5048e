package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  Amount
		isErr bool
	}{
		{"whole", "500", 50000, false},
		{"two decimals", "320.00", 32000, false},
		{"one decimal", "1.5", 150, false},
		{"truncates extra digits", "10.999", 1099, false},
		{"truncates toward zero when negative", "-10.999", -1099, false},
		{"zero", "0.00", 0, false},
		{"garbage", "ten", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.isErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "180.00", Amount(18000).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-320.00", Amount(-32000).String())
	assert.Equal(t, "0.00", Amount(0).String())
}

func TestJSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(Amount(25050))
	require.NoError(t, err)
	assert.Equal(t, `"250.50"`, string(out))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"250.50"`), &a))
	assert.Equal(t, Amount(25050), a)

	// Bare numbers are accepted for callers that send JSON numbers.
	require.NoError(t, json.Unmarshal([]byte(`100`), &a))
	assert.Equal(t, Amount(10000), a)
}
