package escrow

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		decimals uint8
		want     string
		wantErr  error
	}{
		{name: "whole number", input: "100", decimals: 6, want: "100000000"},
		{name: "fractional padded", input: "100.5", decimals: 6, want: "100500000"},
		{name: "exact precision", input: "0.000001", decimals: 6, want: "1"},
		{name: "excess precision truncated", input: "1.1234567", decimals: 6, want: "1123456"},
		{name: "zero", input: "0", decimals: 6, want: "0"},
		{name: "zero point zero", input: "0.0", decimals: 6, want: "0"},
		{name: "leading zeros stripped", input: "007", decimals: 2, want: "700"},
		{name: "whitespace trimmed", input: "  42.5 ", decimals: 2, want: "4250"},
		{name: "zero decimals drops fraction", input: "9.99", decimals: 0, want: "9"},
		{name: "empty", input: "", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "blank", input: "   ", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "two dots", input: "1.2.3", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "letters", input: "12a", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "negative", input: "-5", decimals: 6, wantErr: ErrInvalidAmount},
		{name: "fraction letters", input: "1.2x", decimals: 6, wantErr: ErrInvalidAmount},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAmount(tc.input, tc.decimals)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			want, ok := new(big.Int).SetString(tc.want, 10)
			require.True(t, ok)
			require.Zero(t, got.Cmp(want), "got %s want %s", got, want)
		})
	}
}

func TestParseAmountOverflow(t *testing.T) {
	// 2^128 in decimal exceeds the 128-bit cap.
	_, err := ParseAmount("340282366920938463463374607431768211456", 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	// 2^128-1 is the largest accepted value.
	got, err := ParseAmount("340282366920938463463374607431768211455", 0)
	require.NoError(t, err)
	require.Equal(t, 128, got.BitLen())
}
