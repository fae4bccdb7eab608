package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckedArithmetic(t *testing.T) {
	tests := []struct {
		name string
		fn   func(a, b Value) (Value, bool)
		a, b int64
		want int64
		ok   bool
	}{
		{"add", AddSmi, 1, 2, 3, true},
		{"add overflow", AddSmi, MaxSmi, 1, 0, false},
		{"add negative overflow", AddSmi, MinSmi, -1, 0, false},
		{"sub", SubSmi, 1, 14, -13, true},
		{"sub overflow", SubSmi, MinSmi, 1, 0, false},
		{"mul", MulSmi, -6, 7, -42, true},
		{"mul overflow", MulSmi, MaxSmi, 2, 0, false},
		{"mul min by minus one", MulSmi, MinSmi, -1, 0, false},
		{"floor div", FloorDivSmi, 7, 2, 3, true},
		{"floor div negative", FloorDivSmi, -7, 2, -4, true},
		{"floor div by zero", FloorDivSmi, 7, 0, 0, false},
		{"floor div overflow", FloorDivSmi, MinSmi, -1, 0, false},
		{"mod", ModSmi, 7, 3, 1, true},
		{"mod negative dividend", ModSmi, -7, 3, 2, true},
		{"mod negative divisor", ModSmi, 7, -3, -2, true},
		{"mod by zero", ModSmi, 7, 0, 0, false},
		{"pow", PowSmi, 3, 4, 81, true},
		{"pow zero", PowSmi, 5, 0, 1, true},
		{"pow negative exponent", PowSmi, 2, -1, 0, false},
		{"pow overflow", PowSmi, 2, 58, 0, false},
		{"pow largest", PowSmi, 2, 57, 1 << 57, true},
		{"left shift", LeftShiftSmi, 1, 4, 16, true},
		{"left shift zero", LeftShiftSmi, 0, 200, 0, true},
		{"left shift negative count", LeftShiftSmi, 1, -1, 0, false},
		{"left shift overflow", LeftShiftSmi, 1, 58, 0, false},
		{"right shift", RightShiftSmi, -16, 2, -4, true},
		{"right shift large", RightShiftSmi, -16, 100, -1, true},
		{"right shift negative count", RightShiftSmi, 16, -2, 0, false},
		{"and", AndSmi, 12, 10, 8, true},
		{"or", OrSmi, 12, 10, 14, true},
		{"xor", XorSmi, 12, 10, 6, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.fn(Smi(tt.a), Smi(tt.b))
			require.Equal(t, tt.ok, ok)
			if ok {
				require.True(t, got.IsSmi())
				require.Equal(t, tt.want, got.Int())
			}
		})
	}
}

func TestNegateAndInvert(t *testing.T) {
	v, ok := NegateSmi(Smi(5))
	require.True(t, ok)
	require.Equal(t, int64(-5), v.Int())
	_, ok = NegateSmi(Smi(MinSmi))
	require.False(t, ok)
	require.Equal(t, int64(-6), InvertSmi(Smi(5)).Int())
	require.True(t, InvertSmi(Smi(5)).IsSmi())
}

func TestCompareSmi(t *testing.T) {
	require.Equal(t, -1, CompareSmi(Smi(-3), Smi(2)))
	require.Equal(t, 0, CompareSmi(Smi(2), Smi(2)))
	require.Equal(t, 1, CompareSmi(Smi(MaxSmi), Smi(MinSmi)))
}
