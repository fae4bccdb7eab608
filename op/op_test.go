package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	tests := []struct {
		name string
		code Code
		size int
	}{
		{"Halt", Halt, 1},
		{"Call", Call, 3},
		{"LdaSmi", LdaSmi, 2},
		{"LdaGlobal", LdaGlobal, 5},
		{"Jump", Jump, 3},
		{"Sub", Sub, 2},
		{"MulSmi", MulSmi, 2},
		{"Ldar", Ldar, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.code, info.Code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.size, info.Size)
			require.Equal(t, -1, info.Register)
		})
	}
}

func TestShortForms(t *testing.T) {
	for r := 0; r < ShortRegisters; r++ {
		ldar := GetInfo(LdarShort + Code(r))
		require.Equal(t, "Ldar", ldar.Name)
		require.Equal(t, r, ldar.Register)
		require.Equal(t, 1, ldar.Size)
		star := GetInfo(StarShort + Code(r))
		require.Equal(t, "Star", star.Name)
		require.Equal(t, r, star.Register)
	}
	require.Equal(t, "Star.r3", (StarShort + 3).String())
}

func TestSmiForm(t *testing.T) {
	require.Equal(t, AddSmi, SmiForm(Add))
	require.Equal(t, BitwiseXorSmi, SmiForm(BitwiseXor))
	require.Equal(t, SubSmi, SmiForm(Sub))
	require.Equal(t, Invalid, SmiForm(Equal))
}

func TestUndefinedOpcodes(t *testing.T) {
	require.False(t, GetInfo(Invalid).Valid())
	require.False(t, GetInfo(Code(0xff)).Valid())
	require.Equal(t, "Code(255)", Code(0xff).String())
}
