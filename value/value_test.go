package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelEncoding(t *testing.T) {
	require.Equal(t, Value(0x24), True)
	require.Equal(t, Value(0x04), False)
	require.Equal(t, Value(0x01), None)
	require.Equal(t, Value(0x03), Exception)
	require.Equal(t, int32(-1), NotPresent.ParentIndex())
}

func TestKindsAreExclusive(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		kind Kind
	}{
		{"smi", Smi(-7), KindSmi},
		{"zero", Zero, KindSmi},
		{"true", True, KindBool},
		{"false", False, KindBool},
		{"none", None, KindNone},
		{"not present", NotPresentAt(12), KindNotPresent},
		{"exception", Exception, KindException},
		{"refcounted", Value(1<<32 | 0x30), KindRefcounted},
		{"interned", Value(1<<32 | 0x28), KindInterned},
		{"immortal", Value(1<<32 | 0x2c), KindImmortal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.kind, tt.v.Kind())
			isPtr := tt.kind == KindRefcounted || tt.kind == KindInterned || tt.kind == KindImmortal
			require.Equal(t, isPtr, tt.v.IsPtr())
			require.Equal(t, tt.kind == KindSmi, tt.v.IsSmi())
			require.Equal(t, tt.kind == KindRefcounted, tt.v.IsRefcounted())
			require.Equal(t, tt.kind == KindBool, tt.v.IsBool())
		})
	}
}

func TestSmiRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 127, -128, MaxSmi, MinSmi} {
		v, ok := SmiChecked(n)
		require.True(t, ok)
		require.Equal(t, n, v.Int())
	}
	_, ok := SmiChecked(MaxSmi + 1)
	require.False(t, ok)
	_, ok = SmiChecked(MinSmi - 1)
	require.False(t, ok)
}

func TestNotPresentIndex(t *testing.T) {
	v := NotPresentAt(42)
	require.True(t, v.IsNotPresent())
	require.Equal(t, int32(42), v.ParentIndex())
}

func TestInlineTruthy(t *testing.T) {
	require.False(t, Zero.InlineTruthy())
	require.False(t, None.InlineTruthy())
	require.False(t, False.InlineTruthy())
	require.True(t, True.InlineTruthy())
	require.True(t, Smi(-3).InlineTruthy())
}

func TestBoolToInt(t *testing.T) {
	require.Equal(t, Smi(1), True.BoolToInt())
	require.Equal(t, Smi(0), False.BoolToInt())
}

func TestString(t *testing.T) {
	require.Equal(t, "-13", Smi(-13).String())
	require.Equal(t, "True", True.String())
	require.Equal(t, "None", None.String())
}
