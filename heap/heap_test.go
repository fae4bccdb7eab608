package heap

import (
	"testing"

	"github.com/clovervm/clover/value"
	"github.com/stretchr/testify/require"
)

func TestRoundUp(t *testing.T) {
	require.Equal(t, 32, RoundUp(0))
	require.Equal(t, 32, RoundUp(1))
	require.Equal(t, 32, RoundUp(32))
	require.Equal(t, 64, RoundUp(33))
}

func TestSlabAllocationsCarryTag(t *testing.T) {
	g := NewRefcounted()
	defer g.Close()

	s := g.MakeNewSlab()
	require.NotNil(t, s)
	prev := Nil
	for i := 0; i < 10; i++ {
		a := s.Allocate(i*7 + 1)
		require.NotEqual(t, Nil, a)
		require.Equal(t, uint64(value.RefcountedTag), a.Value().Tag())
		require.True(t, a.Value().IsRefcounted())
		if prev != Nil {
			require.Zero(t, (a.Offset()-prev.Offset())%Granularity)
		}
		prev = a
	}
}

func TestSlabExhaustionReturnsNil(t *testing.T) {
	g := NewInterned(WithSlabSize(4096))
	defer g.Close()

	s := g.MakeNewSlab()
	n := 0
	for s.Allocate(64) != Nil {
		n++
	}
	require.Equal(t, (4096-value.InternedTag)/64, n)
	require.Equal(t, (4096-value.InternedTag)%64, s.Remaining())

	tests := []struct {
		name  string
		size  int
		fails bool
	}{
		{name: "full request", size: 64, fails: true},
		{name: "one past remaining", size: s.Remaining() + 1, fails: true},
		{name: "rounded remainder fits", size: Granularity, fails: false},
		{name: "tail smaller than a granule", size: 1, fails: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.fails {
				require.Equal(t, Nil, s.Allocate(tt.size))
			} else {
				require.NotEqual(t, Nil, s.Allocate(tt.size))
			}
		})
	}
}

func TestArenasNeverShareTags(t *testing.T) {
	heaps := []*GlobalHeap{NewRefcounted(), NewImmortal(), NewInterned()}
	kinds := []value.Kind{value.KindRefcounted, value.KindImmortal, value.KindInterned}
	for i, g := range heaps {
		a := g.Allocate(40)
		require.Equal(t, kinds[i], a.Value().Kind())
		require.NoError(t, g.Close())
	}
}

func TestThreadHeapFallsBackToNewSlab(t *testing.T) {
	g := NewRefcounted(WithSlabSize(4096), WithLargeObjectSize(2048))
	defer g.Close()

	th := NewThreadHeap(g)
	for i := 0; i < 200; i++ {
		require.NotEqual(t, Nil, th.Allocate(100))
	}
	require.Greater(t, g.SlabCount(), 1)
}

func TestThreadHeapLargeObject(t *testing.T) {
	g := NewRefcounted(WithSlabSize(4096), WithLargeObjectSize(2048))
	defer g.Close()

	th := NewThreadHeap(g)
	small := th.Allocate(16)
	require.Equal(t, 1, g.SlabCount())

	big := th.Allocate(10000)
	require.NotEqual(t, Nil, big)
	require.Equal(t, 2, g.SlabCount())
	require.NotEqual(t, small.SlabID(), big.SlabID())
	require.GreaterOrEqual(t, len(Bytes(big)), 10000)

	// The active slab is kept for subsequent small allocations.
	next := th.Allocate(16)
	require.Equal(t, small.SlabID(), next.SlabID())
}

func TestBytesAreWritable(t *testing.T) {
	g := NewImmortal()
	a := g.Allocate(8)
	b := Bytes(a)
	b[0] = 0xab
	require.Equal(t, byte(0xab), Bytes(a)[0])
	require.True(t, Live(a))
	require.NoError(t, g.Close())
	require.False(t, Live(a))
	require.Panics(t, func() { Bytes(a) })
}

func TestMappingFailureIsFatal(t *testing.T) {
	var fatal error
	g := NewRefcounted(WithSlabSize(8), WithFatalHandler(func(err error) { fatal = err }))
	defer g.Close()

	require.Equal(t, Nil, g.Allocate(8))
	require.ErrorContains(t, fatal, "invalid slab size 8")
	require.Zero(t, g.SlabCount())
}
