package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequentialAllocation(t *testing.T) {
	ra := NewRegisterAllocator()
	r0, err := ra.Alloc()
	require.NoError(t, err)
	r1, err := ra.Alloc()
	require.NoError(t, err)
	require.Equal(t, Register(0), r0)
	require.Equal(t, Register(1), r1)
	require.Equal(t, 2, ra.MaxRegs())
}

func TestFreeThenReuse(t *testing.T) {
	ra := NewRegisterAllocator()
	r0, _ := ra.Alloc()
	r1, _ := ra.Alloc()
	ra.Free(r0)
	reused, err := ra.Alloc()
	require.NoError(t, err)
	require.Equal(t, r0, reused)
	require.Equal(t, Register(1), r1)
}

func TestPinnedRegisterSurvivesFree(t *testing.T) {
	ra := NewRegisterAllocator()
	r0, _ := ra.Alloc()
	ra.Pin(r0)
	ra.Free(r0)
	next, _ := ra.Alloc()
	require.NotEqual(t, r0, next)
	ra.Unpin(r0)
	ra.Free(r0)
	reused, _ := ra.Alloc()
	require.Equal(t, r0, reused)
}

func TestAllocContiguousPrefersFreeRun(t *testing.T) {
	ra := NewRegisterAllocator()
	regs := make([]Register, 5)
	for i := range regs {
		regs[i], _ = ra.Alloc()
	}
	ra.Free(regs[1])
	ra.Free(regs[2])
	ra.Free(regs[3])
	first, err := ra.AllocContiguous(3)
	require.NoError(t, err)
	require.Equal(t, regs[1], first)
}

func TestAllocContiguousFallsBackToTail(t *testing.T) {
	ra := NewRegisterAllocator()
	ra.MustAlloc()
	first, err := ra.AllocContiguous(4)
	require.NoError(t, err)
	require.Equal(t, Register(1), first)
	require.Equal(t, 5, ra.MaxRegs())
}

func TestAllocFailsPastRegisterCeiling(t *testing.T) {
	ra := NewRegisterAllocator()
	for i := 0; i < maxRegisters; i++ {
		_, err := ra.Alloc()
		require.NoError(t, err)
	}
	_, err := ra.Alloc()
	require.ErrorIs(t, err, ErrTooManyRegisters)
	require.True(t, ra.Overflowed())
}

func TestAllocContiguousFailsWhenTailTooSmall(t *testing.T) {
	ra := NewRegisterAllocator()
	for i := 0; i < maxRegisters-2; i++ {
		ra.MustAlloc()
	}
	_, err := ra.AllocContiguous(3)
	require.ErrorIs(t, err, ErrTooManyRegisters)
}
