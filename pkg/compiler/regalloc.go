package compiler

import (
	"errors"
	"fmt"
)

// Register is a virtual machine register index within one function's
// register file, capped at 256 per function to fit a one-byte operand.
type Register uint8

// ErrTooManyRegisters is returned once a function's live register count
// would exceed the register file.
var ErrTooManyRegisters = errors.New("compiler: function requires more than 255 registers")

// maxRegisters reserves the top of the one-byte register space (255) as
// the sentinel used for a predeclared-but-unassigned symbol (nilRegister
// in symbol_table.go), so only 255 of the 256 possible byte values are
// actually allocatable.
const maxRegisters = 255

// RegisterAllocator assigns virtual registers within one function scope.
// Allocation is stack-like with a free list for reuse; registers holding
// values a closure may capture must be pinned so they survive past their
// apparent lexical scope. nextReg/maxReg are plain ints (not Register)
// so a full 256-register file can be counted without uint8 wraparound.
type RegisterAllocator struct {
	nextReg    int
	maxReg     int
	overflowed bool
	freeRegs   []Register
	pinned     map[Register]bool
}

func NewRegisterAllocator() *RegisterAllocator {
	return &RegisterAllocator{maxReg: -1, pinned: make(map[Register]bool)}
}

// Alloc allocates the next available register, preferring the free list.
func (ra *RegisterAllocator) Alloc() (Register, error) {
	if len(ra.freeRegs) > 0 {
		last := len(ra.freeRegs) - 1
		reg := ra.freeRegs[last]
		ra.freeRegs = ra.freeRegs[:last]
		if int(reg) > ra.maxReg {
			ra.maxReg = int(reg)
		}
		return reg, nil
	}
	if ra.nextReg >= maxRegisters {
		ra.overflowed = true
		return 0, ErrTooManyRegisters
	}
	reg := Register(ra.nextReg)
	ra.nextReg++
	if int(reg) > ra.maxReg {
		ra.maxReg = int(reg)
	}
	return reg, nil
}

// MustAlloc allocates or panics; for callers that have already ensured
// the register file has room.
func (ra *RegisterAllocator) MustAlloc() Register {
	r, err := ra.Alloc()
	if err != nil {
		panic(err)
	}
	return r
}

// AllocContiguous allocates count consecutive registers and returns the
// first. Prefers a run already sitting in the free list.
func (ra *RegisterAllocator) AllocContiguous(count int) (Register, error) {
	if count <= 0 {
		return 0, fmt.Errorf("compiler: AllocContiguous count must be positive, got %d", count)
	}
	if count == 1 {
		return ra.Alloc()
	}
	if first, ok := ra.freeContiguousRun(count); ok {
		for i := 0; i < count; i++ {
			reg := first + Register(i)
			ra.removeFree(reg)
			if int(reg) > ra.maxReg {
				ra.maxReg = int(reg)
			}
		}
		return first, nil
	}
	if ra.nextReg+count > maxRegisters {
		ra.overflowed = true
		return 0, ErrTooManyRegisters
	}
	first := Register(ra.nextReg)
	ra.nextReg += count
	if ra.nextReg-1 > ra.maxReg {
		ra.maxReg = ra.nextReg - 1
	}
	return first, nil
}

func (ra *RegisterAllocator) freeContiguousRun(count int) (Register, bool) {
	if len(ra.freeRegs) < count {
		return 0, false
	}
	sorted := append([]Register(nil), ra.freeRegs...)
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	for i := 0; i+count <= len(sorted); i++ {
		ok := true
		for j := 1; j < count; j++ {
			if sorted[i+j] != sorted[i]+Register(j) {
				ok = false
				break
			}
		}
		if ok {
			return sorted[i], true
		}
	}
	return 0, false
}

func (ra *RegisterAllocator) removeFree(reg Register) {
	for i, r := range ra.freeRegs {
		if r == reg {
			ra.freeRegs = append(ra.freeRegs[:i], ra.freeRegs[i+1:]...)
			return
		}
	}
}

// Free returns reg to the free list, unless it is pinned.
func (ra *RegisterAllocator) Free(reg Register) {
	if ra.pinned[reg] {
		return
	}
	ra.freeRegs = append(ra.freeRegs, reg)
}

// Pin prevents reg from being freed — used for locals a nested closure
// may capture as an upvalue, so they stay live past the statement that
// introduced them.
func (ra *RegisterAllocator) Pin(reg Register)           { ra.pinned[reg] = true }
func (ra *RegisterAllocator) Unpin(reg Register)         { delete(ra.pinned, reg) }
func (ra *RegisterAllocator) IsPinned(reg Register) bool { return ra.pinned[reg] }

// MaxRegs returns the register-file size this function needs.
func (ra *RegisterAllocator) MaxRegs() int {
	if ra.maxReg < 0 {
		return 0
	}
	return ra.maxReg + 1
}

func (ra *RegisterAllocator) Overflowed() bool { return ra.overflowed }

func (r Register) String() string { return fmt.Sprintf("R%d", r) }
