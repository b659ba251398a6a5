package vmcore

import (
	"testing"

	"starch/isa"
)

func op(t *testing.T, name string) byte {
	t.Helper()
	o, ok := isa.OpcodeForName(name)
	if !ok {
		t.Fatalf("unknown opcode %q", name)
	}
	return byte(o)
}

func le64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

func runProgram(t *testing.T, prog []byte, entry uint64, m *Memory) isa.Result {
	t.Helper()
	m.LoadImage(entry, prog)
	c := NewCore(entry)
	for i := 0; i < 1000; i++ {
		r := c.Step(m)
		if r != isa.ResultNone {
			return r
		}
	}
	t.Fatal("program did not terminate within 1000 steps")
	return isa.ResultNone
}

// Scenario 1: push8 0x2a ; halt leaves sp = initial_sp - 1 and mem[sp] = 0x2a.
func TestPushHalt(t *testing.T) {
	m := NewMemory()
	prog := []byte{op(t, "push8as8"), 0x2a, op(t, "halt"), 0x00}
	entry := uint64(0x1000)

	m.LoadImage(entry, prog)
	c := NewCore(entry)
	for {
		r := c.Step(m)
		if r == isa.ResultHalt {
			break
		}
		if r != isa.ResultNone {
			t.Fatalf("unexpected result %s", r)
		}
	}

	if c.SP != initialStackPtr-1 {
		t.Errorf("sp = %#x, want %#x", c.SP, initialStackPtr-1)
	}
	v, res := m.Read(c.SP, 1)
	if res != isa.ResultNone || v != 0x2a {
		t.Errorf("mem[sp] = (%#x, %s), want (0x2a, NONE)", v, res)
	}
}

// Scenario 2: push64 1 ; push64 2 ; add64 ; halt leaves 3 at sp.
func TestPushAddHalt(t *testing.T) {
	m := NewMemory()
	var prog []byte
	prog = append(prog, op(t, "push64as64"))
	prog = append(prog, le64(1)...)
	prog = append(prog, op(t, "push64as64"))
	prog = append(prog, le64(2)...)
	prog = append(prog, op(t, "add64"))
	prog = append(prog, op(t, "halt"), 0x00)

	entry := uint64(0x1000)
	r := runProgram(t, prog, entry, m)
	if r != isa.ResultHalt {
		t.Fatalf("result = %s, want HALT", r)
	}

	c := NewCore(entry) // only used to know initialStackPtr - 8
	v, res := m.Read(c.SP-8, 8)
	if res != isa.ResultNone || v != 3 {
		t.Fatalf("top of stack = (%#x, %s), want (3, NONE)", v, res)
	}
}

// Scenario 3: push64 6 ; push64 0 ; divu64 yields DIV_BY_ZERO.
func TestDivByZero(t *testing.T) {
	m := NewMemory()
	var prog []byte
	prog = append(prog, op(t, "push64as64"))
	prog = append(prog, le64(6)...)
	prog = append(prog, op(t, "push64as64"))
	prog = append(prog, le64(0)...)
	prog = append(prog, op(t, "divu64"))

	entry := uint64(0x1000)
	m.LoadImage(entry, prog)
	c := NewCore(entry)
	var result isa.Result
	for i := 0; i < 10; i++ {
		result = c.Step(m)
		if result != isa.ResultNone {
			break
		}
	}
	if result != isa.ResultDivByZero {
		t.Fatalf("result = %s, want DIV_BY_ZERO", result)
	}
}

// Scenario 4: push8 '\n' ; push64 IO_STDOUT_ADDR ; storepop8 ; halt writes one
// newline byte to stdout and returns HALT.
func TestStorepopWritesStdout(t *testing.T) {
	m := NewMemory()
	dev := &fakeIO{}
	m.WithIO(dev)

	var prog []byte
	prog = append(prog, op(t, "push8as8"), '\n')
	prog = append(prog, op(t, "push64as64"))
	prog = append(prog, le64(isa.IOStdoutAddr)...)
	prog = append(prog, op(t, "storepop8"))
	prog = append(prog, op(t, "halt"), 0x00)

	r := runProgram(t, prog, 0x1000, m)
	if r != isa.ResultHalt {
		t.Fatalf("result = %s, want HALT", r)
	}
	if len(dev.written) != 1 || dev.written[0] != '\n' {
		t.Fatalf("device saw %v, want a single '\\n' write", dev.written)
	}
}

// A self-referencing rjmpi8 (delta -1, per the assembler's own worked
// example) moves pc one byte behind its own address when executed, per the
// runtime prose in spec.md 4.8 ("relative to the address of the jump
// opcode"); see DESIGN.md's Open Question Decision 1.
func TestRjmpiAppliesDeltaToUnmodifiedPC(t *testing.T) {
	m := NewMemory()
	entry := uint64(0x1000)
	prog := []byte{op(t, "rjmpi8"), 0xff} // -1
	m.LoadImage(entry, prog)

	c := NewCore(entry)
	if r := c.Step(m); r != isa.ResultNone {
		t.Fatalf("unexpected result %s", r)
	}
	if c.PC != entry-1 {
		t.Errorf("pc = %#x, want %#x", c.PC, entry-1)
	}
}

// storepop* pops only the 8-byte address it read, leaving the value in
// place on the stack (now on top); it must not also pop the value's width.
func TestStorepopAdvancesByAddressWidthOnly(t *testing.T) {
	m := NewMemory()
	entry := uint64(0x1000)
	scratch := uint64(0x5000)

	var prog []byte
	prog = append(prog, op(t, "push8as8"), 0x42) // value, ends up below the address
	prog = append(prog, op(t, "push64as64"))
	prog = append(prog, le64(scratch)...) // address, on top
	prog = append(prog, op(t, "storepop8"))
	prog = append(prog, op(t, "halt"), 0x00)

	c := NewCore(entry)
	preSP := c.SP
	m.LoadImage(entry, prog)
	for {
		r := c.Step(m)
		if r == isa.ResultHalt {
			break
		}
		if r != isa.ResultNone {
			t.Fatalf("unexpected result %s", r)
		}
	}

	if c.SP != preSP-1 {
		t.Errorf("sp = %#x, want %#x (only the address's 8 bytes popped, value's 1 byte left)", c.SP, preSP-1)
	}
	v, res := m.Read(scratch, 1)
	if res != isa.ResultNone || v != 0x42 {
		t.Errorf("mem[scratch] = (%#x, %s), want (0x42, NONE)", v, res)
	}
	top, res := m.Read(c.SP, 1)
	if res != isa.ResultNone || top != 0x42 {
		t.Errorf("top of stack after storepop8 = (%#x, %s), want (0x42, NONE)", top, res)
	}
}

// storerpop* pops only the w-byte value it read, leaving the address in
// place on the stack (now on top).
func TestStorerpopAdvancesByValueWidthOnly(t *testing.T) {
	m := NewMemory()
	entry := uint64(0x1000)
	scratch := uint64(0x5000)

	var prog []byte
	prog = append(prog, op(t, "push64as64"))
	prog = append(prog, le64(scratch)...) // address, ends up below the value
	prog = append(prog, op(t, "push8as8"), 0x42) // value, on top
	prog = append(prog, op(t, "storerpop8"))
	prog = append(prog, op(t, "halt"), 0x00)

	c := NewCore(entry)
	preSP := c.SP
	m.LoadImage(entry, prog)
	for {
		r := c.Step(m)
		if r == isa.ResultHalt {
			break
		}
		if r != isa.ResultNone {
			t.Fatalf("unexpected result %s", r)
		}
	}

	if c.SP != preSP-8 {
		t.Errorf("sp = %#x, want %#x (only the value's 1 byte popped, address's 8 bytes left)", c.SP, preSP-8)
	}
	v, res := m.Read(scratch, 1)
	if res != isa.ResultNone || v != 0x42 {
		t.Errorf("mem[scratch] = (%#x, %s), want (0x42, NONE)", v, res)
	}
	top, res := m.Read(c.SP, 8)
	if res != isa.ResultNone || top != scratch {
		t.Errorf("top of stack after storerpop8 = (%#x, %s), want (%#x, NONE)", top, res, scratch)
	}
}

// brz branches when the popped value is non-zero (the locked Open Question
// decision), not when it is zero despite the mnemonic.
func TestBrzBranchesOnNonZero(t *testing.T) {
	m := NewMemory()
	entry := uint64(0x1000)
	target := uint64(0x2000)
	var prog []byte
	prog = append(prog, op(t, "push8as8"), 0x01) // non-zero
	prog = append(prog, op(t, "brz8"))
	prog = append(prog, le64(target)...)

	m.LoadImage(entry, prog)
	c := NewCore(entry)
	c.Step(m) // push
	if r := c.Step(m); r != isa.ResultNone {
		t.Fatalf("unexpected result %s", r)
	}
	if c.PC != target {
		t.Errorf("pc = %#x, want %#x (branch taken on non-zero)", c.PC, target)
	}
}
