package isa

import "testing"

func TestOpcodeForNameRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		op   Opcode
	}{
		{"push8as8", Push8As8},
		{"add64", Add64},
		{"halt", Halt},
		{"setsbp", Setsbp},
		{"storerpopsfp64", Storerpopsfp64},
	}
	for _, c := range cases {
		op, ok := OpcodeForName(c.name)
		if !ok {
			t.Fatalf("OpcodeForName(%q): not found", c.name)
		}
		if op != c.op {
			t.Errorf("OpcodeForName(%q) = %d, want %d", c.name, op, c.op)
		}
		if got := NameForOpcode(op); got != c.name {
			t.Errorf("NameForOpcode(%d) = %q, want %q", op, got, c.name)
		}
	}
}

func TestOpcodeForNameUnknown(t *testing.T) {
	if _, ok := OpcodeForName("not_a_real_mnemonic"); ok {
		t.Fatal("expected OpcodeForName to reject an unknown mnemonic")
	}
}

func TestInvalidOpcodeString(t *testing.T) {
	if got := Opcode(0xf9).String(); got != "?unknown?" {
		t.Errorf("Opcode(0xf9).String() = %q, want the unassigned-gap fallback", got)
	}
}

func TestSpecialOpcodesDoNotCollideWithSequentialRange(t *testing.T) {
	specials := []Opcode{Setsbp, Setsfp, Setsp, Setslp, Halt, Ext, Nop}
	for _, s := range specials {
		if s < 0xf4 {
			t.Errorf("special opcode %#x collides with the sequential push..store range", byte(s))
		}
	}
}

func TestIsJumpOrBranch(t *testing.T) {
	if isJB, delta := IsJumpOrBranch(Jmp); !isJB || delta {
		t.Errorf("Jmp: got (%v, %v), want (true, false)", isJB, delta)
	}
	if isJB, delta := IsJumpOrBranch(Rjmpi8); !isJB || !delta {
		t.Errorf("Rjmpi8: got (%v, %v), want (true, true)", isJB, delta)
	}
	if isJB, _ := IsJumpOrBranch(Add64); isJB {
		t.Error("Add64 misclassified as a jump/branch opcode")
	}
}
