package asm

import (
	"os"
	"testing"

	"starch/isa"
)

func assembleSource(t *testing.T, src string) *Assembler {
	t.Helper()
	as := New()
	if err := as.assembleSource("test.asm", []byte(src)); err != nil {
		t.Fatalf("assembleSource: %v", err)
	}
	return as
}

func opcodeMust(t *testing.T, name string) byte {
	t.Helper()
	op, ok := isa.OpcodeForName(name)
	if !ok {
		t.Fatalf("unknown opcode %q", name)
	}
	return byte(op)
}

func TestAssembleSimpleInstruction(t *testing.T) {
	as := assembleSource(t, ".section 0x1000 text\npush8as8 5\nhalt 0\n")
	secs, err := as.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(secs) != 1 {
		t.Fatalf("got %d sections, want 1", len(secs))
	}
	want := []byte{opcodeMust(t, "push8as8"), 5, opcodeMust(t, "halt"), 0}
	if string(secs[0].Bytes) != string(want) {
		t.Errorf("Bytes = %#v, want %#v", secs[0].Bytes, want)
	}
}

func TestAssembleForwardLabelReference(t *testing.T) {
	as := assembleSource(t, ".section 0x1000 text\njmp :target\nnop\n:target\nhalt 0\n")
	secs, err := as.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// jmp (1 byte opcode + 8 byte u64 imm) + nop (1 byte) = target at +10.
	want := uint64(0x1000 + 10)
	if as.labels["target"] != want {
		t.Fatalf("labels[target] = %#x, want %#x", as.labels["target"], want)
	}
	// ... plus halt (1 byte opcode + 1 byte u8 imm) = 12 bytes in all.
	if len(secs[0].Bytes) != 12 {
		t.Fatalf("encoded length = %d, want 12", len(secs[0].Bytes))
	}
}

func TestAssembleRelativeJumpEncodesSelfReferenceAsMinusOne(t *testing.T) {
	as := assembleSource(t, ".section 0x1000 text\n:loop\nrjmpi8 :loop\n")
	secs, err := as.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(secs[0].Bytes) != 2 {
		t.Fatalf("encoded length = %d, want 2", len(secs[0].Bytes))
	}
	if got := int8(secs[0].Bytes[1]); got != -1 {
		t.Errorf("rjmpi8 delta = %d, want -1 for a self-referencing jump", got)
	}
}

func TestDefineAndAutoSymbolSubstitution(t *testing.T) {
	as := assembleSource(t, ".define STACK_BASE 0x40000000\n.section $STACK_BASE stack\npush8as8 $OP_HALT\n")
	if len(as.sections) != 1 || as.sections[0].addr != 0x40000000 {
		t.Fatalf("section addr not resolved from define: %+v", as.sections)
	}
}

func TestRejectsUnsupportedStringsDirective(t *testing.T) {
	as := New()
	if err := as.assembleSource("test.asm", []byte(".section 0x1000 text\n.strings \"hi\"\n")); err == nil {
		t.Fatal("expected an error for the unsupported .strings directive")
	}
}

func TestRejectsInstructionBeforeSection(t *testing.T) {
	as := New()
	if err := as.assembleSource("test.asm", []byte("halt 0\n")); err == nil {
		t.Fatal("expected an error for an instruction with no open section")
	}
}

func TestSemicolonStartsComment(t *testing.T) {
	as := assembleSource(t, ".section 0x1000 text ; entry point\nhalt 0 ; stop here\n")
	secs, err := as.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{opcodeMust(t, "halt"), 0}
	if string(secs[0].Bytes) != string(want) {
		t.Errorf("Bytes = %#v, want %#v", secs[0].Bytes, want)
	}
}

func TestCharLiteralImmediate(t *testing.T) {
	as := assembleSource(t, ".section 0x1000 text\npush8as8 '\\n'\nhalt 0\n")
	secs, err := as.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{opcodeMust(t, "push8as8"), '\n', opcodeMust(t, "halt"), 0}
	if string(secs[0].Bytes) != string(want) {
		t.Errorf("Bytes = %#v, want %#v", secs[0].Bytes, want)
	}
}

func TestCharLiteralHexAndOctalEscapes(t *testing.T) {
	as := assembleSource(t, ".section 0x1000 text\n.data8 '\\x41'\n.data8 '\\101'\n")
	secs, err := as.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(secs[0].Bytes) != "AA" {
		t.Errorf("Bytes = %#v, want \"AA\"", secs[0].Bytes)
	}
}

func TestPushPseudoOpChoosesNarrowestOpcode(t *testing.T) {
	cases := []struct {
		src  string
		want isa.Opcode
	}{
		{".section 0x1000 text\npush8 5\n", isa.Push8As8},
		{".section 0x1000 text\npush16 5\n", isa.Push8AsU16},
		{".section 0x1000 text\npush16 0x1234\n", isa.Push16As16},
		{".section 0x1000 text\npush32 5\n", isa.Push8AsU32},
		{".section 0x1000 text\npush64 -1\n", isa.Push8AsI64},
		{".section 0x1000 text\npush64 0x1000\n", isa.Push16AsU64},
	}
	for _, tc := range cases {
		as := assembleSource(t, tc.src)
		if len(as.sections[0].items) != 1 {
			t.Fatalf("%q: got %d items, want 1", tc.src, len(as.sections[0].items))
		}
		if got := as.sections[0].items[0].opcode; got != tc.want {
			t.Errorf("%q: opcode = %s, want %s", tc.src, got, tc.want)
		}
	}
}

func TestPushPseudoOpRejectsLabelOperand(t *testing.T) {
	as := New()
	err := as.assembleSource("test.asm", []byte(".section 0x1000 text\n:here\npush64 :here\n"))
	if err == nil {
		t.Fatal("expected an error for a push pseudo-op with a label operand")
	}
}

func TestIncludeTransfersDefinesBothWays(t *testing.T) {
	dir := t.TempDir()
	childPath := dir + "/child.asm"
	if err := os.WriteFile(childPath, []byte(".define CHILD_VAL 7\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	as := New()
	src := ".define PARENT_VAL 3\n.section 0x1000 text\n.include \"" + childPath + "\"\n.data8 $PARENT_VAL\n.data8 $CHILD_VAL\n"
	if err := as.assembleSource(dir+"/parent.asm", []byte(src)); err != nil {
		t.Fatalf("assembleSource: %v", err)
	}
	if as.defines["CHILD_VAL"] != "7" {
		t.Errorf("defines[CHILD_VAL] = %q, want \"7\" to be visible after the include returns", as.defines["CHILD_VAL"])
	}
	secs, err := as.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(secs[0].Bytes) != "\x03\x07" {
		t.Errorf("Bytes = %#v, want {3, 7}", secs[0].Bytes)
	}
}
