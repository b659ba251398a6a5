package disasm

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"starch/isa"
	"starch/stub"
)

func buildStub(t *testing.T, path string, addr uint64, flags isa.SectionFlag, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()

	sf, err := stub.Init(f, 1)
	if err != nil {
		t.Fatalf("stub.Init: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write section data: %v", err)
	}
	if err := sf.SaveSection(0, stub.Section{Addr: addr, Flags: uint8(flags)}); err != nil {
		t.Fatalf("SaveSection: %v", err)
	}
}

func TestDisassembleVoidAndImmediateOpcodes(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/prog.stb"

	push8as8, _ := isa.OpcodeForName("push8as8")
	halt, _ := isa.OpcodeForName("halt")
	nop, _ := isa.OpcodeForName("nop")

	data := []byte{byte(push8as8), 0x2a, byte(halt), 0x00, byte(nop)}
	buildStub(t, path, 0x1000, isa.SectionText, data)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := Disassemble(f, &out); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	text := out.String()
	if !strings.Contains(text, ".section 0x1000") {
		t.Errorf("missing section header in output:\n%s", text)
	}
	if !strings.Contains(text, "push8as8 0x2a") {
		t.Errorf("expected push8as8 0x2a in output:\n%s", text)
	}
	if !strings.Contains(text, "halt 0") {
		t.Errorf("expected zero immediate to print as \"0\", got:\n%s", text)
	}
	if !strings.Contains(text, "nop\n") {
		t.Errorf("expected bare nop line, got:\n%s", text)
	}
}

func TestDisassembleSignedImmediate(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/neg.stb"

	rjmpi8, _ := isa.OpcodeForName("rjmpi8")
	data := []byte{byte(rjmpi8), 0xff} // -1 as int8
	buildStub(t, path, 0x2000, isa.SectionText, data)

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var out bytes.Buffer
	if err := Disassemble(f, &out); err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if !strings.Contains(out.String(), "rjmpi8 -0x1") {
		t.Errorf("expected signed magnitude formatting, got:\n%s", out.String())
	}
}
