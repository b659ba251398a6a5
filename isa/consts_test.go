package isa

import "testing"

func TestAutoSymbolValue(t *testing.T) {
	if v, ok := AutoSymbolValue("IO_STDOUT_ADDR"); !ok || v != IOStdoutAddr {
		t.Errorf("AutoSymbolValue(IO_STDOUT_ADDR) = (%#x, %v), want (%#x, true)", v, ok, IOStdoutAddr)
	}
	if _, ok := AutoSymbolValue("NOT_A_SYMBOL"); ok {
		t.Error("AutoSymbolValue should reject an unknown name")
	}
}

func TestAutoSymbolsSorted(t *testing.T) {
	for i := 1; i < len(AutoSymbols); i++ {
		if AutoSymbols[i-1].Name >= AutoSymbols[i].Name {
			t.Fatalf("AutoSymbols not sorted at index %d: %q >= %q", i, AutoSymbols[i-1].Name, AutoSymbols[i].Name)
		}
	}
}

func TestSectionFlagString(t *testing.T) {
	if got := SectionText.String(); got != "text" {
		t.Errorf("SectionText.String() = %q, want %q", got, "text")
	}
	if got := SectionFlag(99).String(); got != "?unknown?" {
		t.Errorf("SectionFlag(99).String() = %q, want the unknown fallback", got)
	}
}
