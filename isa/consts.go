package isa

// Named addresses and the automatic symbol table the assembler resolves
// $-prefixed identifiers against (spec.md 4.5d). Values for BEGIN_INT_ADDR and
// INIT_PC_VAL are not pinned anywhere in the retrieved sources beyond being
// named; BEGIN_INT_ADDR is placed at the bottom of the address space (mirroring
// the interrupt-vector-at-low-addresses convention used elsewhere in the
// example pack) and INIT_PC_VAL at a conventional low section address.
const (
	BeginIntAddr uint64 = 0x0000000000000000
	InitPCVal    uint64 = 0x0000000000001000

	BeginIOAddr   uint64 = 0xfffffffffff00000
	IOStdoutAddr  uint64 = BeginIOAddr
	IOStdinAddr   uint64 = BeginIOAddr + 1
	IOFlushAddr   uint64 = BeginIOAddr + 2
	IOUrandAddr   uint64 = BeginIOAddr + 3
	IOAssertAddr  uint64 = BeginIOAddr + 4
)

// AutoSymbol is one entry of the assembler's fixed symbol table: names other
// than opcodes and interrupt numbers, resolved by binary search (the table is
// kept sorted by Name for that purpose), matching stasm's autosyms table.
type AutoSymbol struct {
	Name  string
	Value uint64
}

var AutoSymbols = []AutoSymbol{
	{"BEGIN_INT_ADDR", BeginIntAddr},
	{"BEGIN_IO_ADDR", BeginIOAddr},
	{"INIT_PC_VAL", InitPCVal},
	{"IO_ASSERT_ADDR", IOAssertAddr},
	{"IO_FLUSH_ADDR", IOFlushAddr},
	{"IO_STDIN_ADDR", IOStdinAddr},
	{"IO_STDOUT_ADDR", IOStdoutAddr},
	{"IO_URAND_ADDR", IOUrandAddr},
}

// AutoSymbolValue looks up name (without its leading '$') in AutoSymbols using
// binary search, since the table above is maintained in sorted order.
func AutoSymbolValue(name string) (uint64, bool) {
	lo, hi := 0, len(AutoSymbols)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case name < AutoSymbols[mid].Name:
			hi = mid - 1
		case name > AutoSymbols[mid].Name:
			lo = mid + 1
		default:
			return AutoSymbols[mid].Value, true
		}
	}
	return 0, false
}

// Section flags (spec.md 3: "flags selects one of {TEXT, DATA, STACK}").
type SectionFlag uint8

const (
	SectionText SectionFlag = iota
	SectionData
	SectionStack
)

func (f SectionFlag) String() string {
	switch f {
	case SectionText:
		return "text"
	case SectionData:
		return "data"
	case SectionStack:
		return "stack"
	default:
		return "?unknown?"
	}
}
