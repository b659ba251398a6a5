// Package isa is the single source of truth for the Starch instruction set:
// the opcode table, the per-opcode immediate type, jump/branch classification,
// and the sized-data-type table used to validate and encode immediates.
package isa

// Opcode identifies a single Starch instruction. The low range is dense and
// packed from 0x01 upward in the order the instruction families are listed
// below; op_invalid sits at 0x00 and the handful of special operations are
// clustered at the top of the byte range, mirroring the admin/ext/nop cluster
// in 0xfd..0xff.
type Opcode byte

const (
	Invalid Opcode = 0x00

	// Push-immediate widenings
	Push8As8 Opcode = iota
	Push8AsU16
	Push8AsU32
	Push8AsU64
	Push8AsI16
	Push8AsI32
	Push8AsI64
	Push16As16
	Push16AsU32
	Push16AsU64
	Push16AsI32
	Push16AsI64
	Push32As32
	Push32AsU64
	Push32AsI64
	Push64As64

	// Pop
	Pop8
	Pop16
	Pop32
	Pop64

	// Duplicate
	Dup8
	Dup16
	Dup32
	Dup64

	// Set-from-top
	Set8
	Set16
	Set32
	Set64

	// Promote (zero/sign extend)
	Prom8U16
	Prom8U32
	Prom8U64
	Prom8I16
	Prom8I32
	Prom8I64
	Prom16U32
	Prom16U64
	Prom16I32
	Prom16I64
	Prom32U64
	Prom32I64

	// Demote (truncate)
	Dem64To16
	Dem64To8
	Dem32To8

	// Integer arithmetic
	Add8
	Add16
	Add32
	Add64
	Sub8
	Sub16
	Sub32
	Sub64
	Subr8
	Subr16
	Subr32
	Subr64
	Mul8
	Mul16
	Mul32
	Mul64
	Divu8
	Divu16
	Divu32
	Divu64
	Divru8
	Divru16
	Divru32
	Divru64
	Divi8
	Divi16
	Divi32
	Divi64
	Divri8
	Divri16
	Divri32
	Divri64
	Modu8
	Modu16
	Modu32
	Modu64
	Modru8
	Modru16
	Modru32
	Modru64
	Modi8
	Modi16
	Modi32
	Modi64
	Modri8
	Modri16
	Modri32
	Modri64

	// Bitwise shifts
	Lshift8
	Lshift16
	Lshift32
	Lshift64
	Rshiftu8
	Rshiftu16
	Rshiftu32
	Rshiftu64
	Rshifti8
	Rshifti16
	Rshifti32
	Rshifti64

	// Bitwise logical
	Band8
	Band16
	Band32
	Band64
	Bor8
	Bor16
	Bor32
	Bor64
	Bxor8
	Bxor16
	Bxor32
	Bxor64
	Binv8
	Binv16
	Binv32
	Binv64

	// Boolean logical
	Land8
	Land16
	Land32
	Land64
	Lor8
	Lor16
	Lor32
	Lor64
	Linv8
	Linv16
	Linv32
	Linv64

	// Comparisons
	Ceq8
	Ceq16
	Ceq32
	Ceq64
	Cne8
	Cne16
	Cne32
	Cne64
	Cgtu8
	Cgtu16
	Cgtu32
	Cgtu64
	Cgti8
	Cgti16
	Cgti32
	Cgti64
	Cltu8
	Cltu16
	Cltu32
	Cltu64
	Clti8
	Clti16
	Clti32
	Clti64
	Cgeu8
	Cgeu16
	Cgeu32
	Cgeu64
	Cgei8
	Cgei16
	Cgei32
	Cgei64
	Cleu8
	Cleu16
	Cleu32
	Cleu64
	Clei8
	Clei16
	Clei32
	Clei64

	// Function
	Call
	Calls
	Ret

	// Jump
	Jmp
	Jmps
	Rjmpi8
	Rjmpi16
	Rjmpi32

	// Conditional branch
	Brz8
	Brz16
	Brz32
	Brz64
	Rbrz8i8
	Rbrz8i16
	Rbrz8i32
	Rbrz16i8
	Rbrz16i16
	Rbrz16i32
	Rbrz32i8
	Rbrz32i16
	Rbrz32i32
	Rbrz64i8
	Rbrz64i16
	Rbrz64i32

	// Memory
	Load8
	Load16
	Load32
	Load64
	Loadpop8
	Loadpop16
	Loadpop32
	Loadpop64
	Loadsfp8
	Loadsfp16
	Loadsfp32
	Loadsfp64
	Loadpopsfp8
	Loadpopsfp16
	Loadpopsfp32
	Loadpopsfp64
	Store8
	Store16
	Store32
	Store64
	Storepop8
	Storepop16
	Storepop32
	Storepop64
	Storesfp8
	Storesfp16
	Storesfp32
	Storesfp64
	Storepopsfp8
	Storepopsfp16
	Storepopsfp32
	Storepopsfp64
	Storer8
	Storer16
	Storer32
	Storer64
	Storerpop8
	Storerpop16
	Storerpop32
	Storerpop64
	Storersfp8
	Storersfp16
	Storersfp32
	Storersfp64
	Storerpopsfp8
	Storerpopsfp16
	Storerpopsfp32
	Storerpopsfp64
)

// Special operations are pinned to fixed bytes at the top of the range,
// leaving a gap at 0xf9-0xfd reserved for future administrative opcodes.
const (
	Setsbp Opcode = 0xf4
	Setsfp Opcode = 0xf5
	Setsp  Opcode = 0xf6
	Setslp Opcode = 0xf7
	Halt   Opcode = 0xf8
	Ext    Opcode = 0xfe // reserved second-byte extension space
	Nop    Opcode = 0xff
)

var nameByOpcode = map[Opcode]string{
	Invalid: "invalid",

	Push8As8: "push8as8", Push8AsU16: "push8asu16", Push8AsU32: "push8asu32", Push8AsU64: "push8asu64",
	Push8AsI16: "push8asi16", Push8AsI32: "push8asi32", Push8AsI64: "push8asi64",
	Push16As16: "push16as16", Push16AsU32: "push16asu32", Push16AsU64: "push16asu64",
	Push16AsI32: "push16asi32", Push16AsI64: "push16asi64",
	Push32As32: "push32as32", Push32AsU64: "push32asu64", Push32AsI64: "push32asi64",
	Push64As64: "push64as64",

	Pop8: "pop8", Pop16: "pop16", Pop32: "pop32", Pop64: "pop64",

	Dup8: "dup8", Dup16: "dup16", Dup32: "dup32", Dup64: "dup64",

	Set8: "set8", Set16: "set16", Set32: "set32", Set64: "set64",

	Prom8U16: "prom8u16", Prom8U32: "prom8u32", Prom8U64: "prom8u64",
	Prom8I16: "prom8i16", Prom8I32: "prom8i32", Prom8I64: "prom8i64",
	Prom16U32: "prom16u32", Prom16U64: "prom16u64", Prom16I32: "prom16i32", Prom16I64: "prom16i64",
	Prom32U64: "prom32u64", Prom32I64: "prom32i64",

	Dem64To16: "dem64to16", Dem64To8: "dem64to8", Dem32To8: "dem32to8",

	Add8: "add8", Add16: "add16", Add32: "add32", Add64: "add64",
	Sub8: "sub8", Sub16: "sub16", Sub32: "sub32", Sub64: "sub64",
	Subr8: "subr8", Subr16: "subr16", Subr32: "subr32", Subr64: "subr64",
	Mul8: "mul8", Mul16: "mul16", Mul32: "mul32", Mul64: "mul64",
	Divu8: "divu8", Divu16: "divu16", Divu32: "divu32", Divu64: "divu64",
	Divru8: "divru8", Divru16: "divru16", Divru32: "divru32", Divru64: "divru64",
	Divi8: "divi8", Divi16: "divi16", Divi32: "divi32", Divi64: "divi64",
	Divri8: "divri8", Divri16: "divri16", Divri32: "divri32", Divri64: "divri64",
	Modu8: "modu8", Modu16: "modu16", Modu32: "modu32", Modu64: "modu64",
	Modru8: "modru8", Modru16: "modru16", Modru32: "modru32", Modru64: "modru64",
	Modi8: "modi8", Modi16: "modi16", Modi32: "modi32", Modi64: "modi64",
	Modri8: "modri8", Modri16: "modri16", Modri32: "modri32", Modri64: "modri64",

	Lshift8: "lshift8", Lshift16: "lshift16", Lshift32: "lshift32", Lshift64: "lshift64",
	Rshiftu8: "rshiftu8", Rshiftu16: "rshiftu16", Rshiftu32: "rshiftu32", Rshiftu64: "rshiftu64",
	Rshifti8: "rshifti8", Rshifti16: "rshifti16", Rshifti32: "rshifti32", Rshifti64: "rshifti64",

	Band8: "band8", Band16: "band16", Band32: "band32", Band64: "band64",
	Bor8: "bor8", Bor16: "bor16", Bor32: "bor32", Bor64: "bor64",
	Bxor8: "bxor8", Bxor16: "bxor16", Bxor32: "bxor32", Bxor64: "bxor64",
	Binv8: "binv8", Binv16: "binv16", Binv32: "binv32", Binv64: "binv64",

	Land8: "land8", Land16: "land16", Land32: "land32", Land64: "land64",
	Lor8: "lor8", Lor16: "lor16", Lor32: "lor32", Lor64: "lor64",
	Linv8: "linv8", Linv16: "linv16", Linv32: "linv32", Linv64: "linv64",

	Ceq8: "ceq8", Ceq16: "ceq16", Ceq32: "ceq32", Ceq64: "ceq64",
	Cne8: "cne8", Cne16: "cne16", Cne32: "cne32", Cne64: "cne64",
	Cgtu8: "cgtu8", Cgtu16: "cgtu16", Cgtu32: "cgtu32", Cgtu64: "cgtu64",
	Cgti8: "cgti8", Cgti16: "cgti16", Cgti32: "cgti32", Cgti64: "cgti64",
	Cltu8: "cltu8", Cltu16: "cltu16", Cltu32: "cltu32", Cltu64: "cltu64",
	Clti8: "clti8", Clti16: "clti16", Clti32: "clti32", Clti64: "clti64",
	Cgeu8: "cgeu8", Cgeu16: "cgeu16", Cgeu32: "cgeu32", Cgeu64: "cgeu64",
	Cgei8: "cgei8", Cgei16: "cgei16", Cgei32: "cgei32", Cgei64: "cgei64",
	Cleu8: "cleu8", Cleu16: "cleu16", Cleu32: "cleu32", Cleu64: "cleu64",
	Clei8: "clei8", Clei16: "clei16", Clei32: "clei32", Clei64: "clei64",

	Call: "call", Calls: "calls", Ret: "ret",

	Jmp: "jmp", Jmps: "jmps", Rjmpi8: "rjmpi8", Rjmpi16: "rjmpi16", Rjmpi32: "rjmpi32",

	Brz8: "brz8", Brz16: "brz16", Brz32: "brz32", Brz64: "brz64",
	Rbrz8i8: "rbrz8i8", Rbrz8i16: "rbrz8i16", Rbrz8i32: "rbrz8i32",
	Rbrz16i8: "rbrz16i8", Rbrz16i16: "rbrz16i16", Rbrz16i32: "rbrz16i32",
	Rbrz32i8: "rbrz32i8", Rbrz32i16: "rbrz32i16", Rbrz32i32: "rbrz32i32",
	Rbrz64i8: "rbrz64i8", Rbrz64i16: "rbrz64i16", Rbrz64i32: "rbrz64i32",

	Load8: "load8", Load16: "load16", Load32: "load32", Load64: "load64",
	Loadpop8: "loadpop8", Loadpop16: "loadpop16", Loadpop32: "loadpop32", Loadpop64: "loadpop64",
	Loadsfp8: "loadsfp8", Loadsfp16: "loadsfp16", Loadsfp32: "loadsfp32", Loadsfp64: "loadsfp64",
	Loadpopsfp8: "loadpopsfp8", Loadpopsfp16: "loadpopsfp16", Loadpopsfp32: "loadpopsfp32", Loadpopsfp64: "loadpopsfp64",
	Store8: "store8", Store16: "store16", Store32: "store32", Store64: "store64",
	Storepop8: "storepop8", Storepop16: "storepop16", Storepop32: "storepop32", Storepop64: "storepop64",
	Storesfp8: "storesfp8", Storesfp16: "storesfp16", Storesfp32: "storesfp32", Storesfp64: "storesfp64",
	Storepopsfp8: "storepopsfp8", Storepopsfp16: "storepopsfp16", Storepopsfp32: "storepopsfp32", Storepopsfp64: "storepopsfp64",
	Storer8: "storer8", Storer16: "storer16", Storer32: "storer32", Storer64: "storer64",
	Storerpop8: "storerpop8", Storerpop16: "storerpop16", Storerpop32: "storerpop32", Storerpop64: "storerpop64",
	Storersfp8: "storersfp8", Storersfp16: "storersfp16", Storersfp32: "storersfp32", Storersfp64: "storersfp64",
	Storerpopsfp8: "storerpopsfp8", Storerpopsfp16: "storerpopsfp16", Storerpopsfp32: "storerpopsfp32", Storerpopsfp64: "storerpopsfp64",

	Setsbp: "setsbp", Setsfp: "setsfp", Setsp: "setsp", Setslp: "setslp",
	Halt: "halt", Ext: "ext", Nop: "nop",
}

var opcodeByName map[string]Opcode

func init() {
	opcodeByName = make(map[string]Opcode, len(nameByOpcode))
	for op, name := range nameByOpcode {
		opcodeByName[name] = op
	}
}

// NameForOpcode returns the canonical mnemonic for op, or "" if op is unassigned.
func NameForOpcode(op Opcode) string {
	return nameByOpcode[op]
}

// OpcodeForName returns the opcode for the given mnemonic, and false if name
// does not name a known opcode. The source performs a linear scan since the
// table is small; a map lookup is the natural Go equivalent of the same cost
// profile.
func OpcodeForName(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

func (op Opcode) String() string {
	if name := NameForOpcode(op); name != "" {
		return name
	}
	return "?unknown?"
}

// IsJumpOrBranch reports whether op transfers control flow, and whether its
// immediate (when present) is PC-relative (delta) rather than absolute.
func IsJumpOrBranch(op Opcode) (isJumpOrBranch, delta bool) {
	switch op {
	case Jmp, Brz8, Brz16, Brz32, Brz64:
		return true, false
	case Rjmpi8, Rjmpi16, Rjmpi32,
		Rbrz8i8, Rbrz8i16, Rbrz8i32,
		Rbrz16i8, Rbrz16i16, Rbrz16i32,
		Rbrz32i8, Rbrz32i16, Rbrz32i32,
		Rbrz64i8, Rbrz64i16, Rbrz64i32:
		return true, true
	default:
		return false, false
	}
}
