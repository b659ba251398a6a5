package vmcore

import "starch/isa"

// extMode describes how a push immediate becomes its
// destination width: extNone is a same-width copy (no extension needed),
// extUnsigned zero-extends, extSigned sign-extends.
type extMode int

const (
	extNone extMode = iota
	extUnsigned
	extSigned
)

type pushSpec struct {
	width int // destination stack width in bytes
	mode  extMode
}

// pushSpecs gives the destination width and extension mode for every
// push-immediate opcode; the source (immediate) width comes from
// isa.ImmType/isa.Size, since it is already fully determined by the opcode.
var pushSpecs = map[isa.Opcode]pushSpec{
	isa.Push8As8:    {1, extNone},
	isa.Push8AsU16:  {2, extUnsigned},
	isa.Push8AsU32:  {4, extUnsigned},
	isa.Push8AsU64:  {8, extUnsigned},
	isa.Push8AsI16:  {2, extSigned},
	isa.Push8AsI32:  {4, extSigned},
	isa.Push8AsI64:  {8, extSigned},
	isa.Push16As16:  {2, extNone},
	isa.Push16AsU32: {4, extUnsigned},
	isa.Push16AsU64: {8, extUnsigned},
	isa.Push16AsI32: {4, extSigned},
	isa.Push16AsI64: {8, extSigned},
	isa.Push32As32:  {4, extNone},
	isa.Push32AsU64: {8, extUnsigned},
	isa.Push32AsI64: {8, extSigned},
	isa.Push64As64:  {8, extNone},
}

type promoteSpec struct {
	srcWidth, destWidth int
	signed              bool
}

var promoteSpecs = map[isa.Opcode]promoteSpec{
	isa.Prom8U16:  {1, 2, false},
	isa.Prom8U32:  {1, 4, false},
	isa.Prom8U64:  {1, 8, false},
	isa.Prom8I16:  {1, 2, true},
	isa.Prom8I32:  {1, 4, true},
	isa.Prom8I64:  {1, 8, true},
	isa.Prom16U32: {2, 4, false},
	isa.Prom16U64: {2, 8, false},
	isa.Prom16I32: {2, 4, true},
	isa.Prom16I64: {2, 8, true},
	isa.Prom32U64: {4, 8, false},
	isa.Prom32I64: {4, 8, true},
}

type demoteSpec struct {
	srcWidth, destWidth int
}

var demoteSpecs = map[isa.Opcode]demoteSpec{
	isa.Dem64To16: {8, 2},
	isa.Dem64To8:  {8, 1},
	isa.Dem32To8:  {4, 1},
}

type rbrzSpec struct {
	poppedWidth, immWidth int
}

var rbrzSpecs = map[isa.Opcode]rbrzSpec{
	isa.Rbrz8i8: {1, 1}, isa.Rbrz8i16: {1, 2}, isa.Rbrz8i32: {1, 4},
	isa.Rbrz16i8: {2, 1}, isa.Rbrz16i16: {2, 2}, isa.Rbrz16i32: {2, 4},
	isa.Rbrz32i8: {4, 1}, isa.Rbrz32i16: {4, 2}, isa.Rbrz32i32: {4, 4},
	isa.Rbrz64i8: {8, 1}, isa.Rbrz64i16: {8, 2}, isa.Rbrz64i32: {8, 4},
}

// arithKinds classifies every binary-or-unary ALU opcode by its operation
// kind; stepArith derives the operand width from the mnemonic's trailing
// digits via stackWidth.
var arithKinds = map[isa.Opcode]string{
	isa.Add8: "add", isa.Add16: "add", isa.Add32: "add", isa.Add64: "add",
	isa.Sub8: "sub", isa.Sub16: "sub", isa.Sub32: "sub", isa.Sub64: "sub",
	isa.Subr8: "subr", isa.Subr16: "subr", isa.Subr32: "subr", isa.Subr64: "subr",
	isa.Mul8: "mul", isa.Mul16: "mul", isa.Mul32: "mul", isa.Mul64: "mul",
	isa.Divu8: "divu", isa.Divu16: "divu", isa.Divu32: "divu", isa.Divu64: "divu",
	isa.Divru8: "divru", isa.Divru16: "divru", isa.Divru32: "divru", isa.Divru64: "divru",
	isa.Divi8: "divi", isa.Divi16: "divi", isa.Divi32: "divi", isa.Divi64: "divi",
	isa.Divri8: "divri", isa.Divri16: "divri", isa.Divri32: "divri", isa.Divri64: "divri",
	isa.Modu8: "modu", isa.Modu16: "modu", isa.Modu32: "modu", isa.Modu64: "modu",
	isa.Modru8: "modru", isa.Modru16: "modru", isa.Modru32: "modru", isa.Modru64: "modru",
	isa.Modi8: "modi", isa.Modi16: "modi", isa.Modi32: "modi", isa.Modi64: "modi",
	isa.Modri8: "modri", isa.Modri16: "modri", isa.Modri32: "modri", isa.Modri64: "modri",

	isa.Lshift8: "lshift", isa.Lshift16: "lshift", isa.Lshift32: "lshift", isa.Lshift64: "lshift",
	isa.Rshiftu8: "rshiftu", isa.Rshiftu16: "rshiftu", isa.Rshiftu32: "rshiftu", isa.Rshiftu64: "rshiftu",
	isa.Rshifti8: "rshifti", isa.Rshifti16: "rshifti", isa.Rshifti32: "rshifti", isa.Rshifti64: "rshifti",

	isa.Band8: "band", isa.Band16: "band", isa.Band32: "band", isa.Band64: "band",
	isa.Bor8: "bor", isa.Bor16: "bor", isa.Bor32: "bor", isa.Bor64: "bor",
	isa.Bxor8: "bxor", isa.Bxor16: "bxor", isa.Bxor32: "bxor", isa.Bxor64: "bxor",
	isa.Binv8: "binv", isa.Binv16: "binv", isa.Binv32: "binv", isa.Binv64: "binv",

	isa.Land8: "land", isa.Land16: "land", isa.Land32: "land", isa.Land64: "land",
	isa.Lor8: "lor", isa.Lor16: "lor", isa.Lor32: "lor", isa.Lor64: "lor",
	isa.Linv8: "linv", isa.Linv16: "linv", isa.Linv32: "linv", isa.Linv64: "linv",

	isa.Ceq8: "ceq", isa.Ceq16: "ceq", isa.Ceq32: "ceq", isa.Ceq64: "ceq",
	isa.Cne8: "cne", isa.Cne16: "cne", isa.Cne32: "cne", isa.Cne64: "cne",
	isa.Cgtu8: "cgtu", isa.Cgtu16: "cgtu", isa.Cgtu32: "cgtu", isa.Cgtu64: "cgtu",
	isa.Cgti8: "cgti", isa.Cgti16: "cgti", isa.Cgti32: "cgti", isa.Cgti64: "cgti",
	isa.Cltu8: "cltu", isa.Cltu16: "cltu", isa.Cltu32: "cltu", isa.Cltu64: "cltu",
	isa.Clti8: "clti", isa.Clti16: "clti", isa.Clti32: "clti", isa.Clti64: "clti",
	isa.Cgeu8: "cgeu", isa.Cgeu16: "cgeu", isa.Cgeu32: "cgeu", isa.Cgeu64: "cgeu",
	isa.Cgei8: "cgei", isa.Cgei16: "cgei", isa.Cgei32: "cgei", isa.Cgei64: "cgei",
	isa.Cleu8: "cleu", isa.Cleu16: "cleu", isa.Cleu32: "cleu", isa.Cleu64: "cleu",
	isa.Clei8: "clei", isa.Clei16: "clei", isa.Clei32: "clei", isa.Clei64: "clei",
}

// unaryKinds holds the ALU ops that consume a single operand rather than a
// pair (bitwise/boolean inverse).
var unaryKinds = map[string]bool{"binv": true, "linv": true}
