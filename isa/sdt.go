package isa

// Sdt ("Starch data type") tags the width and signedness of an instruction's
// immediate, or Void when the opcode carries no immediate at all.
type Sdt int

const (
	Void Sdt = iota
	A8
	A16
	A32
	A64
	U8
	U16
	U32
	U64
	I8
	I16
	I32
	I64
)

// Size returns the encoded byte width of dt, or -1 if dt is unrecognized.
func Size(dt Sdt) int {
	switch dt {
	case Void:
		return 0
	case A8, U8, I8:
		return 1
	case A16, U16, I16:
		return 2
	case A32, U32, I32:
		return 4
	case A64, U64, I64:
		return 8
	default:
		return -1
	}
}

// MinMax returns the closed interval of integer values representable by dt.
// Undefined for Void.
func MinMax(dt Sdt) (min, max int64) {
	switch dt {
	case A8, I8:
		min, max = -0x80, 0x7f
	case A16, I16:
		min, max = -0x8000, 0x7fff
	case A32, I32:
		min, max = -0x80000000, 0x7fffffff
	case A64, I64:
		min, max = -0x8000000000000000, 0x7fffffffffffffff
	case U8:
		min, max = 0, 0xff
	case U16:
		min, max = 0, 0xffff
	case U32:
		min, max = 0, 0xffffffff
	case U64:
		min, max = 0, -1 // 0xffffffffffffffff, unrepresentable as a positive int64
	}
	return min, max
}

// ImmType returns the immediate type carried by op, or -1 (returned as a
// negative Sdt) if op is not a recognized opcode. Only the opcodes listed
// below carry an immediate; every pop/dup/set/promote/demote/arithmetic/
// shift/bitwise/boolean/comparison/memory opcode takes none; it operates
// purely on values already on the stack.
func ImmType(op Opcode) Sdt {
	switch op {
	case Invalid:
		return Void

	case Push8As8:
		return A8
	case Push8AsU16, Push8AsU32, Push8AsU64:
		return U8
	case Push8AsI16, Push8AsI32, Push8AsI64:
		return I8
	case Push16As16:
		return A16
	case Push16AsU32, Push16AsU64:
		return U16
	case Push16AsI32, Push16AsI64:
		return I16
	case Push32As32:
		return A32
	case Push32AsU64:
		return U32
	case Push32AsI64:
		return I32
	case Push64As64:
		return A64

	case Pop8, Pop16, Pop32, Pop64,
		Dup8, Dup16, Dup32, Dup64,
		Set8, Set16, Set32, Set64,
		Prom8U16, Prom8U32, Prom8U64, Prom8I16, Prom8I32, Prom8I64,
		Prom16U32, Prom16U64, Prom16I32, Prom16I64, Prom32U64, Prom32I64,
		Dem64To16, Dem64To8, Dem32To8,
		Add8, Add16, Add32, Add64,
		Sub8, Sub16, Sub32, Sub64,
		Subr8, Subr16, Subr32, Subr64,
		Mul8, Mul16, Mul32, Mul64,
		Divu8, Divu16, Divu32, Divu64,
		Divru8, Divru16, Divru32, Divru64,
		Divi8, Divi16, Divi32, Divi64,
		Divri8, Divri16, Divri32, Divri64,
		Modu8, Modu16, Modu32, Modu64,
		Modru8, Modru16, Modru32, Modru64,
		Modi8, Modi16, Modi32, Modi64,
		Modri8, Modri16, Modri32, Modri64,
		Lshift8, Lshift16, Lshift32, Lshift64,
		Rshiftu8, Rshiftu16, Rshiftu32, Rshiftu64,
		Rshifti8, Rshifti16, Rshifti32, Rshifti64,
		Band8, Band16, Band32, Band64,
		Bor8, Bor16, Bor32, Bor64,
		Bxor8, Bxor16, Bxor32, Bxor64,
		Binv8, Binv16, Binv32, Binv64,
		Land8, Land16, Land32, Land64,
		Lor8, Lor16, Lor32, Lor64,
		Linv8, Linv16, Linv32, Linv64,
		Ceq8, Ceq16, Ceq32, Ceq64,
		Cne8, Cne16, Cne32, Cne64,
		Cgtu8, Cgtu16, Cgtu32, Cgtu64,
		Cgti8, Cgti16, Cgti32, Cgti64,
		Cltu8, Cltu16, Cltu32, Cltu64,
		Clti8, Clti16, Clti32, Clti64,
		Cgeu8, Cgeu16, Cgeu32, Cgeu64,
		Cgei8, Cgei16, Cgei32, Cgei64,
		Cleu8, Cleu16, Cleu32, Cleu64,
		Clei8, Clei16, Clei32, Clei64,
		Calls, Ret, Jmps:
		return Void

	case Call:
		return U64

	case Jmp, Brz8, Brz16, Brz32, Brz64:
		return U64
	case Rjmpi8:
		return I8
	case Rjmpi16:
		return I16
	case Rjmpi32:
		return I32

	case Rbrz8i8, Rbrz16i8, Rbrz32i8, Rbrz64i8:
		return I8
	case Rbrz8i16, Rbrz16i16, Rbrz32i16, Rbrz64i16:
		return I16
	case Rbrz8i32, Rbrz16i32, Rbrz32i32, Rbrz64i32:
		return I32

	case Load8, Load16, Load32, Load64,
		Loadpop8, Loadpop16, Loadpop32, Loadpop64,
		Loadsfp8, Loadsfp16, Loadsfp32, Loadsfp64,
		Loadpopsfp8, Loadpopsfp16, Loadpopsfp32, Loadpopsfp64,
		Store8, Store16, Store32, Store64,
		Storepop8, Storepop16, Storepop32, Storepop64,
		Storesfp8, Storesfp16, Storesfp32, Storesfp64,
		Storepopsfp8, Storepopsfp16, Storepopsfp32, Storepopsfp64,
		Storer8, Storer16, Storer32, Storer64,
		Storerpop8, Storerpop16, Storerpop32, Storerpop64,
		Storersfp8, Storersfp16, Storersfp32, Storersfp64,
		Storerpopsfp8, Storerpopsfp16, Storerpopsfp32, Storerpopsfp64:
		return Void

	case Setsbp, Setsfp, Setsp, Setslp:
		return U64
	case Halt:
		return U8
	case Nop:
		return Void

	default: // includes Ext, reserved
		return Sdt(-1)
	}
}

// EncodedLen returns the total encoded length (opcode byte plus immediate)
// of op, or -1 if op is unrecognized.
func EncodedLen(op Opcode) int {
	dt := ImmType(op)
	if dt < 0 {
		return -1
	}
	return 1 + Size(dt)
}
