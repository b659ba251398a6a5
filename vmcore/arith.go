package vmcore

import "starch/isa"

// stepArith implements the binary/unary ALU family: arithmetic, shifts,
// bitwise, boolean, and comparisons. Binary ops read a (sp) and b (sp+w),
// write the result at sp+w, and advance sp by w (spec 4.8); unary ops
// (binv/linv) read and replace the single top value in place.
func (c *Core) stepArith(m *Memory, op isa.Opcode) isa.Result {
	kind := arithKinds[op]
	w, _ := stackWidth(op)

	if unaryKinds[kind] {
		a, res := m.Read(c.SP, w)
		if res != isa.ResultNone {
			return res
		}
		result := evalUnary(kind, a, w)
		if res := m.Write(c.SP, w, result); res != isa.ResultNone {
			return res
		}
		c.PC++
		return isa.ResultNone
	}

	a, res := m.Read(c.SP, w)
	if res != isa.ResultNone {
		return res
	}
	b, res := m.Read(c.SP+uint64(w), w)
	if res != isa.ResultNone {
		return res
	}

	result, fault := evalBinary(kind, a, b, w)
	if fault != isa.ResultNone {
		return fault
	}

	// Comparisons produce a logical 0/1 but keep the same (W,W)->W shape as
	// every other binary op (spec 4.8): the boolean result is zero-extended
	// back out to w before being written, so the stack layout after a
	// compare is identical in width to the layout after an add/sub/etc.
	writeAt := c.SP + uint64(w)
	if res := m.Write(writeAt, w, result); res != isa.ResultNone {
		return res
	}
	c.SP = writeAt
	c.PC++
	return isa.ResultNone
}

func evalUnary(kind string, a uint64, w int) uint64 {
	switch kind {
	case "binv":
		return truncate(^a, w)
	case "linv":
		if a == 0 {
			return 1
		}
		return 0
	default:
		return a
	}
}

// evalBinary evaluates one ALU operation. reverse-suffixed kinds ("subr",
// "divru", "divri", "modru", "modri") are handled by swapping a/b before
// dispatching to the base kind, per spec 4.8's "reverse variants compute
// op(b,a) instead".
func evalBinary(kind string, a, b uint64, w int) (uint64, isa.Result) {
	switch kind {
	case "subr":
		return evalBinary("sub", b, a, w)
	case "divru":
		return evalBinary("divu", b, a, w)
	case "divri":
		return evalBinary("divi", b, a, w)
	case "modru":
		return evalBinary("modu", b, a, w)
	case "modri":
		return evalBinary("modi", b, a, w)
	}

	sa, sb := signExtend(a, w), signExtend(b, w)

	switch kind {
	case "add":
		return truncate(a+b, w), isa.ResultNone
	case "sub":
		return truncate(a-b, w), isa.ResultNone
	case "mul":
		return truncate(a*b, w), isa.ResultNone
	// div/mod treat a (the most recently pushed value, at sp) as the
	// divisor and b (at sp+w) as the dividend: "push 6; push 0; divu"
	// divides 6 by 0, per spec's own worked scenario, even though a is
	// read before b the same way add/sub read their operands.
	case "divu":
		if a == 0 {
			return 0, isa.ResultDivByZero
		}
		return truncate(b/a, w), isa.ResultNone
	case "divi":
		if sa == 0 {
			return 0, isa.ResultDivByZero
		}
		return truncate(uint64(sb/sa), w), isa.ResultNone
	case "modu":
		if a == 0 {
			return 0, isa.ResultDivByZero
		}
		return truncate(b%a, w), isa.ResultNone
	case "modi":
		if sa == 0 {
			return 0, isa.ResultDivByZero
		}
		return truncate(uint64(sb%sa), w), isa.ResultNone
	case "lshift":
		return truncate(a<<(b&shiftMask(w)), w), isa.ResultNone
	case "rshiftu":
		return truncate(a>>(b&shiftMask(w)), w), isa.ResultNone
	case "rshifti":
		return truncate(uint64(sa>>(b&shiftMask(w))), w), isa.ResultNone
	case "band":
		return truncate(a&b, w), isa.ResultNone
	case "bor":
		return truncate(a|b, w), isa.ResultNone
	case "bxor":
		return truncate(a^b, w), isa.ResultNone
	case "land":
		return boolU8(a != 0 && b != 0), isa.ResultNone
	case "lor":
		return boolU8(a != 0 || b != 0), isa.ResultNone
	case "ceq":
		return boolU8(a == b), isa.ResultNone
	case "cne":
		return boolU8(a != b), isa.ResultNone
	case "cgtu":
		return boolU8(a > b), isa.ResultNone
	case "cgti":
		return boolU8(sa > sb), isa.ResultNone
	case "cltu":
		return boolU8(a < b), isa.ResultNone
	case "clti":
		return boolU8(sa < sb), isa.ResultNone
	case "cgeu":
		return boolU8(a >= b), isa.ResultNone
	case "cgei":
		return boolU8(sa >= sb), isa.ResultNone
	case "cleu":
		return boolU8(a <= b), isa.ResultNone
	case "clei":
		return boolU8(sa <= sb), isa.ResultNone
	default:
		return 0, isa.ResultBadInst
	}
}

func shiftMask(w int) uint64 {
	return uint64(w*8 - 1)
}

func boolU8(v bool) uint64 {
	if v {
		return 1
	}
	return 0
}
