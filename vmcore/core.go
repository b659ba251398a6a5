// Package vmcore implements the Starch emulator: paged memory (memory.go)
// and the fetch-decode-execute loop (this file). Step takes (core, memory)
// as explicit inputs and returns a result, so the core itself holds no
// global state — any interactive front end layers breakpoints and a core
// array on top of it.
package vmcore

import (
	"strconv"

	"starch/isa"
)

// initialStackPtr is the architectural starting value for sbp/sfp/sp.
const initialStackPtr uint64 = 0x40000000

// Core is the register file stepped by Step. It carries no memory and no
// IO state; both live in the Memory passed to each call.
type Core struct {
	PC, SBP, SFP, SP, SLP uint64
}

// NewCore returns a core with sbp/sfp/sp at their architectural initial
// value and pc at entry.
func NewCore(entry uint64) *Core {
	return &Core{
		PC:  entry,
		SBP: initialStackPtr,
		SFP: initialStackPtr,
		SP:  initialStackPtr,
	}
}

func fetchByte(m *Memory, addr uint64) (byte, isa.Result) {
	v, res := m.Read(addr, 1)
	return byte(v), res
}

func fetchImmediate(m *Memory, addr uint64, width int) (uint64, isa.Result) {
	if width == 0 {
		return 0, isa.ResultNone
	}
	return m.Read(addr, width)
}

func signExtend(v uint64, fromWidth int) int64 {
	switch fromWidth {
	case 1:
		return int64(int8(v))
	case 2:
		return int64(int16(v))
	case 4:
		return int64(int32(v))
	default:
		return int64(v)
	}
}

func truncate(v uint64, width int) uint64 {
	switch width {
	case 1:
		return uint64(uint8(v))
	case 2:
		return uint64(uint16(v))
	case 4:
		return uint64(uint32(v))
	default:
		return v
	}
}

// stackWidth recovers an opcode's operand width in bytes from the trailing
// digits of its canonical mnemonic (e.g. "add64" -> 8, "ceq8" -> 1). Every
// uniform single-width family (pop/dup/set/arithmetic/shift/bitwise/
// boolean/compare/load/store/brz) is named this way; push, promote, demote,
// and rbrz encode two distinct widths and are handled by dedicated tables
// instead.
func stackWidth(op isa.Opcode) (int, bool) {
	name := isa.NameForOpcode(op)
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0, false
	}
	bits, err := strconv.Atoi(name[i:])
	if err != nil {
		return 0, false
	}
	switch bits {
	case 8, 16, 32, 64:
		return bits / 8, true
	default:
		return 0, false
	}
}

// Step fetches the instruction at core.PC and executes it, returning the
// outcome. isa.ResultNone means the caller should step again.
func (c *Core) Step(m *Memory) isa.Result {
	opByte, res := fetchByte(m, c.PC)
	if res != isa.ResultNone {
		return res
	}
	op := isa.Opcode(opByte)

	switch {
	case pushSpecs[op].width != 0:
		return c.stepPush(m, op)
	case isPop(op):
		return c.stepPop(m, op)
	case isDup(op):
		return c.stepDup(m, op)
	case isSet(op):
		return c.stepSet(m, op)
	case promoteSpecs[op].destWidth != 0:
		return c.stepPromote(m, op)
	case demoteSpecs[op].destWidth != 0:
		return c.stepDemote(m, op)
	case arithKinds[op] != "":
		return c.stepArith(m, op)
	case isLoad(op):
		return c.stepLoad(m, op)
	case isStore(op):
		return c.stepStore(m, op)
	case op == isa.Call:
		return c.stepCall(m)
	case op == isa.Calls:
		return c.stepCalls(m)
	case op == isa.Ret:
		return c.stepRet(m)
	case op == isa.Jmp:
		return c.stepJmp(m)
	case op == isa.Jmps:
		return c.stepJmps(m)
	case isRjmpi(op):
		return c.stepRjmpi(m, op)
	case isBrz(op):
		return c.stepBrz(m, op)
	case rbrzSpecs[op].poppedWidth != 0:
		return c.stepRbrz(m, op)
	case op == isa.Setsbp, op == isa.Setsfp, op == isa.Setsp, op == isa.Setslp:
		return c.stepSetReg(m, op)
	case op == isa.Halt:
		return isa.ResultHalt
	case op == isa.Nop:
		c.PC++
		return isa.ResultNone
	default: // invalid, ext, and any unassigned byte
		return isa.ResultBadInst
	}
}

func isPop(op isa.Opcode) bool {
	switch op {
	case isa.Pop8, isa.Pop16, isa.Pop32, isa.Pop64:
		return true
	}
	return false
}

func isDup(op isa.Opcode) bool {
	switch op {
	case isa.Dup8, isa.Dup16, isa.Dup32, isa.Dup64:
		return true
	}
	return false
}

func isSet(op isa.Opcode) bool {
	switch op {
	case isa.Set8, isa.Set16, isa.Set32, isa.Set64:
		return true
	}
	return false
}

func isLoad(op isa.Opcode) bool {
	switch op {
	case isa.Load8, isa.Load16, isa.Load32, isa.Load64,
		isa.Loadpop8, isa.Loadpop16, isa.Loadpop32, isa.Loadpop64,
		isa.Loadsfp8, isa.Loadsfp16, isa.Loadsfp32, isa.Loadsfp64,
		isa.Loadpopsfp8, isa.Loadpopsfp16, isa.Loadpopsfp32, isa.Loadpopsfp64:
		return true
	}
	return false
}

func isStore(op isa.Opcode) bool {
	switch op {
	case isa.Store8, isa.Store16, isa.Store32, isa.Store64,
		isa.Storepop8, isa.Storepop16, isa.Storepop32, isa.Storepop64,
		isa.Storesfp8, isa.Storesfp16, isa.Storesfp32, isa.Storesfp64,
		isa.Storepopsfp8, isa.Storepopsfp16, isa.Storepopsfp32, isa.Storepopsfp64,
		isa.Storer8, isa.Storer16, isa.Storer32, isa.Storer64,
		isa.Storerpop8, isa.Storerpop16, isa.Storerpop32, isa.Storerpop64,
		isa.Storersfp8, isa.Storersfp16, isa.Storersfp32, isa.Storersfp64,
		isa.Storerpopsfp8, isa.Storerpopsfp16, isa.Storerpopsfp32, isa.Storerpopsfp64:
		return true
	}
	return false
}

func isRjmpi(op isa.Opcode) bool {
	switch op {
	case isa.Rjmpi8, isa.Rjmpi16, isa.Rjmpi32:
		return true
	}
	return false
}

func isBrz(op isa.Opcode) bool {
	switch op {
	case isa.Brz8, isa.Brz16, isa.Brz32, isa.Brz64:
		return true
	}
	return false
}

// stepPush implements "push imm-N as W": read N bytes at pc+1, sign- or
// zero-extend to W, sp -= W, write W at sp, pc += 1 + N.
func (c *Core) stepPush(m *Memory, op isa.Opcode) isa.Result {
	spec := pushSpecs[op]
	immWidth := isa.Size(isa.ImmType(op))

	raw, res := fetchImmediate(m, c.PC+1, immWidth)
	if res != isa.ResultNone {
		return res
	}

	var val uint64
	switch spec.mode {
	case extSigned:
		val = uint64(signExtend(raw, immWidth))
	default:
		val = raw // same-width copy or zero-extend are identical bit patterns
	}

	c.SP -= uint64(spec.width)
	if res := m.Write(c.SP, spec.width, val); res != isa.ResultNone {
		return res
	}
	c.PC += uint64(1 + immWidth)
	return isa.ResultNone
}

func (c *Core) stepPop(m *Memory, op isa.Opcode) isa.Result {
	w, _ := stackWidth(op)
	c.SP += uint64(w)
	c.PC++
	return isa.ResultNone
}

func (c *Core) stepDup(m *Memory, op isa.Opcode) isa.Result {
	w, _ := stackWidth(op)
	v, res := m.Read(c.SP, w)
	if res != isa.ResultNone {
		return res
	}
	c.SP -= uint64(w)
	if res := m.Write(c.SP, w, v); res != isa.ResultNone {
		return res
	}
	c.PC++
	return isa.ResultNone
}

func (c *Core) stepSet(m *Memory, op isa.Opcode) isa.Result {
	w, _ := stackWidth(op)
	v, res := m.Read(c.SP, w)
	if res != isa.ResultNone {
		return res
	}
	if res := m.Write(c.SP+uint64(w), w, v); res != isa.ResultNone {
		return res
	}
	c.SP += uint64(w)
	c.PC++
	return isa.ResultNone
}

func (c *Core) stepPromote(m *Memory, op isa.Opcode) isa.Result {
	spec := promoteSpecs[op]
	v, res := m.Read(c.SP, spec.srcWidth)
	if res != isa.ResultNone {
		return res
	}
	var extended uint64
	if spec.signed {
		extended = uint64(signExtend(v, spec.srcWidth))
	} else {
		extended = v
	}
	delta := uint64(spec.destWidth - spec.srcWidth)
	c.SP -= delta
	if res := m.Write(c.SP, spec.destWidth, extended); res != isa.ResultNone {
		return res
	}
	c.PC++
	return isa.ResultNone
}

func (c *Core) stepDemote(m *Memory, op isa.Opcode) isa.Result {
	spec := demoteSpecs[op]
	c.SP += uint64(spec.srcWidth - spec.destWidth)
	c.PC++
	return isa.ResultNone
}

// stepLoad implements the whole load*/loadpop*/loadsfp*/loadpopsfp* family.
// The address is always read as a u64 from the top of stack (relative to
// sfp for the *sfp forms, which treat the popped value as a signed offset);
// the non-pop forms leave that address slot in place, the pop forms consume
// it entirely.
func (c *Core) stepLoad(m *Memory, op isa.Opcode) isa.Result {
	w, _ := stackWidth(op)
	name := isa.NameForOpcode(op)
	relSFP := hasPrefix(name, "loadsfp") || hasPrefix(name, "loadpopsfp")
	pop := hasPrefix(name, "loadpop")

	raw, res := m.Read(c.SP, 8)
	if res != isa.ResultNone {
		return res
	}
	addr := raw
	if relSFP {
		addr = uint64(int64(c.SFP) + int64(raw))
	}

	v, res := m.Read(addr, w)
	if res != isa.ResultNone {
		return res
	}

	if pop {
		c.SP += uint64(8 - w)
	} else {
		c.SP -= uint64(w)
	}
	if res := m.Write(c.SP, w, v); res != isa.ResultNone {
		return res
	}
	c.PC++
	return isa.ResultNone
}

// stepStore implements the whole store*/storer* family. The non-reversed
// forms put the address on top of stack and the value just below it; the
// storer* forms (extended per the Open Question decision in DESIGN.md)
// mirror that exactly: value on top, address below. The pop forms only
// consume the slot that holds the role they popped past to reach the
// other operand: storepop* advances sp by the 8-byte address it read (the
// value stays on the stack, now on top), while storerpop* advances sp by
// the w-byte value it read (the address stays, now on top).
func (c *Core) stepStore(m *Memory, op isa.Opcode) isa.Result {
	w, _ := stackWidth(op)
	name := isa.NameForOpcode(op)
	reversed := hasPrefix(name, "storer")
	relSFP := hasSuffix(strTrimDigits(name), "sfp")
	pop := hasPrefix(trimReverse(name, reversed), "pop") || hasPrefix(trimReverse(name, reversed), "popsfp")

	var addrRaw, value uint64
	var res isa.Result
	if reversed {
		value, res = m.Read(c.SP, w)
		if res != isa.ResultNone {
			return res
		}
		addrRaw, res = m.Read(c.SP+uint64(w), 8)
	} else {
		addrRaw, res = m.Read(c.SP, 8)
		if res != isa.ResultNone {
			return res
		}
		value, res = m.Read(c.SP+8, w)
	}
	if res != isa.ResultNone {
		return res
	}

	addr := addrRaw
	if relSFP {
		addr = uint64(int64(c.SFP) + int64(addrRaw))
	}

	if res := m.Write(addr, w, value); res != isa.ResultNone {
		return res
	}

	if pop {
		if reversed {
			c.SP += uint64(w)
		} else {
			c.SP += 8
		}
	}
	// non-pop forms leave sp unchanged

	c.PC++
	return isa.ResultNone
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}

// strTrimDigits strips the trailing width digits from a mnemonic, e.g.
// "storesfp64" -> "storesfp", so suffix checks like "ends with sfp" aren't
// confused by a numeric suffix.
func strTrimDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[:i]
}

// trimReverse strips a leading "storer" or "store" so prefix checks for
// "pop"/"popsfp" apply uniformly to both families.
func trimReverse(name string, reversed bool) string {
	if reversed {
		return name[len("storer"):]
	}
	return name[len("store"):]
}

func (c *Core) stepCall(m *Memory) isa.Result {
	target, res := fetchImmediate(m, c.PC+1, 8)
	if res != isa.ResultNone {
		return res
	}
	retAddr := c.PC + 1 + 8
	c.SP -= 8
	if res := m.Write(c.SP, 8, retAddr); res != isa.ResultNone {
		return res
	}
	c.PC = target
	return isa.ResultNone
}

func (c *Core) stepCalls(m *Memory) isa.Result {
	target, res := m.Read(c.SP, 8)
	if res != isa.ResultNone {
		return res
	}
	c.SP += 8
	retAddr := c.PC + 1
	c.SP -= 8
	if res := m.Write(c.SP, 8, retAddr); res != isa.ResultNone {
		return res
	}
	c.PC = target
	return isa.ResultNone
}

func (c *Core) stepRet(m *Memory) isa.Result {
	target, res := m.Read(c.SP, 8)
	if res != isa.ResultNone {
		return res
	}
	c.SP += 8
	c.PC = target
	return isa.ResultNone
}

func (c *Core) stepJmp(m *Memory) isa.Result {
	target, res := fetchImmediate(m, c.PC+1, 8)
	if res != isa.ResultNone {
		return res
	}
	c.PC = target
	return isa.ResultNone
}

func (c *Core) stepJmps(m *Memory) isa.Result {
	target, res := m.Read(c.SP, 8)
	if res != isa.ResultNone {
		return res
	}
	c.SP += 8
	c.PC = target
	return isa.ResultNone
}

func (c *Core) stepRjmpi(m *Memory, op isa.Opcode) isa.Result {
	immWidth := isa.Size(isa.ImmType(op))
	raw, res := fetchImmediate(m, c.PC+1, immWidth)
	if res != isa.ResultNone {
		return res
	}
	delta := signExtend(raw, immWidth)
	c.PC = uint64(int64(c.PC) + delta)
	return isa.ResultNone
}

// stepBrz implements the locked Open Question decision: branch when the
// popped value is non-zero (see DESIGN.md).
func (c *Core) stepBrz(m *Memory, op isa.Opcode) isa.Result {
	w, _ := stackWidth(op)
	v, res := m.Read(c.SP, w)
	if res != isa.ResultNone {
		return res
	}
	c.SP += uint64(w)
	if v != 0 {
		target, res := fetchImmediate(m, c.PC+1, 8)
		if res != isa.ResultNone {
			return res
		}
		c.PC = target
	} else {
		c.PC += 1 + 8
	}
	return isa.ResultNone
}

func (c *Core) stepRbrz(m *Memory, op isa.Opcode) isa.Result {
	spec := rbrzSpecs[op]
	v, res := m.Read(c.SP, spec.poppedWidth)
	if res != isa.ResultNone {
		return res
	}
	c.SP += uint64(spec.poppedWidth)
	if v != 0 {
		raw, res := fetchImmediate(m, c.PC+1, spec.immWidth)
		if res != isa.ResultNone {
			return res
		}
		delta := signExtend(raw, spec.immWidth)
		c.PC = uint64(int64(c.PC) + delta)
	} else {
		c.PC += uint64(1 + spec.immWidth)
	}
	return isa.ResultNone
}

func (c *Core) stepSetReg(m *Memory, op isa.Opcode) isa.Result {
	v, res := m.Read(c.SP, 8)
	if res != isa.ResultNone {
		return res
	}
	c.SP += 8
	switch op {
	case isa.Setsbp:
		c.SBP = v
	case isa.Setsfp:
		c.SFP = v
	case isa.Setsp:
		c.SP = v
	case isa.Setslp:
		c.SLP = v
	}
	c.PC++
	return isa.ResultNone
}
