// Package disasm renders every section of a stub binary back into Starch
// assembly text, one instruction per line.
package disasm

import (
	"fmt"
	"io"

	"starch/isa"
	"starch/stub"
)

// Disassemble walks every section of the stub readable from r and writes
// one ".section <addr>" header followed by one "mnemonic [imm]" line per
// instruction to w.
func Disassemble(r io.ReadWriteSeeker, w io.Writer) error {
	sf := stub.New(r)
	if err := sf.Verify(); err != nil {
		return fmt.Errorf("disasm: %w", err)
	}

	_, nsec, err := sf.SectionCounts()
	if err != nil {
		return fmt.Errorf("disasm: %w", err)
	}

	for si := 0; si < nsec; si++ {
		sec, err := sf.LoadSection(si)
		if err != nil {
			return fmt.Errorf("disasm: section %d: %w", si, err)
		}

		if _, err := fmt.Fprintf(w, ".section %#x\n", sec.Addr); err != nil {
			return fmt.Errorf("disasm: %w", err)
		}

		if err := disassembleSection(r, w, sec.Size); err != nil {
			return fmt.Errorf("disasm: section %d: %w", si, err)
		}
	}
	return nil
}

func disassembleSection(r io.Reader, w io.Writer, size uint64) error {
	var consumed uint64
	var opByte [1]byte
	for consumed < size {
		if _, err := io.ReadFull(r, opByte[:]); err != nil {
			return fmt.Errorf("unexpected EOF")
		}
		consumed++

		op := isa.Opcode(opByte[0])
		name := isa.NameForOpcode(op)
		if name == "" {
			return fmt.Errorf("no name for opcode %#02x", opByte[0])
		}

		dt := isa.ImmType(op)
		if dt < 0 {
			return fmt.Errorf("no immediate type for opcode %#02x", opByte[0])
		}
		immLen := isa.Size(dt)

		var immBuf [8]byte
		if immLen > 0 {
			if _, err := io.ReadFull(r, immBuf[:immLen]); err != nil {
				return fmt.Errorf("unexpected EOF")
			}
			consumed += uint64(immLen)
		}

		if _, err := fmt.Fprint(w, name); err != nil {
			return err
		}
		if err := writeImmediate(w, dt, immBuf[:immLen]); err != nil {
			return err
		}
		if _, err := fmt.Fprint(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// writeImmediate formats a little-endian immediate per the disassembler's
// value rules: VOID prints nothing, zero always prints as "0" regardless of
// type, unsigned/address types print as hex, signed types print a sign
// followed by the hex magnitude.
func writeImmediate(w io.Writer, dt isa.Sdt, raw []byte) error {
	if dt == isa.Void {
		return nil
	}

	var val uint64
	for i, b := range raw {
		val |= uint64(b) << (8 * i)
	}

	if val == 0 {
		_, err := fmt.Fprint(w, " 0")
		return err
	}

	switch dt {
	case isa.A8, isa.U8, isa.A16, isa.U16, isa.A32, isa.U32, isa.A64, isa.U64:
		_, err := fmt.Fprintf(w, " %#x", val)
		return err
	case isa.I8:
		return writeSigned(w, int64(int8(val)))
	case isa.I16:
		return writeSigned(w, int64(int16(val)))
	case isa.I32:
		return writeSigned(w, int64(int32(val)))
	case isa.I64:
		return writeSigned(w, int64(val))
	default:
		return fmt.Errorf("unexpected immediate type %v", dt)
	}
}

func writeSigned(w io.Writer, v int64) error {
	if v < 0 {
		_, err := fmt.Fprintf(w, " -%#x", -v)
		return err
	}
	_, err := fmt.Fprintf(w, " %#x", v)
	return err
}
