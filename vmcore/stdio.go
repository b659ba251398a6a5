package vmcore

import (
	"bufio"
	"io"

	"starch/isa"
)

// StdIO implements IODevice over the process's standard streams: a byte
// write to IOStdoutAddr emits to stdout, a byte read from IOStdinAddr
// consumes from stdin, and a write of any width to IOFlushAddr flushes
// buffered output. Every other MMIO address or width reports !ok, which
// the caller surfaces as isa.ResultBadIOAccess.
type StdIO struct {
	out *bufio.Writer
	in  *bufio.Reader
}

// NewStdIO wraps w/r with buffering, matching the teacher's bufio-wrapped
// stdin/stdout idiom.
func NewStdIO(w io.Writer, r io.Reader) *StdIO {
	return &StdIO{out: bufio.NewWriter(w), in: bufio.NewReader(r)}
}

// Flush pushes any buffered output out. Machine.Run calls it when a run
// ends, and Write calls it whenever IOFlushAddr is written.
func (s *StdIO) Flush() error {
	return s.out.Flush()
}

func (s *StdIO) Read(addr uint64, width int) (uint64, bool) {
	if addr != isa.IOStdinAddr || width != 1 {
		return 0, false
	}
	b, err := s.in.ReadByte()
	if err != nil {
		return 0, false
	}
	return uint64(b), true
}

func (s *StdIO) Write(addr uint64, width int, value uint64) bool {
	switch addr {
	case isa.IOStdoutAddr:
		if width != 1 {
			return false
		}
		return s.out.WriteByte(byte(value)) == nil
	case isa.IOFlushAddr:
		return s.Flush() == nil
	default:
		return false
	}
}
