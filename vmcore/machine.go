package vmcore

import (
	"fmt"
	"io"
	"os"

	"starch/isa"
	"starch/stub"
)

// Machine ties a Core, its Memory, and the stdio MMIO device together for
// the emulator CLI's run loop; the optional cycle budget is passed to Run.
type Machine struct {
	Core   *Core
	Memory *Memory
	IO     *StdIO
}

// LoadStub reads every section of the stub file at path into a fresh
// Machine, setting the core's initial pc to the first (lowest-index)
// section's load address, and wires process stdio as the MMIO device.
func LoadStub(path string) (*Machine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sf := stub.New(f)
	if err := sf.Verify(); err != nil {
		return nil, fmt.Errorf("vmcore: %w", err)
	}
	_, nsec, err := sf.SectionCounts()
	if err != nil {
		return nil, fmt.Errorf("vmcore: %w", err)
	}

	mem := NewMemory()
	stdio := NewStdIO(os.Stdout, os.Stdin)
	mem.WithIO(stdio)

	var entry uint64
	for si := 0; si < nsec; si++ {
		sec, err := sf.LoadSection(si)
		if err != nil {
			return nil, fmt.Errorf("vmcore: section %d: %w", si, err)
		}
		data := make([]byte, sec.Size)
		if _, err := io.ReadFull(f, data); err != nil {
			return nil, fmt.Errorf("vmcore: section %d: %w", si, err)
		}
		mem.LoadImage(sec.Addr, data)
		if si == 0 {
			entry = sec.Addr
		}
	}

	return &Machine{
		Core:   NewCore(entry),
		Memory: mem,
		IO:     stdio,
	}, nil
}

// Run steps the machine until a terminal result, or until maxCycles steps
// have executed if maxCycles is non-zero (spec 6's "-c/--cycles" cap). It
// returns the terminal result and the number of cycles actually executed;
// exhausting the budget without reaching a terminal state reports
// isa.ResultNone so the caller can tell a cap-out apart from a real fault.
func (mc *Machine) Run(maxCycles uint64) (isa.Result, uint64) {
	var cycles uint64
	for maxCycles == 0 || cycles < maxCycles {
		result := mc.Core.Step(mc.Memory)
		cycles++
		if result != isa.ResultNone {
			mc.IO.Flush()
			return result, cycles
		}
	}
	mc.IO.Flush()
	return isa.ResultNone, cycles
}
