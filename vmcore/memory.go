package vmcore

import (
	"encoding/binary"

	"starch/isa"
)

const (
	pageSize = 0x1000
	pageMask = pageSize - 1
)

// Memory is a sparse, page-backed 64-bit address space with a memory-mapped
// IO window at the top of the address space. Pages are allocated lazily, the
// same growth-on-demand behavior as the teacher's page tree, implemented as
// a map instead since Go has no need for a hand-rolled balanced tree here.
type Memory struct {
	pages map[uint64][]byte
	io    IODevice
}

// NewMemory returns an empty address space.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64][]byte)}
}

func (m *Memory) page(addr uint64) []byte {
	base := addr &^ pageMask
	p, ok := m.pages[base]
	if !ok {
		p = make([]byte, pageSize)
		m.pages[base] = p
	}
	return p
}

// IODevice handles reads and writes that land in the MMIO window
// (addresses >= isa.BeginIOAddr). Read and Write report ok=false for
// addresses or widths the device does not support; Memory surfaces that as
// isa.ResultBadIOAccess (spec.md 4.7: "unimplemented MMIO operations fail
// with BAD_IO_ACCESS").
type IODevice interface {
	Read(addr uint64, width int) (value uint64, ok bool)
	Write(addr uint64, width int, value uint64) (ok bool)
}

// WithIO attaches dev as the memory's IO device.
func (m *Memory) WithIO(dev IODevice) *Memory {
	m.io = dev
	return m
}

// Read reads width (1, 2, 4, or 8) little-endian bytes starting at addr.
// IO-range addresses are delegated to the attached IODevice, surfacing
// isa.ResultBadIOAccess when no device is attached or the device rejects
// the access; a non-byte access that straddles the page/MMIO boundary
// surfaces isa.ResultBadAlign (spec.md 4.7 and the 4.9 testable property:
// "unaligned 2-byte write at BEGIN_IO_ADDR-1 fails with BAD_ALIGN").
func (m *Memory) Read(addr uint64, width int) (uint64, isa.Result) {
	if addr >= isa.BeginIOAddr {
		if m.io == nil {
			return 0, isa.ResultBadIOAccess
		}
		v, ok := m.io.Read(addr, width)
		if !ok {
			return 0, isa.ResultBadIOAccess
		}
		return v, isa.ResultNone
	}
	if straddlesIO(addr, width) {
		return 0, isa.ResultBadAlign
	}

	buf := make([]byte, width)
	for i := 0; i < width; i++ {
		a := addr + uint64(i)
		buf[i] = m.page(a)[a&pageMask]
	}
	switch width {
	case 1:
		return uint64(buf[0]), isa.ResultNone
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf)), isa.ResultNone
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf)), isa.ResultNone
	case 8:
		return binary.LittleEndian.Uint64(buf), isa.ResultNone
	default:
		return 0, isa.ResultBadAddr
	}
}

// Write writes width little-endian bytes of value starting at addr.
// IO-range addresses are delegated to the attached IODevice; see Read for
// the fault mapping, which is symmetric.
func (m *Memory) Write(addr uint64, width int, value uint64) isa.Result {
	if addr >= isa.BeginIOAddr {
		if m.io == nil {
			return isa.ResultBadIOAccess
		}
		if !m.io.Write(addr, width, value) {
			return isa.ResultBadIOAccess
		}
		return isa.ResultNone
	}
	if straddlesIO(addr, width) {
		return isa.ResultBadAlign
	}

	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(buf, value)
	default:
		return isa.ResultBadAddr
	}
	for i := 0; i < width; i++ {
		a := addr + uint64(i)
		m.page(a)[a&pageMask] = buf[i]
	}
	return isa.ResultNone
}

// straddlesIO reports whether a width-byte access starting below the MMIO
// window would run into it. Only called once the caller has already
// established addr < isa.BeginIOAddr.
func straddlesIO(addr uint64, width int) bool {
	return addr+uint64(width) > isa.BeginIOAddr
}

// LoadImage copies data into memory starting at addr, growing pages as
// needed, mirroring mem_load_image.
func (m *Memory) LoadImage(addr uint64, data []byte) {
	for i, b := range data {
		a := addr + uint64(i)
		m.page(a)[a&pageMask] = b
	}
}

// DumpHex returns copies of the touched pages within [addr, addr+size),
// keyed by page base address; the map carries no order, so callers sort
// the keys themselves. If size is 0, every touched page in the whole address space is
// returned instead, matching mem_dump_hex's "dump everything touched"
// sentinel.
func (m *Memory) DumpHex(addr uint64, size uint64) map[uint64][]byte {
	out := make(map[uint64][]byte)
	for base, data := range m.pages {
		if size != 0 && (base+pageSize <= addr || base >= addr+size) {
			continue
		}
		cp := make([]byte, len(data))
		copy(cp, data)
		out[base] = cp
	}
	return out
}
