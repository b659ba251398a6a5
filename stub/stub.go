// Package stub implements the Starch binary container format: a random-access,
// section-based file with a two-pass write protocol that lets a writer emit a
// section whose size is unknown until the last byte has been written.
package stub

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize        = 4
	sectionHeaderSize = 25 // addr(8) + flags(1) + bfo(8) + efo(8)
)

var magic = [headerSize]byte{'s', 't', 'b', 0x01}

// Errors mirror the taxonomy in spec.md 4.2, one sentinel per named condition
// so callers can distinguish them with errors.Is.
var (
	ErrPrematureEOF        = errors.New("stub: premature end of file")
	ErrInvalidHeader       = errors.New("stub: invalid header")
	ErrInvalidSectionCount = errors.New("stub: invalid section count")
	ErrInvalidFileOffset   = errors.New("stub: invalid file offset")
	ErrGapData             = errors.New("stub: non-zero bytes in unused directory slot")
	ErrInvalidSectionIndex = errors.New("stub: invalid section index")
)

// Section describes one entry of the stub's section directory.
type Section struct {
	Addr  uint64
	Flags uint8
	Size  uint64 // efo - bfo; for STACK sections this is a requested runtime extent, not file bytes
}

// File is a random-access stub container open for either writing (via Init
// and SaveSection) or reading (via Verify, SectionCounts, and LoadSection).
type File struct {
	rw io.ReadWriteSeeker
}

// New wraps an already-open file handle. The caller is responsible for
// closing it.
func New(rw io.ReadWriteSeeker) *File {
	return &File{rw: rw}
}

func (f *File) seek(offset int64, whence int) (int64, error) {
	pos, err := f.rw.Seek(offset, whence)
	if err != nil {
		return 0, fmt.Errorf("stub: seek: %w", err)
	}
	return pos, nil
}

func (f *File) checkHeader() error {
	if _, err := f.seek(0, io.SeekStart); err != nil {
		return err
	}
	var hdr [headerSize]byte
	if _, err := io.ReadFull(f.rw, hdr[:]); err != nil {
		return ErrPrematureEOF
	}
	if hdr != magic {
		return ErrInvalidHeader
	}
	return nil
}

// SectionCounts reads and validates maxnsec and nsec, leaving the file
// position just past them (at the start of the section directory).
func (f *File) SectionCounts() (maxnsec, nsec int, err error) {
	if err := f.checkHeader(); err != nil {
		return 0, 0, err
	}

	var buf [4]byte
	if _, err := io.ReadFull(f.rw, buf[:]); err != nil {
		return 0, 0, ErrPrematureEOF
	}
	maxnsec = int(int32(binary.LittleEndian.Uint32(buf[:])))
	if maxnsec <= 0 {
		return 0, 0, ErrInvalidSectionCount
	}

	if _, err := io.ReadFull(f.rw, buf[:]); err != nil {
		return 0, 0, ErrPrematureEOF
	}
	nsec = int(int32(binary.LittleEndian.Uint32(buf[:])))
	if nsec < 0 || nsec > maxnsec {
		return 0, 0, ErrInvalidSectionCount
	}

	return maxnsec, nsec, nil
}

func directoryEnd(maxnsec int) int64 {
	return headerSize + 8 + int64(sectionHeaderSize)*int64(maxnsec)
}

func encodeSection(sec Section, bfo, efo uint64) [sectionHeaderSize]byte {
	var b [sectionHeaderSize]byte
	binary.LittleEndian.PutUint64(b[0:8], sec.Addr)
	b[8] = sec.Flags
	binary.LittleEndian.PutUint64(b[9:17], bfo)
	binary.LittleEndian.PutUint64(b[17:25], efo)
	return b
}

func decodeSection(b [sectionHeaderSize]byte) (sec Section, bfo, efo uint64) {
	sec.Addr = binary.LittleEndian.Uint64(b[0:8])
	sec.Flags = b[8]
	bfo = binary.LittleEndian.Uint64(b[9:17])
	efo = binary.LittleEndian.Uint64(b[17:25])
	sec.Size = efo - bfo
	return sec, bfo, efo
}

// Verify walks the whole directory and checks every invariant in spec.md 4.2:
// contiguous, monotonic bfo/efo for used slots, zero-filled unused slots, and
// a file length equal to the last section's efo.
func (f *File) Verify() error {
	maxnsec, nsec, err := f.SectionCounts()
	if err != nil {
		return err
	}

	lastEfo := uint64(directoryEnd(maxnsec))

	var raw [sectionHeaderSize]byte
	i := 0
	for ; i < nsec; i++ {
		if _, err := io.ReadFull(f.rw, raw[:]); err != nil {
			return ErrPrematureEOF
		}
		_, bfo, efo := decodeSection(raw)
		if bfo != lastEfo || efo < bfo {
			return ErrInvalidFileOffset
		}
		lastEfo = efo
	}

	for ; i < maxnsec; i++ {
		if _, err := io.ReadFull(f.rw, raw[:]); err != nil {
			return ErrPrematureEOF
		}
		for _, b := range raw {
			if b != 0 {
				return ErrGapData
			}
		}
	}

	fileLen, err := f.seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if uint64(fileLen) != lastEfo {
		return ErrInvalidFileOffset
	}

	return nil
}

// LoadSection validates section < nsec, seeks to its directory slot, decodes
// it, and leaves the file positioned at the start of the section's data.
func (f *File) LoadSection(section int) (Section, error) {
	if section < 0 {
		return Section{}, ErrInvalidSectionIndex
	}

	maxnsec, nsec, err := f.SectionCounts()
	if err != nil {
		return Section{}, err
	}
	_ = maxnsec
	if section >= nsec {
		return Section{}, ErrInvalidSectionIndex
	}

	if _, err := f.seek(int64(sectionHeaderSize*section), io.SeekCurrent); err != nil {
		return Section{}, err
	}

	var raw [sectionHeaderSize]byte
	if _, err := io.ReadFull(f.rw, raw[:]); err != nil {
		return Section{}, ErrPrematureEOF
	}
	sec, bfo, efo := decodeSection(raw)
	if bfo > efo {
		return Section{}, ErrInvalidFileOffset
	}

	if _, err := f.seek(int64(bfo), io.SeekStart); err != nil {
		return Section{}, err
	}
	return sec, nil
}

// truncater is implemented by *os.File; Init requires it to reset and resize
// the backing file the way the source's ftruncate-based protocol does.
type truncater interface {
	Truncate(size int64) error
}

// Init truncates the file, extends it to hold exactly maxnsec empty directory
// slots, writes the header and maxnsec, and leaves nsec at zero and the file
// position at the start of section data.
func Init(rw io.ReadWriteSeeker, maxnsec int) (*File, error) {
	if maxnsec <= 0 {
		return nil, ErrInvalidSectionCount
	}
	t, ok := rw.(truncater)
	if !ok {
		return nil, fmt.Errorf("stub: backing file does not support truncation")
	}

	if err := t.Truncate(0); err != nil {
		return nil, fmt.Errorf("stub: truncate: %w", err)
	}
	size := directoryEnd(maxnsec)
	if err := t.Truncate(size); err != nil {
		return nil, fmt.Errorf("stub: extend: %w", err)
	}

	f := &File{rw: rw}
	if _, err := f.seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if _, err := f.rw.Write(magic[:]); err != nil {
		return nil, fmt.Errorf("stub: write header: %w", err)
	}
	var maxBuf [4]byte
	binary.LittleEndian.PutUint32(maxBuf[:], uint32(maxnsec))
	if _, err := f.rw.Write(maxBuf[:]); err != nil {
		return nil, fmt.Errorf("stub: write maxnsec: %w", err)
	}

	if _, err := f.seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return f, nil
}

// SaveSection is the central writer protocol (spec.md 4.2 "Save-section"):
// the caller has already written section index's bytes starting at whatever
// position followed the prior SaveSection call (or Init, for index 0); this
// finalizes the directory entry for that data.
func (f *File) SaveSection(index int, sec Section) error {
	if index < 0 {
		return ErrInvalidSectionIndex
	}

	fpos, err := f.seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	maxnsec, nsec, err := f.SectionCounts()
	if err != nil {
		return err
	}
	if index > nsec || index >= maxnsec {
		return ErrInvalidSectionIndex
	}

	var prevEfo uint64
	if index == 0 {
		prevEfo = uint64(directoryEnd(maxnsec))
	} else {
		// The previous section's efo sits 8 bytes before this section's own
		// directory slot: slot i's header starts at directoryStart+25*i, and
		// within a slot, efo is the last 8 bytes (offset 17..25).
		prevSlotEfoOffset := headerSize + sectionHeaderSize*index
		if _, err := f.seek(int64(prevSlotEfoOffset), io.SeekStart); err != nil {
			return err
		}
		var efoBuf [8]byte
		if _, err := io.ReadFull(f.rw, efoBuf[:]); err != nil {
			return ErrPrematureEOF
		}
		prevEfo = binary.LittleEndian.Uint64(efoBuf[:])
	}

	if prevEfo > uint64(fpos) {
		return ErrInvalidFileOffset
	}

	raw := encodeSection(sec, prevEfo, uint64(fpos))
	slotOffset := int64(headerSize+8) + int64(sectionHeaderSize)*int64(index)
	if _, err := f.seek(slotOffset, io.SeekStart); err != nil {
		return err
	}
	if _, err := f.rw.Write(raw[:]); err != nil {
		return fmt.Errorf("stub: write section header: %w", err)
	}
	sec.Size = uint64(fpos) - prevEfo

	if index == nsec {
		if _, err := f.seek(headerSize+4, io.SeekStart); err != nil {
			return err
		}
		var nBuf [4]byte
		binary.LittleEndian.PutUint32(nBuf[:], uint32(index+1))
		if _, err := f.rw.Write(nBuf[:]); err != nil {
			return fmt.Errorf("stub: write nsec: %w", err)
		}
	}

	if _, err := f.seek(fpos, io.SeekStart); err != nil {
		return err
	}
	return nil
}
