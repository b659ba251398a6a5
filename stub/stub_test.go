package stub

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// memFile is a minimal io.ReadWriteSeeker + Truncate backed by an in-memory
// buffer, standing in for *os.File in tests that never touch disk.
type memFile struct {
	buf []byte
	pos int64
}

func (m *memFile) Truncate(size int64) error {
	if size < int64(len(m.buf)) {
		m.buf = m.buf[:size]
		return nil
	}
	m.buf = append(m.buf, make([]byte, size-int64(len(m.buf)))...)
	return nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var np int64
	switch whence {
	case io.SeekStart:
		np = offset
	case io.SeekCurrent:
		np = m.pos + offset
	case io.SeekEnd:
		np = int64(len(m.buf)) + offset
	}
	if np < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = np
	return np, nil
}

func (m *memFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		m.buf = append(m.buf, make([]byte, end-int64(len(m.buf)))...)
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func writeSections(t *testing.T, f *File, secs []Section, payloads [][]byte) {
	t.Helper()
	for i, sec := range secs {
		if _, err := f.rw.(*memFile).Write(payloads[i]); err != nil {
			t.Fatalf("write payload %d: %v", i, err)
		}
		if err := f.SaveSection(i, sec); err != nil {
			t.Fatalf("SaveSection(%d): %v", i, err)
		}
	}
}

func TestInitSaveLoadRoundTrip(t *testing.T) {
	mf := &memFile{}
	f, err := Init(mf, 4)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	secs := []Section{
		{Addr: 0x1000, Flags: 0},
		{Addr: 0x2000, Flags: 1},
	}
	payloads := [][]byte{
		{0x01, 0x02, 0x03},
		{0xaa, 0xbb, 0xcc, 0xdd, 0xee},
	}
	writeSections(t, f, secs, payloads)

	if err := f.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	maxnsec, nsec, err := f.SectionCounts()
	if err != nil {
		t.Fatalf("SectionCounts: %v", err)
	}
	if maxnsec != 4 || nsec != 2 {
		t.Fatalf("SectionCounts = (%d, %d), want (4, 2)", maxnsec, nsec)
	}

	for i, want := range secs {
		sec, err := f.LoadSection(i)
		if err != nil {
			t.Fatalf("LoadSection(%d): %v", i, err)
		}
		if sec.Addr != want.Addr || sec.Flags != want.Flags {
			t.Errorf("LoadSection(%d) = %+v, want addr/flags %+v", i, sec, want)
		}
		if sec.Size != uint64(len(payloads[i])) {
			t.Errorf("LoadSection(%d).Size = %d, want %d", i, sec.Size, len(payloads[i]))
		}
		got := make([]byte, sec.Size)
		if _, err := io.ReadFull(mf, got); err != nil {
			t.Fatalf("read section %d data: %v", i, err)
		}
		if !bytes.Equal(got, payloads[i]) {
			t.Errorf("section %d data = %v, want %v", i, got, payloads[i])
		}
	}
}

func TestVerifyRejectsBadHeader(t *testing.T) {
	mf := &memFile{buf: []byte("not a stub file at all")}
	f := New(mf)
	if err := f.Verify(); !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("Verify() = %v, want ErrInvalidHeader", err)
	}
}

func TestVerifyRejectsNonZeroGap(t *testing.T) {
	mf := &memFile{}
	f, err := Init(mf, 2)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := f.rw.(*memFile).Write([]byte{1}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveSection(0, Section{Addr: 0x1000}); err != nil {
		t.Fatalf("SaveSection: %v", err)
	}
	// Corrupt the second (unused) directory slot so Verify must reject it.
	mf.buf[directoryEnd(2)-1] = 0xff
	if err := f.Verify(); !errors.Is(err, ErrGapData) {
		t.Errorf("Verify() = %v, want ErrGapData", err)
	}
}

func TestLoadSectionRejectsOutOfRangeIndex(t *testing.T) {
	mf := &memFile{}
	f, err := Init(mf, 2)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := f.rw.(*memFile).Write([]byte{1, 2}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveSection(0, Section{Addr: 0x1000}); err != nil {
		t.Fatalf("SaveSection: %v", err)
	}
	if _, err := f.LoadSection(1); !errors.Is(err, ErrInvalidSectionIndex) {
		t.Errorf("LoadSection(1) = %v, want ErrInvalidSectionIndex", err)
	}
}
