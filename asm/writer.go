package asm

import (
	"fmt"
	"os"

	"starch/stub"
)

// WriteStub drives the stub package's two-pass protocol to persist secs to
// path: Init, then for each section write its bytes and SaveSection.
func WriteStub(path string, maxnsec int, secs []EncodedSection) error {
	if maxnsec < len(secs) {
		maxnsec = len(secs)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sf, err := stub.Init(f, maxnsec)
	if err != nil {
		return fmt.Errorf("asm: %w", err)
	}

	for i, sec := range secs {
		if _, err := f.Write(sec.Bytes); err != nil {
			return fmt.Errorf("asm: write section %d: %w", i, err)
		}
		err := sf.SaveSection(i, stub.Section{
			Addr:  sec.Addr,
			Flags: uint8(sec.Flags),
		})
		if err != nil {
			return fmt.Errorf("asm: save section %d: %w", i, err)
		}
	}

	return nil
}
