package asm

// UTF8Error is the codec's error taxonomy (spec.md 4.3), ported from
// util/src/utf8.c's UTF8_ERROR_* constants.
type UTF8Error int

const (
	ErrInvalidStartByte UTF8Error = iota + 1
	ErrInvalidContinuationByte
	ErrOverlongSequence
	ErrUnexpectedTermination
	ErrCharacterOverflow
	ErrByteOverflow
	ErrInvalidCharacter
)

var utf8ErrorText = map[UTF8Error]string{
	ErrInvalidStartByte:        "invalid start byte",
	ErrInvalidContinuationByte: "invalid continuation byte",
	ErrOverlongSequence:        "overlong sequence",
	ErrUnexpectedTermination:   "unexpected termination",
	ErrCharacterOverflow:       "character overflow",
	ErrByteOverflow:            "byte overflow",
	ErrInvalidCharacter:        "invalid character",
}

func (e UTF8Error) Error() string {
	if s, ok := utf8ErrorText[e]; ok {
		return "utf8: " + s
	}
	return "utf8: unknown error"
}

// utf8Decoder is a streaming UTF-8 decoder fed one byte at a time via
// decode. state packs the remaining continuation-byte count in its lower
// nibble and the sequence's total length in its upper nibble — the same
// packing util/src/utf8.c's utf8_decoder_decode uses, which lets a
// completed sequence compare its actual length against bytesForChar(c) to
// catch overlong encodings (e.g. 0xC1 0x80, a two-byte encoding of a
// code point that only needs one).
type utf8Decoder struct {
	state uint8
	c     rune
}

func newUTF8Decoder() *utf8Decoder {
	return &utf8Decoder{}
}

// decode processes one byte. It returns (r, true, nil) when byte b
// completes a code point, (0, false, nil) mid-sequence, and (0, false,
// err) on a decode error. canTerminate reports false until a full code
// point has completed or decoding begins fresh.
func (d *utf8Decoder) decode(b byte) (rune, bool, error) {
	if d.state&0xf == 0 {
		switch {
		case b < 0x80:
			return rune(b), true, nil
		case b&0xe0 == 0xc0:
			d.c = rune(b & 0x1f)
			d.state = 0x21
		case b&0xf0 == 0xe0:
			d.c = rune(b & 0x0f)
			d.state = 0x32
		case b&0xf8 == 0xf0:
			d.c = rune(b & 0x07)
			d.state = 0x43
		default:
			return 0, false, ErrInvalidStartByte
		}
		return 0, false, nil
	}

	if b&0xc0 != 0x80 {
		d.state = 0
		return 0, false, ErrInvalidContinuationByte
	}
	d.c = d.c<<6 | rune(b&0x3f)
	d.state--
	if d.state&0xf != 0 {
		return 0, false, nil
	}

	seqLen := d.state >> 4
	d.state = 0
	bfc, err := bytesForChar(d.c)
	if err != nil {
		return 0, false, err
	}
	if uint8(bfc) != seqLen {
		return 0, false, ErrOverlongSequence
	}
	return d.c, true, nil
}

// canTerminate reports whether the decoder sits at a character boundary,
// not partway through a multi-byte sequence.
func (d *utf8Decoder) canTerminate() bool {
	return d.state == 0
}

// bytesForChar returns the number of UTF-8 bytes needed to encode c.
func bytesForChar(c rune) (int, error) {
	switch {
	case c < 0x80:
		return 1, nil
	case c < 0x800:
		return 2, nil
	case c < 0x10000:
		return 3, nil
	case c < 0x200000:
		return 4, nil
	default:
		return 0, ErrInvalidCharacter
	}
}

// encodeRune appends c's UTF-8 encoding to buf.
func encodeRune(buf []byte, c rune) ([]byte, error) {
	switch {
	case c < 0x80:
		return append(buf, byte(c)), nil
	case c < 0x800:
		return append(buf, byte(c>>6)|0xc0, byte(c&0x3f)|0x80), nil
	case c < 0x10000:
		return append(buf,
			byte(c>>12)|0xe0,
			byte((c>>6)&0x3f)|0x80,
			byte(c&0x3f)|0x80,
		), nil
	case c < 0x200000:
		return append(buf,
			byte(c>>18)|0xf0,
			byte((c>>12)&0x3f)|0x80,
			byte((c>>6)&0x3f)|0x80,
			byte(c&0x3f)|0x80,
		), nil
	default:
		return nil, ErrInvalidCharacter
	}
}

// decodeUTF8 decodes every byte of b into runes (utf8_decode_array with an
// unbounded destination). A decode error, or input that ends mid-sequence
// (UnexpectedTermination), aborts with whatever runes decoded cleanly
// before the failure.
func decodeUTF8(b []byte) ([]rune, error) {
	d := newUTF8Decoder()
	var out []rune
	for _, by := range b {
		r, ok, err := d.decode(by)
		if err != nil {
			return out, err
		}
		if ok {
			out = append(out, r)
		}
	}
	if !d.canTerminate() {
		return out, ErrUnexpectedTermination
	}
	return out, nil
}

// encodeUTF8 is decodeUTF8's inverse (utf8_encode_array with an unbounded
// destination).
func encodeUTF8(rs []rune) ([]byte, error) {
	var out []byte
	for _, r := range rs {
		var err error
		out, err = encodeRune(out, r)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// decodeUTF8Bounded is decodeUTF8 with a fixed-capacity destination,
// mirroring utf8_decode_array's CharacterOverflow behavior for callers
// that size their output buffer up front.
func decodeUTF8Bounded(b []byte, max int) ([]rune, error) {
	d := newUTF8Decoder()
	var out []rune
	for i := 0; i < len(b); i++ {
		r, ok, err := d.decode(b[i])
		if err != nil {
			return out, err
		}
		if ok {
			if len(out) >= max {
				return out, ErrCharacterOverflow
			}
			out = append(out, r)
		}
	}
	if !d.canTerminate() {
		return out, ErrUnexpectedTermination
	}
	return out, nil
}

// encodeUTF8Bounded is encodeUTF8 with a fixed-capacity destination,
// mirroring utf8_encode_array's ByteOverflow behavior.
func encodeUTF8Bounded(rs []rune, max int) ([]byte, error) {
	var out []byte
	for _, r := range rs {
		n, err := bytesForChar(r)
		if err != nil {
			return out, err
		}
		if len(out)+n > max {
			return out, ErrByteOverflow
		}
		out, err = encodeRune(out, r)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}
