package asm

import (
	"fmt"
	"strconv"
	"strings"

	"starch/isa"
)

// parseIntLiteral parses a decimal or 0x-hex integer literal (optional
// leading '-'), or a 'c' character literal (spec.md 4.5's literal grammar),
// returning its raw 64-bit bit pattern.
func parseIntLiteral(s string) (uint64, error) {
	if strings.HasPrefix(s, "'") {
		v, err := parseCharLiteral(s)
		if err != nil {
			return 0, err
		}
		return uint64(v), nil
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q: %w", s, err)
	}
	if neg {
		return uint64(-int64(v)), nil
	}
	return v, nil
}

// parseCharLiteral parses a 'c' token, including the C-escape and octal
// forms spec.md 4.5 lists, returning the single code point's value.
func parseCharLiteral(tok string) (rune, error) {
	if len(tok) < 3 || !strings.HasPrefix(tok, "'") || !strings.HasSuffix(tok, "'") {
		return 0, fmt.Errorf("malformed character literal %q", tok)
	}
	rs, err := unescapeToRunes(tok[1 : len(tok)-1])
	if err != nil {
		return 0, fmt.Errorf("character literal %q: %w", tok, err)
	}
	if len(rs) != 1 {
		return 0, fmt.Errorf("character literal %q must contain exactly one character", tok)
	}
	return rs[0], nil
}

// parseQuotedString strips the surrounding double quotes from tok and
// unescapes its body, for .include paths (and anywhere else spec.md 4.5
// accepts a quoted token).
func parseQuotedString(tok string) (string, error) {
	if len(tok) < 2 || !strings.HasPrefix(tok, `"`) || !strings.HasSuffix(tok, `"`) {
		return "", fmt.Errorf("malformed quoted string %q", tok)
	}
	rs, err := unescapeToRunes(tok[1 : len(tok)-1])
	if err != nil {
		return "", fmt.Errorf("quoted string %q: %w", tok, err)
	}
	return string(rs), nil
}

// unescapeToRunes expands the C escapes, \xHH hex escapes, and 1-3 digit
// octal escapes spec.md 4.5 lists for char and string literals.
func unescapeToRunes(s string) ([]rune, error) {
	rs := []rune(s)
	out := make([]rune, 0, len(rs))
	for i := 0; i < len(rs); i++ {
		if rs[i] != '\\' {
			out = append(out, rs[i])
			continue
		}
		i++
		if i >= len(rs) {
			return nil, fmt.Errorf("dangling escape at end of literal")
		}
		switch rs[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case '\\':
			out = append(out, '\\')
		case '\'':
			out = append(out, '\'')
		case '"':
			out = append(out, '"')
		case '?':
			out = append(out, '?')
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case 'r':
			out = append(out, '\r')
		case 'v':
			out = append(out, '\v')
		case 'x':
			start := i + 1
			j := start
			for j < len(rs) && isHexDigit(rs[j]) {
				j++
			}
			if j == start {
				return nil, fmt.Errorf("\\x escape with no hex digits")
			}
			v, err := strconv.ParseInt(string(rs[start:j]), 16, 64)
			if err != nil {
				return nil, err
			}
			out = append(out, rune(v))
			i = j - 1
		default:
			if rs[i] >= '0' && rs[i] <= '7' {
				start := i
				j := i
				for j < len(rs) && j < start+3 && rs[j] >= '0' && rs[j] <= '7' {
					j++
				}
				v, err := strconv.ParseInt(string(rs[start:j]), 8, 64)
				if err != nil {
					return nil, err
				}
				out = append(out, rune(v))
				i = j - 1
			} else {
				return nil, fmt.Errorf("unknown escape \\%c", rs[i])
			}
		}
	}
	return out, nil
}

func isHexDigit(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// minBytesForVal returns the narrowest encoding width (1, 2, 4, or 8 bytes)
// that can represent val, ported from stasm's assembler.c
// min_bytes_for_val: a value is widened only as far as its own magnitude
// (signed or unsigned) demands.
func minBytesForVal(val int64) int {
	switch {
	case val < -2147483648:
		return 8
	case val < -32768:
		return 4
	case val < -128:
		return 2
	case val <= 0xff:
		return 1
	case val <= 0xffff:
		return 2
	case val <= 0xffffffff:
		return 4
	default:
		return 8
	}
}

// pushOpcodeName selects the narrowest concrete push*as* opcode for pushing
// raw as a w-bit value (w one of 8, 16, 32, 64), per spec.md 4.5's
// push8|16|32|64 pseudo-ops. raw's bits are reinterpreted as int64 purely to
// reuse minBytesForVal's magnitude comparisons; no sign is assumed about it.
func pushOpcodeName(w int, raw uint64) (isa.Opcode, error) {
	v := int64(raw)
	n := minBytesForVal(v)
	wbytes := w / 8
	if n > wbytes {
		return 0, fmt.Errorf("value %#x does not fit in push%d", raw, w)
	}
	neg := v < 0

	if n == wbytes {
		switch n {
		case 1:
			return isa.Push8As8, nil
		case 2:
			return isa.Push16As16, nil
		case 4:
			return isa.Push32As32, nil
		case 8:
			return isa.Push64As64, nil
		}
	}

	switch {
	case n == 1 && wbytes == 2:
		if neg {
			return isa.Push8AsI16, nil
		}
		return isa.Push8AsU16, nil
	case n == 1 && wbytes == 4:
		if neg {
			return isa.Push8AsI32, nil
		}
		return isa.Push8AsU32, nil
	case n == 1 && wbytes == 8:
		if neg {
			return isa.Push8AsI64, nil
		}
		return isa.Push8AsU64, nil
	case n == 2 && wbytes == 4:
		if neg {
			return isa.Push16AsI32, nil
		}
		return isa.Push16AsU32, nil
	case n == 2 && wbytes == 8:
		if neg {
			return isa.Push16AsI64, nil
		}
		return isa.Push16AsU64, nil
	case n == 4 && wbytes == 8:
		if neg {
			return isa.Push32AsI64, nil
		}
		return isa.Push32AsU64, nil
	}
	return 0, fmt.Errorf("no push opcode for a %d-byte value in push%d", n, w)
}
