// Package asm assembles Starch source text into a stub binary: a small
// two-pass assembler with label back-patching, borrowed in spirit from
// gvm's own preprocess-then-resolve pipeline but generalized to variable
// length instructions and multiple addressed sections. Source is read
// through the UTF-8 decoder and tokenizer in this package (utf8.go,
// tokenizer.go) rather than split on whitespace, so quoted strings,
// character literals, and comments all follow spec.md 4.3/4.4 exactly.
package asm

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"starch/isa"
)

// item is one emitted unit of output: an encoded instruction or a raw data
// word, tagged with the byte address it will occupy so labels can be
// resolved against it in a second pass (Encode).
type item struct {
	addr    uint64
	opcode  isa.Opcode
	isInst  bool
	width   int    // byte width of a non-instruction data word; unused when isInst
	tok     string // unresolved literal/symbol token, empty if label or no value
	label   string // unresolved label name, empty if tok or no value
	lineNum int
}

type section struct {
	addr  uint64
	flags isa.SectionFlag
	items []item
	size  uint64
}

// Assembler holds the state accumulated while assembling one program: the
// open sections, user-defined symbols (from ".define"), and label addresses.
type Assembler struct {
	sections []*section
	defines  map[string]string
	labels   map[string]uint64
}

// New creates an empty Assembler.
func New() *Assembler {
	return &Assembler{
		defines: make(map[string]string),
		labels:  make(map[string]uint64),
	}
}

// AssembleFile reads filename and assembles it.
func AssembleFile(filename string) (*Assembler, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	as := New()
	if err := as.assembleSource(filename, src); err != nil {
		return nil, err
	}
	return as, nil
}

func (as *Assembler) curSection() (*section, error) {
	if len(as.sections) == 0 {
		return nil, fmt.Errorf("instruction or data before any \".section\" directive")
	}
	return as.sections[len(as.sections)-1], nil
}

// assembleSource tokenizes src (whose name is filename, used for error
// messages and resolving relative .include paths) and assembles it line by
// line.
func (as *Assembler) assembleSource(filename string, src []byte) error {
	toks, err := tokenize(src)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	for i, line := range splitLines(toks) {
		line = mergeLabelTokens(line)
		if len(line) == 0 {
			continue
		}
		if err := as.processLine(line, i+1, filename); err != nil {
			return fmt.Errorf("%s:%d: %w", filename, i+1, err)
		}
	}
	return nil
}

// mergeLabelTokens folds a lone ':' operator token and the bareword
// immediately following it (same line, adjacent column, no intervening
// whitespace) into one synthetic ":<name>" token. ':' is a plain
// single-character operator in both the tokenizer (spec.md 4.4) and the
// source it was ported from — it never joins a bareword the way '.', '-',
// '\'', and '\\' do — so without this fold a label definition or reference
// would arrive as two separate tokens instead of the one spec.md 4.5's
// ":<name>" grammar production describes.
func mergeLabelTokens(line []Token) []Token {
	out := make([]Token, 0, len(line))
	for i := 0; i < len(line); i++ {
		tok := line[i]
		if tok.Text == ":" && i+1 < len(line) {
			next := line[i+1]
			if next.Line == tok.Line && next.Col == tok.Col+1 && next.Text != ":" {
				out = append(out, Token{Text: ":" + next.Text, Line: tok.Line, Col: tok.Col})
				i++
				continue
			}
		}
		out = append(out, tok)
	}
	return out
}

var dataDirectiveWidths = map[string]int{
	".data8": 1, ".data16": 2, ".data32": 4, ".data64": 8,
}

func (as *Assembler) processLine(fields []Token, lineNum int, filename string) error {
	cmd := fields[0].Text

	if strings.HasPrefix(cmd, ":") {
		if len(fields) != 1 {
			return fmt.Errorf("unexpected tokens after label definition")
		}
		name := cmd[1:]
		if name == "" {
			return fmt.Errorf("empty label")
		}
		if _, dup := as.labels[name]; dup {
			return fmt.Errorf("duplicate label %q", name)
		}
		sec, err := as.curSection()
		if err != nil {
			return err
		}
		as.labels[name] = sec.addr + sec.size
		return nil
	}

	switch cmd {
	case ".section":
		return as.doSection(fields, lineNum)
	case ".define":
		if len(fields) != 3 {
			return fmt.Errorf(".define requires <name> <value>")
		}
		as.defines[fields[1].Text] = fields[2].Text
		return nil
	case ".include":
		if len(fields) != 2 {
			return fmt.Errorf(".include requires a single quoted path")
		}
		path, err := parseQuotedString(fields[1].Text)
		if err != nil {
			return fmt.Errorf(".include: %w", err)
		}
		return as.includeFile(path, filename)
	case ".strings":
		return fmt.Errorf(".strings is not supported (spec.md 4.9 lists it as a deferred design point)")
	case ".data8", ".data16", ".data32", ".data64":
		return as.doData(cmd, fields, lineNum)
	case "push8", "push16", "push32", "push64":
		return as.doPushPseudoOp(cmd, fields, lineNum)
	default:
		if strings.HasPrefix(cmd, ".") {
			return fmt.Errorf("unknown directive %q", cmd)
		}
		return as.doInstruction(cmd, fields, lineNum)
	}
}

func (as *Assembler) doSection(fields []Token, lineNum int) error {
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf(".section requires <addr> [<flags>]")
	}
	addr, err := as.resolveValue(fields[1].Text)
	if err != nil {
		return err
	}
	flagName := "text"
	if len(fields) == 3 {
		flagName = fields[2].Text
	}
	flags, err := parseSectionFlag(flagName)
	if err != nil {
		return err
	}
	as.sections = append(as.sections, &section{addr: addr, flags: flags})
	return nil
}

func (as *Assembler) doData(cmd string, fields []Token, lineNum int) error {
	sec, err := as.curSection()
	if err != nil {
		return err
	}
	width := dataDirectiveWidths[cmd]
	for _, tok := range fields[1:] {
		it := item{addr: sec.addr + sec.size, width: width, lineNum: lineNum}
		if strings.HasPrefix(tok.Text, ":") {
			it.label = tok.Text[1:]
		} else {
			it.tok = tok.Text
		}
		sec.items = append(sec.items, it)
		sec.size += uint64(width)
	}
	return nil
}

func (as *Assembler) doPushPseudoOp(cmd string, fields []Token, lineNum int) error {
	if len(fields) != 2 {
		return fmt.Errorf("%s requires exactly one value", cmd)
	}
	tok := fields[1]
	if strings.HasPrefix(tok.Text, ":") {
		// stasm's own assembler.c leaves push-pseudo-op emission as an
		// unimplemented @todo for any operand; picking the narrowest
		// opcode requires a value known at assemble time, so a forward
		// label address (only known once every section is placed)
		// cannot drive the choice the way a literal can.
		return fmt.Errorf("%s does not support a label operand; push the address with a literal-sized push*as* opcode instead", cmd)
	}
	w := map[string]int{"push8": 8, "push16": 16, "push32": 32, "push64": 64}[cmd]

	resolved, err := as.substituteSymbol(tok.Text)
	if err != nil {
		return err
	}
	v, err := parseIntLiteral(resolved)
	if err != nil {
		return err
	}
	op, err := pushOpcodeName(w, v)
	if err != nil {
		return err
	}

	sec, err := as.curSection()
	if err != nil {
		return err
	}
	it := item{
		addr:    sec.addr + sec.size,
		opcode:  op,
		isInst:  true,
		tok:     fmt.Sprintf("%d", v),
		lineNum: lineNum,
	}
	sec.items = append(sec.items, it)
	sec.size += uint64(1 + isa.Size(isa.ImmType(op)))
	return nil
}

func (as *Assembler) doInstruction(cmd string, fields []Token, lineNum int) error {
	op, ok := isa.OpcodeForName(cmd)
	if !ok {
		return fmt.Errorf("unknown instruction or directive %q", cmd)
	}
	sec, err := as.curSection()
	if err != nil {
		return err
	}
	immType := isa.ImmType(op)
	if immType < 0 {
		return fmt.Errorf("%q has no runtime encoding", cmd)
	}

	var tok, label string
	switch {
	case immType == isa.Void && len(fields) == 1:
	case immType != isa.Void && len(fields) == 2:
		operand := fields[1]
		if strings.HasPrefix(operand.Text, ":") {
			label = operand.Text[1:]
		} else {
			tok = operand.Text
		}
	default:
		want := 0
		if immType != isa.Void {
			want = 1
		}
		return fmt.Errorf("%q takes %d immediate operand(s), got %d", cmd, want, len(fields)-1)
	}

	it := item{
		addr:    sec.addr + sec.size,
		opcode:  op,
		tok:     tok,
		label:   label,
		isInst:  true,
		lineNum: lineNum,
	}
	sec.items = append(sec.items, it)
	sec.size += uint64(1 + isa.Size(immType))
	return nil
}

// includeFile assembles the file at path (resolved relative to fromFile's
// directory, mirroring a plain #include-style open) as a child source. The
// child's symbol map starts as a copy of the parent's; any new or changed
// symbols it defines are transferred back up once it reaches EOF, the same
// push-down/pull-up shape as stasm.c's smap_move calls around its include
// chain. Sections and labels are not scoped per file: an include splices
// its statements into the same running program as the includer's.
func (as *Assembler) includeFile(path, fromFile string) error {
	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(fromFile), path)
	}
	src, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Errorf("include %q: %w", path, err)
	}

	parent := as.defines
	child := make(map[string]string, len(parent))
	for k, v := range parent {
		child[k] = v
	}
	as.defines = child

	err = as.assembleSource(resolved, src)

	as.defines = parent
	for k, v := range child {
		as.defines[k] = v
	}
	return err
}

func parseSectionFlag(s string) (isa.SectionFlag, error) {
	switch s {
	case "text":
		return isa.SectionText, nil
	case "data":
		return isa.SectionData, nil
	case "stack":
		return isa.SectionStack, nil
	default:
		return 0, fmt.Errorf("unknown section flag %q", s)
	}
}

// resolveValue parses a literal integer, a $-prefixed symbol reference, or a
// user-defined name, returning its numeric value. It does not resolve labels
// (those are only valid as instruction/data operands, resolved in Encode).
func (as *Assembler) resolveValue(tok string) (uint64, error) {
	resolved, err := as.substituteSymbol(tok)
	if err != nil {
		return 0, err
	}
	return parseIntLiteral(resolved)
}

// substituteSymbol mirrors stasm's symbol_sub: a leading '$' triggers lookup
// against, in order, $OP_<NAME> opcode names, the automatic symbol table,
// and finally a user ".define". Non-$ tokens pass through as-is.
func (as *Assembler) substituteSymbol(tok string) (string, error) {
	if !strings.HasPrefix(tok, "$") {
		return tok, nil
	}
	name := tok[1:]
	if name == "" {
		return "", fmt.Errorf("empty symbol name")
	}

	if strings.HasPrefix(name, "OP_") {
		lower := strings.ToLower(name[3:])
		if op, ok := isa.OpcodeForName(lower); ok {
			return fmt.Sprintf("%d", op), nil
		}
		return "", fmt.Errorf("undefined symbol %q", name)
	}

	if v, ok := isa.AutoSymbolValue(name); ok {
		return fmt.Sprintf("%#x", v), nil
	}

	if v, ok := as.defines[name]; ok {
		return v, nil
	}

	return "", fmt.Errorf("undefined symbol %q", name)
}

// resolveItemValue resolves an item's deferred value: a label reference
// resolves to that label's address (or, for the rjmpi*/rbrz* family, the
// relative delta from the immediate field's own address to it), a
// $symbol resolves per substituteSymbol, a bare token is a literal, and no
// value at all (Void-immediate instructions) yields 0.
func (as *Assembler) resolveItemValue(it item) (int64, error) {
	if it.label != "" {
		addr, ok := as.labels[it.label]
		if !ok {
			return 0, fmt.Errorf("line %d: undefined label %q", it.lineNum, it.label)
		}
		if it.isInst && isRelativeFamily(it.opcode) {
			// target_addr - usage_addr, where usage_addr is the address
			// of the immediate field itself (one byte past the opcode),
			// independent of the immediate's own width: a self-referencing
			// rjmpi8 encodes -1, per spec's worked example.
			return int64(addr) - int64(it.addr+1), nil
		}
		return int64(addr), nil
	}
	if it.tok == "" {
		return 0, nil
	}
	resolved, err := as.substituteSymbol(it.tok)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", it.lineNum, err)
	}
	v, err := parseIntLiteral(resolved)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", it.lineNum, err)
	}
	return int64(v), nil
}

// isRelativeFamily reports whether op's immediate is a PC-relative delta
// (the rjmpi*/rbrz* family) as opposed to an absolute address
// (jmp/brz*/call).
func isRelativeFamily(op isa.Opcode) bool {
	switch op {
	case isa.Rjmpi8, isa.Rjmpi16, isa.Rjmpi32,
		isa.Rbrz8i8, isa.Rbrz16i8, isa.Rbrz32i8, isa.Rbrz64i8,
		isa.Rbrz8i16, isa.Rbrz16i16, isa.Rbrz32i16, isa.Rbrz64i16,
		isa.Rbrz8i32, isa.Rbrz16i32, isa.Rbrz32i32, isa.Rbrz64i32:
		return true
	default:
		return false
	}
}

// encodeWidth little-endian-encodes v's low bytes into a width-byte buffer.
func encodeWidth(width int, v int64) ([]byte, error) {
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(buf, uint64(v))
	default:
		return nil, fmt.Errorf("unexpected width %d", width)
	}
	return buf, nil
}

func encodeImmediate(dt isa.Sdt, v int64) ([]byte, error) {
	return encodeWidth(isa.Size(dt), v)
}

// Encode resolves every label reference and returns the finished sections in
// program order, ready to be written to a stub file via stub.Init/SaveSection.
func (as *Assembler) Encode() ([]EncodedSection, error) {
	var out []EncodedSection
	for _, sec := range as.sections {
		buf := make([]byte, 0, sec.size)
		for _, it := range sec.items {
			if it.isInst {
				buf = append(buf, byte(it.opcode))
				dt := isa.ImmType(it.opcode)
				if dt == isa.Void {
					continue
				}
				v, err := as.resolveItemValue(it)
				if err != nil {
					return nil, err
				}
				enc, err := encodeImmediate(dt, v)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", it.lineNum, err)
				}
				buf = append(buf, enc...)
				continue
			}

			v, err := as.resolveItemValue(it)
			if err != nil {
				return nil, err
			}
			enc, err := encodeWidth(it.width, v)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", it.lineNum, err)
			}
			buf = append(buf, enc...)
		}
		out = append(out, EncodedSection{
			Addr:  sec.addr,
			Flags: sec.flags,
			Bytes: buf,
		})
	}
	return out, nil
}

// EncodedSection is one fully assembled section, ready for stub.SaveSection.
type EncodedSection struct {
	Addr  uint64
	Flags isa.SectionFlag
	Bytes []byte
}
