// Package ingest reads disassembled ARM text and corruption descriptors
// into the in-memory program image and candidate store the rest of the
// engine operates on.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/marcef-go/armrecover/arm"
	"github.com/marcef-go/armrecover/program"
)

// MalformedInputError reports a disassembly line that matches neither the
// function-header nor the instruction-line pattern.
type MalformedInputError struct {
	Line   int
	Source string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("ingest: malformed disassembly line %d: %q", e.Line, e.Source)
}

// functionHeaderPattern matches a function-header line, e.g.
// ".text:000107ec <$a>". Duplicates are disambiguated by the caller.
var functionHeaderPattern = regexp.MustCompile(`^\.\w+:[0-9a-fA-F]+\s*<[$\w]`)

// instructionLinePattern matches ".text:<addr> <b0> <b1> <b2> <b3>".
var instructionLinePattern = regexp.MustCompile(`^\.\w+:([0-9a-fA-F]+)\s+([0-9a-fA-F]{2})\s+([0-9a-fA-F]{2})\s+([0-9a-fA-F]{2})\s+([0-9a-fA-F]{2})\s*$`)

// ReadDisassemblyFile opens path and parses it as ARM disassembly text.
func ReadDisassemblyFile(path string) (*program.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	defer f.Close()
	return ParseDisassembly(f)
}

// ParseDisassembly reads lines of the form ".text:<hex_addr> <b0> <b1> <b2>
// <b3>" (little-endian bytes) interspersed with function-header lines
// matching functionHeaderPattern, and assembles a Program. Blank lines are
// skipped; anything else that matches neither pattern is a
// MalformedInputError.
func ParseDisassembly(r io.Reader) (*program.Program, error) {
	scanner := bufio.NewScanner(r)

	var instructions []arm.Instruction
	functions := []program.Function{{Name: "no_method"}}
	seenHeaders := map[string]int{}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if functionHeaderPattern.MatchString(line) {
			name := line
			if n, dup := seenHeaders[name]; dup {
				seenHeaders[name] = n + 1
				name = fmt.Sprintf("%s%d", line, n+1)
			} else {
				seenHeaders[name] = 0
			}
			functions = append(functions, program.Function{Name: name})
			continue
		}

		m := instructionLinePattern.FindStringSubmatch(line)
		if m == nil {
			return nil, &MalformedInputError{Line: lineNo, Source: line}
		}

		addr, err := strconv.ParseUint(m[1], 16, 32)
		if err != nil {
			return nil, &MalformedInputError{Line: lineNo, Source: line}
		}
		var b [4]uint64
		for i := 0; i < 4; i++ {
			b[i], err = strconv.ParseUint(m[2+i], 16, 8)
			if err != nil {
				return nil, &MalformedInputError{Line: lineNo, Source: line}
			}
		}
		encoding := uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])

		inst := arm.Decode(encoding, uint32(addr))
		instructions = append(instructions, inst)
		last := &functions[len(functions)-1]
		last.Instructions = append(last.Instructions, inst)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	// Drop the synthetic "no_method" placeholder if the file opened with a
	// real header and it stayed empty.
	if len(functions) > 1 && len(functions[0].Instructions) == 0 {
		functions = functions[1:]
	}

	return program.New(instructions, functions)
}
