// loader.go - Intel HEX program loader and symbol file parser

/*
(c) 2024 - 2026 sirosiro
https://github.com/sirosiro/RetroCoreTracer
License: GPLv3 or later
*/

package main

import (
	"bufio"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Intel HEX record types.
const (
	hexRecData           = 0x00
	hexRecEOF            = 0x01
	hexRecExtSegment     = 0x02
	hexRecExtLinearAddr  = 0x04
	hexRecStartLinearVal = 0x05
)

// LoadHex programs the bus through the privileged load path, so loading a
// ROM image works and nothing lands in the access log. A ';' starts a
// comment; segment and start-address records are accepted and ignored.
func LoadHex(bus *MachineBus, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	extBase := uint32(0)

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line[0] != ':' {
			return errors.Errorf("line %d: missing ':' record mark", lineNo)
		}
		if len(line) < 11 {
			return errors.Errorf("line %d: record too short", lineNo)
		}

		raw, err := hex.DecodeString(line[1:])
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
		count := int(raw[0])
		if len(raw) != 5+count {
			return errors.Errorf("line %d: byte count %d does not match record length", lineNo, count)
		}

		sum := byte(0)
		for _, b := range raw[:len(raw)-1] {
			sum += b
		}
		if byte(-sum) != raw[len(raw)-1] {
			return errors.Errorf("line %d: checksum mismatch", lineNo)
		}

		addr := uint16(raw[1])<<8 | uint16(raw[2])
		recType := raw[3]
		data := raw[4 : 4+count]

		switch recType {
		case hexRecData:
			for i, b := range data {
				target := extBase + uint32(addr) + uint32(i)
				if target > 0xFFFF {
					return errors.Errorf("line %d: address %#x beyond the 64K bus", lineNo, target)
				}
				if err := bus.Load(uint16(target), b); err != nil {
					return errors.Wrapf(err, "line %d", lineNo)
				}
			}
		case hexRecEOF:
			return nil
		case hexRecExtLinearAddr:
			if count != 2 {
				return errors.Errorf("line %d: bad extended linear address record", lineNo)
			}
			extBase = (uint32(data[0])<<8 | uint32(data[1])) << 16
		case hexRecExtSegment, hexRecStartLinearVal:
			// Harmless in a flat 64K model.
		default:
			return errors.Errorf("line %d: unknown record type %#02x", lineNo, recType)
		}
	}
	return scanner.Err()
}

func LoadHexFile(bus *MachineBus, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open hex file")
	}
	defer f.Close()
	return errors.Wrapf(LoadHex(bus, f), "load %s", path)
}

// ParseSymbols reads NAME=VALUE lines into a SymbolMap. Values take the
// same $hex/0xhex/decimal forms the monitor accepts; '#' and ';' start
// comments.
func ParseSymbols(r io.Reader) (SymbolMap, error) {
	symbols := SymbolMap{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexAny(line, "#;"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.Index(line, "=")
		if eq < 0 {
			return nil, errors.Errorf("line %d: expected NAME=VALUE", lineNo)
		}
		name := strings.TrimSpace(line[:eq])
		value, ok := parseNumeric(line[eq+1:])
		if name == "" || !ok || value > 0xFFFF {
			return nil, errors.Errorf("line %d: bad symbol %q", lineNo, line)
		}
		symbols[name] = uint16(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return symbols, nil
}

func LoadSymbolFile(path string) (SymbolMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open symbol file")
	}
	defer f.Close()
	symbols, err := ParseSymbols(f)
	return symbols, errors.Wrapf(err, "load %s", path)
}
