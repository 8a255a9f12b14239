package manager

import (
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// positionToOffset computes the byte offset of an LSP position, whose
// character counts UTF-16 code units.
func positionToOffset(document string, pos protocol.Position) int {
	lines := strings.Split(document, "\n")
	// Clamp line number
	if int(pos.Line) >= len(lines) {
		return len(document)
	}
	offset := 0
	for i := uint32(0); i < pos.Line; i++ {
		offset += len(lines[i]) + 1
	}
	var charCount, byteCount int
	for _, r := range lines[pos.Line] {
		unitCount := 1
		if r > 0xFFFF {
			unitCount = 2
		}
		if uint32(charCount+unitCount) > pos.Character {
			break
		}
		charCount += unitCount
		byteCount += utf8.RuneLen(r)
	}
	return offset + byteCount
}

// applyChange applies a single content change to document. A change
// without a range replaces the whole document.
func applyChange(document string, change protocol.TextDocumentContentChangeEvent) string {
	if change.Range == nil {
		return change.Text
	}
	start := positionToOffset(document, change.Range.Start)
	end := positionToOffset(document, change.Range.End)
	if end < start {
		start, end = end, start
	}
	return document[:start] + change.Text + document[end:]
}

// endPosition returns the position just past the last character.
func endPosition(document string) protocol.Position {
	line := strings.Count(document, "\n")
	last := document[strings.LastIndex(document, "\n")+1:]
	var units uint32
	for _, r := range last {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return protocol.Position{Line: uint32(line), Character: units}
}
