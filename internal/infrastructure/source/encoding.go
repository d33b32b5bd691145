package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encodings reported by readers and the profiler
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-sig"
	EncodingWindows1252 = "windows-1252"
)

const sniffSize = 4096

// content is a UTF-8 view of a raw file plus what was detected on the way in
type content struct {
	reader   *bufio.Reader
	encoding string
	head     []byte // leading bytes as stored, BOM removed
}

// prepare strips a UTF-8 BOM and validates the leading bytes. Non-UTF-8 input
// is decoded as Windows-1252 when legacy is set.
func prepare(r io.Reader, legacy bool) (*content, error) {
	br := bufio.NewReaderSize(r, sniffSize)
	enc := EncodingUTF8

	bom, err := br.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(bom) == 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
		enc = EncodingUTF8BOM
	}

	head, err := br.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyFile
	}
	head = append([]byte(nil), head...)

	if validUTF8Prefix(head, len(head) == sniffSize) {
		return &content{reader: br, encoding: enc, head: head}, nil
	}
	if !legacy {
		return nil, ErrInvalidEncoding
	}
	decoded := bufio.NewReader(transform.NewReader(br, charmap.Windows1252.NewDecoder()))
	return &content{reader: decoded, encoding: EncodingWindows1252, head: head}, nil
}

// validUTF8Prefix ignores a rune cut off at the end of a truncated peek
func validUTF8Prefix(b []byte, truncated bool) bool {
	if truncated && len(b) > 0 {
		i := len(b) - 1
		for i > 0 && len(b)-i < utf8.UTFMax && !utf8.RuneStart(b[i]) {
			i--
		}
		if !utf8.FullRune(b[i:]) {
			b = b[:i]
		}
	}
	return utf8.Valid(b)
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate occurring most often outside quotes on
// the first line, defaulting to a comma
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, c := range string(line) {
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[c]++
		}
	}
	best, bestCount := ',', 0
	for _, d := range delimiterCandidates {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
