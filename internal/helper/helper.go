package helper

import (
	"errors"
	"io"
	"strings"
)

// MaxLine bounds a single request or header line.
const MaxLine = 8192

var ErrLineTooLong = errors.New("line exceeds maximum length")

// ReadUntil reads bytes up to and including c. At most limit bytes are read;
// if c has not been seen by then ErrLineTooLong is returned. On EOF the bytes
// read so far are returned together with io.EOF.
func ReadUntil(r io.ByteReader, c byte, limit int) ([]byte, error) {
	var rBytes []byte

	for len(rBytes) < limit {
		rByte, err := r.ReadByte()
		if err != nil {
			return rBytes, err
		}

		rBytes = append(rBytes, rByte)
		if rByte == c {
			return rBytes, nil
		}
	}

	return rBytes, ErrLineTooLong
}

// ReadLine reads one '\n'-terminated line, terminator included.
func ReadLine(r io.ByteReader) (string, error) {
	line, err := ReadUntil(r, '\n', MaxLine)
	return string(line), err
}

// IsBlankLine reports whether line is an empty line ("", "\n" or "\r\n").
func IsBlankLine(line string) bool {
	return strings.TrimRight(line, "\r\n") == ""
}

// HeaderName returns the field name of a header line, without the colon.
func HeaderName(line string) string {
	name, _, found := strings.Cut(line, ":")
	if !found {
		return ""
	}
	return strings.TrimSpace(name)
}
