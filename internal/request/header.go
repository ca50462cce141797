package httpRequest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"httpProxy/internal/helper"
)

// injectedHeaders are always written by the proxy itself, so the client's
// copies are dropped.
var injectedHeaders = []string{"Host", "User-Agent", "Proxy-Connection", "Connection"}

// ForwardHeader reports whether a client header line should be passed upstream.
func ForwardHeader(line string) bool {
	name := helper.HeaderName(line)
	for _, injected := range injectedHeaders {
		if strings.EqualFold(name, injected) {
			return false
		}
	}
	return true
}

// CopyHeaders reads header lines up to the first empty line (or EOF) and
// writes every forwardable one to w verbatim. The empty line is not written.
func CopyHeaders(reader io.ByteReader, w io.Writer) (int, error) {
	forwarded := 0

	for {
		line, err := helper.ReadLine(reader)
		if errors.Is(err, io.EOF) {
			return forwarded, nil
		}
		if err != nil {
			return forwarded, fmt.Errorf("can't read header: %w", err)
		}
		if helper.IsBlankLine(line) {
			return forwarded, nil
		}
		if !ForwardHeader(line) {
			continue
		}

		if _, err := io.WriteString(w, line); err != nil {
			return forwarded, fmt.Errorf("can't forward header: %w", err)
		}
		forwarded++
	}
}

// ReadHeaders reads the rest of the client's request head and returns the
// forwardable lines. A client that stops sending before the empty line
// yields a read error rather than a partial head.
func ReadHeaders(reader io.ByteReader) ([]byte, error) {
	var head bytes.Buffer
	if _, err := CopyHeaders(reader, &head); err != nil {
		return nil, err
	}
	return head.Bytes(), nil
}
