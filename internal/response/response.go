package httpResponse

import (
	"io"
)

// Status lines sent to clients on local failures. The 400 and 501 lines are
// byte-exact with what existing clients of this proxy expect.
const (
	BadRequest     = "HTTP/1.0 400 Bad request\n"
	NotImplemented = "HTTP/1.0 501 Not implemented"
	Forbidden      = "HTTP/1.0 403 Forbidden\r\n\r\n"
	BadGateway     = "HTTP/1.0 502 Bad gateway\r\n\r\n"
)

func WriteBadRequest(w io.Writer) error {
	_, err := io.WriteString(w, BadRequest)
	return err
}

func WriteNotImplemented(w io.Writer) error {
	_, err := io.WriteString(w, NotImplemented)
	return err
}

func WriteForbidden(w io.Writer) error {
	_, err := io.WriteString(w, Forbidden)
	return err
}

func WriteBadGateway(w io.Writer) error {
	_, err := io.WriteString(w, BadGateway)
	return err
}
