package conversation

import (
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// FragmentReader yields the text of a response body piece by piece.
// Next returns io.EOF once the body ended cleanly; any other error means the
// stream was cut short.
type FragmentReader interface {
	Next() (string, error)
}

type utf8Fragments struct {
	r   io.Reader
	buf []byte
	err error
}

// NewFragmentReader decodes r as UTF-8. A rune split across reads is held
// back until it is complete; invalid bytes become U+FFFD.
func NewFragmentReader(r io.Reader) FragmentReader {
	return &utf8Fragments{
		r:   transform.NewReader(r, unicode.UTF8.NewDecoder()),
		buf: make([]byte, 4096),
	}
}

func (d *utf8Fragments) Next() (string, error) {
	for d.err == nil {
		n, err := d.r.Read(d.buf)
		d.err = err
		if n > 0 {
			return string(d.buf[:n]), nil
		}
	}
	return "", d.err
}
