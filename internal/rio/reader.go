package rio

import (
	"bytes"
	"io"
)

// maxConsecutiveEmptyReads bounds how many (0, nil) reads fill tolerates
// before giving up with io.ErrNoProgress.
const maxConsecutiveEmptyReads = 100

// Reader is a connection-scoped buffered reader. It owns its buffer for the
// lifetime of the connection; buffers are never shared between readers.
//
// Invariant: r+n <= len(buf).
type Reader struct {
	rd  io.Reader
	buf []byte
	r   int   // next unread byte in buf
	n   int   // unread bytes in buf
	err error // sticky error from the underlying reader
}

// NewReader returns a Reader with a DefaultBufferSize buffer.
func NewReader(rd io.Reader) *Reader {
	return NewReaderSize(rd, DefaultBufferSize)
}

// NewReaderSize returns a Reader whose buffer holds size bytes.
func NewReaderSize(rd io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Reader{
		rd:  rd,
		buf: GetBuffer(size),
	}
}

// Buffered returns the number of unread bytes held in the buffer.
func (b *Reader) Buffered() int {
	return b.n
}

// Size returns the buffer capacity.
func (b *Reader) Size() int {
	return len(b.buf)
}

// Close releases the buffer back to the pool. It does not close the
// underlying reader.
func (b *Reader) Close() error {
	if b.buf != nil {
		PutBuffer(b.buf)
		b.buf = nil
	}
	b.r, b.n = 0, 0
	return nil
}

// fill refills the empty buffer with a single underlying read. Interrupted
// reads are retried. A read that returns bytes alongside an error keeps the
// bytes and defers the error to the next fill.
func (b *Reader) fill() error {
	if b.err != nil {
		return b.err
	}
	b.r = 0
	b.n = 0

	empty := 0
	for {
		n, err := b.rd.Read(b.buf)
		if n > 0 {
			b.n = n
			if err != nil && !IsInterrupted(err) {
				b.err = err
			}
			return nil
		}
		if err != nil {
			if IsInterrupted(err) {
				continue
			}
			b.err = err
			return err
		}
		empty++
		if empty >= maxConsecutiveEmptyReads {
			b.err = io.ErrNoProgress
			return b.err
		}
	}
}

// Read copies min(len(p), Buffered()) bytes into p, refilling first when the
// buffer is empty. It implements io.Reader.
func (b *Reader) Read(p []byte) (int, error) {
	if b.buf == nil {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if b.n == 0 {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}

	cnt := copy(p, b.buf[b.r:b.r+b.n])
	b.r += cnt
	b.n -= cnt
	return cnt, nil
}

// ReadLine returns the next line including its terminating '\n', truncated
// at maxLen bytes. It returns (nil, io.EOF) when the stream ended before any
// byte was read; a final unterminated line is returned with a nil error and
// the following call reports io.EOF.
func (b *Reader) ReadLine(maxLen int) ([]byte, error) {
	if b.buf == nil {
		return nil, ErrClosed
	}
	if maxLen <= 0 {
		maxLen = smallBufferSize
	}

	var line []byte
	for len(line) < maxLen {
		if b.n == 0 {
			if err := b.fill(); err != nil {
				if err == io.EOF && len(line) > 0 {
					return line, nil
				}
				return line, err
			}
		}

		chunk := b.buf[b.r : b.r+b.n]
		if room := maxLen - len(line); len(chunk) > room {
			chunk = chunk[:room]
		}
		if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
			chunk = chunk[:i+1]
		}

		line = append(line, chunk...)
		b.r += len(chunk)
		b.n -= len(chunk)

		if line[len(line)-1] == '\n' {
			return line, nil
		}
	}
	return line, nil
}

// ReadExact reads n bytes. It returns fewer only when the stream ends first:
// io.ErrUnexpectedEOF after a partial read, io.EOF when nothing was read.
func (b *Reader) ReadExact(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}

	out := make([]byte, n)
	got := 0
	for got < n {
		m, err := b.Read(out[got:])
		got += m
		if err == io.EOF {
			break
		}
		if err != nil {
			return out[:got], err
		}
	}

	switch {
	case got == n:
		return out, nil
	case got == 0:
		return nil, io.EOF
	default:
		return out[:got], io.ErrUnexpectedEOF
	}
}
