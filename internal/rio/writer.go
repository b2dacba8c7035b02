package rio

import "io"

// Writer writes every byte it is handed, retrying interrupted and short
// writes on the underlying destination.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (int, error) {
	return WriteFull(w.w, p)
}

// ReadFrom streams r to the destination. A destination that implements
// io.ReaderFrom (a TCP connection) gets the whole transfer, which lets the
// kernel use sendfile for regular files.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	if rf, ok := w.w.(io.ReaderFrom); ok {
		return rf.ReadFrom(r)
	}

	buf := GetBuffer(largeBufferSize)
	defer PutBuffer(buf)

	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			m, werr := WriteFull(w.w, buf[:n])
			total += int64(m)
			if werr != nil {
				return total, werr
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			if IsInterrupted(err) {
				continue
			}
			return total, err
		}
	}
}

// WriteFull writes all of p to w. Interrupted writes are retried; a write
// that makes no progress without an error yields io.ErrShortWrite.
func WriteFull(w io.Writer, p []byte) (int, error) {
	written := 0
	for written < len(p) {
		n, err := w.Write(p[written:])
		written += n
		if err != nil {
			if IsInterrupted(err) {
				continue
			}
			return written, err
		}
		if n == 0 {
			return written, io.ErrShortWrite
		}
	}
	return written, nil
}
