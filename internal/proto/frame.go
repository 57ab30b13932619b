package proto

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrFrameTooLarge is returned when a line exceeds the reader's limit. The
// stream cannot be resynchronized after it.
var ErrFrameTooLarge = errors.New("frame too large")

// FrameReader splits a byte stream into newline-delimited documents.
type FrameReader struct {
	r   *bufio.Reader
	max int
}

// NewFrameReader reads frames of at most maxBytes (excluding the newline).
func NewFrameReader(r io.Reader, maxBytes int) *FrameReader {
	return &FrameReader{r: bufio.NewReaderSize(r, 4096), max: maxBytes}
}

// ReadFrame returns the next non-empty line without its terminator.
// A final line without a trailing newline is returned before io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		line, err := fr.readLine()
		if err != nil && (len(line) == 0 || !errors.Is(err, io.EOF)) {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r")
		if len(bytes.TrimSpace(line)) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}
		return line, nil
	}
}

func (fr *FrameReader) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := fr.r.ReadSlice('\n')
		if len(buf)+len(chunk) > fr.max+2 { // room for "\r\n"
			return nil, fmt.Errorf("%w: limit %d bytes", ErrFrameTooLarge, fr.max)
		}
		buf = append(buf, chunk...)
		switch {
		case err == nil:
			line := bytes.TrimSuffix(buf[:len(buf)-1], []byte("\r"))
			if len(line) > fr.max {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrFrameTooLarge, fr.max)
			}
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		default:
			if len(bytes.TrimSuffix(buf, []byte("\r"))) > fr.max {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrFrameTooLarge, fr.max)
			}
			return buf, err
		}
	}
}

// FrameWriter writes one document per line.
type FrameWriter struct {
	w io.Writer
}

// NewFrameWriter wraps w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w}
}

// WriteFrame writes payload followed by a newline in a single Write call.
// Payload must not contain a raw newline; encoding/json output never does.
func (fw *FrameWriter) WriteFrame(payload []byte) error {
	if bytes.IndexByte(payload, '\n') >= 0 {
		return errors.New("frame contains newline")
	}
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, '\n')
	_, err := fw.w.Write(buf)
	return err
}
