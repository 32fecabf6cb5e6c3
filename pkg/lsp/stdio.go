package lsp

import (
	"bufio"
	"io"
	"sync"

	"go.uber.org/multierr"
)

// Stdio joins the process input and output into the single stream the
// JSON-RPC connection reads and writes. Every write is flushed, the editor
// waits on complete messages.
type Stdio struct {
	in  *bufio.Reader
	out *bufio.Writer

	wmu     sync.Mutex
	closers []io.Closer
}

var _ io.ReadWriteCloser = (*Stdio)(nil)

func NewStdio(in io.ReadCloser, out io.WriteCloser) *Stdio {
	return &Stdio{
		in:      bufio.NewReader(in),
		out:     bufio.NewWriter(out),
		closers: []io.Closer{in, out},
	}
}

// Read is only called from the connection's read loop.
func (s *Stdio) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s *Stdio) Write(p []byte) (int, error) {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	n, err := s.out.Write(p)
	if err != nil {
		return n, err
	}
	return n, s.out.Flush()
}

func (s *Stdio) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
