package csv

import (
	"bytes"
	"io"
	"sort"
	"strings"
)

const scrubBlock = 64 << 10

// scrubber rewrites literal byte sequences in a stream before it reaches the
// CSV decoder. Replacement runs on whole lines only, so a pattern split
// across two reads is still matched; patterns therefore must not contain a
// newline. All patterns are applied in one pass, longest first.
type scrubber struct {
	src     io.Reader
	rep     *strings.Replacer
	buf     []byte
	partial []byte // bytes after the last newline seen so far
	out     []byte
	err     error
}

// newScrubber returns r unchanged when pairs has no usable pattern.
func newScrubber(r io.Reader, pairs map[string]string) io.Reader {
	pats := make([]string, 0, len(pairs))
	for p := range pairs {
		if p != "" && !strings.Contains(p, "\n") {
			pats = append(pats, p)
		}
	}
	if len(pats) == 0 {
		return r
	}
	sort.Slice(pats, func(i, j int) bool {
		if len(pats[i]) != len(pats[j]) {
			return len(pats[i]) > len(pats[j])
		}
		return pats[i] < pats[j]
	})
	args := make([]string, 0, 2*len(pats))
	for _, p := range pats {
		args = append(args, p, pairs[p])
	}
	return &scrubber{src: r, rep: strings.NewReplacer(args...), buf: make([]byte, scrubBlock)}
}

func (s *scrubber) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads one block and moves every complete line into out.
func (s *scrubber) fill() {
	n, err := s.src.Read(s.buf)
	s.partial = append(s.partial, s.buf[:n]...)

	if err != nil {
		s.err = err
		s.out = []byte(s.rep.Replace(string(s.partial)))
		s.partial = nil
		return
	}
	cut := bytes.LastIndexByte(s.partial, '\n') + 1
	if cut == 0 {
		return
	}
	s.out = []byte(s.rep.Replace(string(s.partial[:cut])))
	s.partial = append(s.partial[:0], s.partial[cut:]...)
}
