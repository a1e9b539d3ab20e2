package proto

import (
	"bytes"
	"strings"
)

// DefaultMaxLineBytes bounds a single inbound line when no limit is configured.
const DefaultMaxLineBytes = 4096

// Line is one reassembled inbound line.
// TooLong is set instead of Text when the line exceeded the splitter limit.
type Line struct {
	Text    string
	TooLong bool
}

// Splitter reassembles newline-delimited lines from arbitrary read chunks.
// It keeps the bytes of an incomplete line between calls to Feed.
// A Splitter is not safe for concurrent use.
type Splitter struct {
	max        int
	buf        []byte
	discarding bool
}

// NewSplitter returns a splitter that rejects lines longer than maxLine bytes.
func NewSplitter(maxLine int) *Splitter {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &Splitter{max: maxLine}
}

// Feed appends p to the pending buffer and returns every complete line.
// Blank lines are skipped. An overlong line yields a single TooLong entry and
// the rest of it, up to the next newline, is dropped.
func (s *Splitter) Feed(p []byte) []Line {
	var lines []Line
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			s.accumulate(p, &lines)
			return lines
		}
		chunk := p[:i]
		p = p[i+1:]

		if s.discarding {
			s.discarding = false
			continue
		}
		if len(s.buf)+len(chunk) > s.max {
			s.buf = s.buf[:0]
			lines = append(lines, Line{TooLong: true})
			continue
		}

		s.buf = append(s.buf, chunk...)
		if text := normalize(s.buf); text != "" {
			lines = append(lines, Line{Text: text})
		}
		s.buf = s.buf[:0]
	}
	return lines
}

// Pending returns the number of buffered bytes not yet forming a line.
func (s *Splitter) Pending() int {
	return len(s.buf)
}

func (s *Splitter) accumulate(p []byte, lines *[]Line) {
	if s.discarding {
		return
	}
	if len(s.buf)+len(p) > s.max {
		s.buf = s.buf[:0]
		s.discarding = true
		*lines = append(*lines, Line{TooLong: true})
		return
	}
	s.buf = append(s.buf, p...)
}

func normalize(b []byte) string {
	b = bytes.TrimSuffix(b, []byte{'\r'})
	text := strings.ToValidUTF8(string(b), "�")
	if strings.TrimSpace(text) == "" {
		return ""
	}
	return text
}
