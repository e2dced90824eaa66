package engine

import (
	"bytes"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"
	json "github.com/goccy/go-json"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

type source struct {
	r     io.Reader
	dec   *json.Decoder
	stack []frame
}

// NewReader returns a TokenSource reading JSON from r. Object keys are
// reported as KindKey. The whole input is read and checked for syntax
// errors before the first token is returned.
func NewReader(r io.Reader) TokenSource { return &source{r: r} }

// NewBytes returns a TokenSource over b.
func NewBytes(b []byte) TokenSource { return NewReader(bytes.NewReader(b)) }

// open buffers the input and rejects malformed JSON. The token decoder
// does not check member separators on its own.
func (s *source) open() error {
	data, err := io.ReadAll(s.r)
	if err != nil {
		return err
	}
	if err := validJSON(data); err != nil {
		return err
	}
	s.dec = json.NewDecoder(bytes.NewReader(data))
	s.dec.UseNumber()
	return nil
}

func validJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return io.EOF
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if dec.More() {
		return errors.Newf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return nil
}

func (s *source) NextToken() (Token, error) {
	if s.dec == nil {
		if err := s.open(); err != nil {
			return Token{}, err
		}
	}
	tok, err := s.dec.Token()
	if err != nil {
		return Token{}, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return Token{Kind: KindBeginObject}, nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return Token{Kind: KindBeginArray}, nil
		case '}':
			s.pop()
			return Token{Kind: KindEndObject}, nil
		case ']':
			s.pop()
			return Token{Kind: KindEndArray}, nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				return Token{Kind: KindKey, String: v}, nil
			}
		}
		s.valueDone()
		return Token{Kind: KindString, String: v}, nil
	case bool:
		s.valueDone()
		return Token{Kind: KindBool, Bool: v}, nil
	case json.Number:
		s.valueDone()
		return Token{Kind: KindNumber, Number: string(v)}, nil
	case float64:
		s.valueDone()
		return Token{Kind: KindNumber, Number: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	}
	s.valueDone()
	return Token{Kind: KindNull}, nil
}

func (s *source) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

// valueDone marks the value of the enclosing object member as consumed.
func (s *source) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.kind == kindObject {
			top.expectingKey = true
		}
	}
}
