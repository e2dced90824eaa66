package engine

import (
	"io"

	"github.com/cockroachdb/errors"
)

// DuplicateKey is an object member name that occurs more than once.
type DuplicateKey struct {
	Key string
	// Pointer addresses the later occurrence.
	Pointer string
}

// DetectOptions bounds a duplicate key scan.
type DetectOptions struct {
	// MaxIssues stops the scan after that many duplicates. Zero means no
	// limit.
	MaxIssues int
	// MaxDepth fails the scan on deeper nesting. Zero means no limit.
	MaxDepth int
}

// ErrMaxDepth is returned when nesting exceeds DetectOptions.MaxDepth.
var ErrMaxDepth = errors.New("max depth exceeded")

type dupFrame struct {
	kind    containerKind
	ptr     Pointer
	keys    map[string]struct{}
	index   int
	pending string
}

// child returns the pointer of the next value inside f.
func (f *dupFrame) child() Pointer {
	if f.kind == kindArray {
		return f.ptr.Index(f.index)
	}
	return f.ptr.Field(f.pending)
}

// DetectDuplicateKeys scans src and reports repeated object member names
// in document order. Syntax errors are returned as errors; duplicates
// found before them are returned too.
func DetectDuplicateKeys(src TokenSource, opts DetectOptions) ([]DuplicateKey, error) {
	var out []DuplicateKey
	var stack []*dupFrame

	valueDone := func() {
		if n := len(stack); n > 0 && stack[n-1].kind == kindArray {
			stack[n-1].index++
		}
	}
	push := func(kind containerKind) error {
		ptr := Root
		if n := len(stack); n > 0 {
			ptr = stack[n-1].child()
		}
		if opts.MaxDepth > 0 && len(stack) >= opts.MaxDepth {
			return errors.Wrapf(ErrMaxDepth, "at %s", ptr)
		}
		f := &dupFrame{kind: kind, ptr: ptr}
		if kind == kindObject {
			f.keys = map[string]struct{}{}
		}
		stack = append(stack, f)
		return nil
	}

	for {
		tok, err := src.NextToken()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, errors.Wrap(err, "json syntax")
		}
		switch tok.Kind {
		case KindBeginObject:
			if err := push(kindObject); err != nil {
				return out, err
			}
		case KindBeginArray:
			if err := push(kindArray); err != nil {
				return out, err
			}
		case KindEndObject, KindEndArray:
			if n := len(stack); n > 0 {
				stack = stack[:n-1]
			}
			valueDone()
		case KindKey:
			top := stack[len(stack)-1]
			top.pending = tok.String
			if _, ok := top.keys[tok.String]; ok {
				out = append(out, DuplicateKey{Key: tok.String, Pointer: top.ptr.Field(tok.String).String()})
				if opts.MaxIssues > 0 && len(out) >= opts.MaxIssues {
					return out, nil
				}
			}
			top.keys[tok.String] = struct{}{}
		default:
			valueDone()
		}
	}
}
