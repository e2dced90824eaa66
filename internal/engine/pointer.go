package engine

import (
	"strconv"
	"strings"
)

// Pointer is an immutable RFC 6901 JSON Pointer.
type Pointer struct {
	parts []string
}

// Root is the empty pointer. It addresses the whole document and renders
// as "".
var Root = Pointer{}

// Field returns p extended by an object member name.
func (p Pointer) Field(name string) Pointer {
	esc := strings.ReplaceAll(strings.ReplaceAll(name, "~", "~0"), "/", "~1")
	return Pointer{parts: append(p.parts[:len(p.parts):len(p.parts)], esc)}
}

// Index returns p extended by an array index.
func (p Pointer) Index(i int) Pointer {
	return Pointer{parts: append(p.parts[:len(p.parts):len(p.parts)], strconv.Itoa(i))}
}

func (p Pointer) String() string {
	if len(p.parts) == 0 {
		return ""
	}
	return "/" + strings.Join(p.parts, "/")
}

// At builds a pointer from member names and indices, for example
// At("accessors", 2, "bufferView").
func At(segments ...any) Pointer {
	var p Pointer
	for _, s := range segments {
		switch v := s.(type) {
		case int:
			p = p.Index(v)
		case string:
			p = p.Field(v)
		}
	}
	return p
}
