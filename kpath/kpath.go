// Package kpath addresses locations in a structured state document.
//
// Two concrete syntaxes are accepted: slash-delimited ("/a/b/0") and
// dot/bracket-delimited ("a.b[0]", "a.b.0"). Parsing is total: any token
// that does not look like an integer index or the append marker is a
// string key. The canonical rendering is the dot/bracket form.
package kpath

import (
	"strconv"
	"strings"
)

type Kind int

const (
	KeyKind Kind = iota
	IndexKind
	AppendKind
)

func (k Kind) String() string {
	s, ok := map[Kind]string{
		KeyKind:    "Key",
		IndexKind:  "Index",
		AppendKind: "Append",
	}[k]
	if ok {
		return s
	}
	return "<unknown kind>"
}

// AppendToken is the literal segment addressing one past the end of a
// sequence. It is distinct from every integer index, including negative
// ones: "-1" parses as an ordinary (out of range) index, not as the last
// element.
const AppendToken = "-"

type Seg struct {
	Kind  Kind
	Key   string
	Index int
}

func Key(k string) Seg {
	return Seg{Kind: KeyKind, Key: k}
}

func Index(i int) Seg {
	return Seg{Kind: IndexKind, Index: i}
}

func Append() Seg {
	return Seg{Kind: AppendKind}
}

type Path []Seg

// Parse converts a path string into segments. It never fails: unparseable
// tokens become string keys. Empty tokens are dropped. RFC 6901 escapes
// ("~0", "~1") are not interpreted.
func Parse(p string) Path {
	if strings.HasPrefix(p, "/") {
		return parseSlash(p)
	}
	return parseDotBracket(p)
}

func parseSlash(p string) Path {
	parts := strings.Split(p, "/")
	res := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		res = append(res, segOf(part))
	}
	return res
}

func parseDotBracket(p string) Path {
	res := Path{}
	var tok strings.Builder
	flush := func() {
		if tok.Len() == 0 {
			return
		}
		res = append(res, segOf(tok.String()))
		tok.Reset()
	}
	i := 0
	for i < len(p) {
		switch p[i] {
		case '.':
			flush()
			i++
		case '[':
			flush()
			j := strings.IndexByte(p[i+1:], ']')
			if j == -1 {
				// unbalanced bracket, treat the rest as one token
				tok.WriteString(p[i:])
				i = len(p)
				continue
			}
			inner := p[i+1 : i+1+j]
			if inner != "" {
				res = append(res, segOf(inner))
			}
			i += j + 2
		default:
			tok.WriteByte(p[i])
			i++
		}
	}
	flush()
	return res
}

func segOf(tok string) Seg {
	if tok == AppendToken {
		return Append()
	}
	if i, err := strconv.Atoi(tok); err == nil {
		return Index(i)
	}
	return Key(tok)
}

// String renders the canonical dot/bracket form: keys joined with dots,
// indices as "[i]", the append marker as "[-]".
func (p Path) String() string {
	var buf strings.Builder
	for i, seg := range p {
		switch seg.Kind {
		case KeyKind:
			if i > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(seg.Key)
		case IndexKind:
			buf.WriteByte('[')
			buf.WriteString(strconv.Itoa(seg.Index))
			buf.WriteByte(']')
		case AppendKind:
			buf.WriteString("[-]")
		default:
			panic("kind")
		}
	}
	return buf.String()
}

// Normalize parses p and renders it canonically.
func Normalize(p string) string {
	return Parse(p).String()
}
