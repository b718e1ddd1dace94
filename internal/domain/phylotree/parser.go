package phylotree

import (
	"strconv"
	"strings"

	"github.com/orthoatlas/orthoatlas/pkg/errors"
)

// ParseNewick parses a Newick tree string and returns the indexed tree.
//
// The accepted subset covers the files this engine loads: arbitrary nesting,
// branch lengths after ':', quoted labels with '' escaping, bracketed
// comments, and internal node labels.  A purely numeric internal label is
// treated as a clade support value, an unquoted convention most tree
// builders follow.
func ParseNewick(src string) (*Tree, error) {
	p := &parser{src: src}
	if err := p.skipLayout(); err != nil {
		return nil, err
	}
	if p.eof() {
		return nil, errors.New(errors.ErrCodeTreeEmptyInput, "empty newick input")
	}

	root, err := p.parseSubtree()
	if err != nil {
		return nil, err
	}
	if err := p.skipLayout(); err != nil {
		return nil, err
	}
	if p.eof() || p.src[p.pos] != ';' {
		return nil, errors.Newf(errors.ErrCodeTreeParseFailed, "missing ';' terminator at offset %d", p.pos)
	}
	p.pos++
	if err := p.skipLayout(); err != nil {
		return nil, err
	}
	if !p.eof() {
		return nil, errors.Newf(errors.ErrCodeTreeParseFailed, "trailing data at offset %d", p.pos)
	}

	return NewTree(root)
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

// skipLayout advances past whitespace and bracketed comments.
func (p *parser) skipLayout() error {
	for !p.eof() {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == '[':
			end := strings.IndexByte(p.src[p.pos:], ']')
			if end < 0 {
				return errors.Newf(errors.ErrCodeTreeParseFailed, "unterminated comment at offset %d", p.pos)
			}
			p.pos += end + 1
		default:
			return nil
		}
	}
	return nil
}

func (p *parser) parseSubtree() (*Node, error) {
	if err := p.skipLayout(); err != nil {
		return nil, err
	}
	if !p.eof() && p.src[p.pos] == '(' {
		return p.parseInternal()
	}
	return p.parseLeaf()
}

func (p *parser) parseInternal() (*Node, error) {
	p.pos++ // '('
	n := &Node{}
	for {
		child, err := p.parseSubtree()
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, child)

		if err := p.skipLayout(); err != nil {
			return nil, err
		}
		if p.eof() {
			return nil, errors.New(errors.ErrCodeTreeParseFailed, "unbalanced parentheses: unexpected end of input")
		}
		if p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.src[p.pos] == ')' {
			p.pos++
			break
		}
		return nil, errors.Newf(errors.ErrCodeTreeParseFailed, "unexpected %q at offset %d", p.src[p.pos], p.pos)
	}

	label, quoted, err := p.parseLabel()
	if err != nil {
		return nil, err
	}
	if label != "" {
		if v, numErr := strconv.ParseFloat(label, 64); numErr == nil && !quoted {
			n.Support = v
			n.HasSupport = true
		} else {
			n.Name = label
		}
	}
	if err := p.parseLength(n); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *parser) parseLeaf() (*Node, error) {
	n := &Node{}
	label, _, err := p.parseLabel()
	if err != nil {
		return nil, err
	}
	n.Name = label
	if err := p.parseLength(n); err != nil {
		return nil, err
	}
	return n, nil
}

// parseLabel reads an optional node label.  The second return value reports
// whether the label was quoted, which exempts it from support-value parsing.
func (p *parser) parseLabel() (string, bool, error) {
	if err := p.skipLayout(); err != nil {
		return "", false, err
	}
	if p.eof() {
		return "", false, nil
	}
	if p.src[p.pos] == '\'' {
		return p.parseQuotedLabel()
	}

	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c == '(' || c == ')' || c == ',' || c == ':' || c == ';' ||
			c == '[' || c == ']' || c == '\'' ||
			c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos], false, nil
}

func (p *parser) parseQuotedLabel() (string, bool, error) {
	p.pos++ // opening quote
	var b strings.Builder
	for {
		if p.eof() {
			return "", true, errors.New(errors.ErrCodeTreeParseFailed, "unterminated quoted label")
		}
		c := p.src[p.pos]
		if c == '\'' {
			// '' inside a quoted label is an escaped quote.
			if p.pos+1 < len(p.src) && p.src[p.pos+1] == '\'' {
				b.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return b.String(), true, nil
		}
		b.WriteByte(c)
		p.pos++
	}
}

func (p *parser) parseLength(n *Node) error {
	if err := p.skipLayout(); err != nil {
		return err
	}
	if p.eof() || p.src[p.pos] != ':' {
		return nil
	}
	p.pos++
	if err := p.skipLayout(); err != nil {
		return err
	}

	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	raw := p.src[start:p.pos]
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return errors.Newf(errors.ErrCodeTreeParseFailed, "invalid branch length %q at offset %d", raw, start)
	}
	n.Length = v
	return nil
}
