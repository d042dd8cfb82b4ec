// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package badge

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Sink receives the argument of every document.write call, in call order.
type Sink interface {
	Write(fragment string)
}

// Capture is a Sink that keeps every fragment.
type Capture struct {
	parts []string
}

// Write appends a fragment.
func (c *Capture) Write(fragment string) {
	c.parts = append(c.parts, fragment)
}

// Len returns the number of captured fragments.
func (c *Capture) Len() int {
	return len(c.parts)
}

// Markup returns all fragments concatenated in call order.
func (c *Capture) Markup() Markup {
	return Markup(strings.Join(c.parts, ""))
}

// EvaluationError reports a payload construct that is not a plain
// document.write call with string literal arguments.
type EvaluationError struct {
	Offset int
	Reason string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("badge payload: %s at offset %d", e.Reason, e.Offset)
}

// Evaluate reads a badge script payload without executing it.
//
// The accepted language is a sequence of statements of the form
//
//	[window.]document.write(arg, ...);
//	[window.]document.writeln(arg, ...);
//
// where each arg is a string literal or a "+" concatenation of string
// literals. Empty statements, comments and directive prologues such as
// "use strict" are skipped. Every call hands its joined arguments to sink;
// writeln appends a newline. Anything else yields an *EvaluationError.
func Evaluate(payload string, sink Sink) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &EvaluationError{Reason: fmt.Sprintf("sink panicked: %v", r)}
		}
	}()

	p := &parser{lex: lexer{src: payload}}
	return p.run(sink)
}

type parser struct {
	lex  lexer
	peek *token
}

func (p *parser) next() (token, error) {
	if p.peek != nil {
		t := *p.peek
		p.peek = nil
		return t, nil
	}
	return p.lex.next()
}

func (p *parser) unread(t token) {
	p.peek = &t
}

func (p *parser) expectPunct(r byte) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind != tokPunct || t.text[0] != r {
		return &EvaluationError{Offset: t.pos, Reason: fmt.Sprintf("expected %q, found %s", r, t)}
	}
	return nil
}

func (p *parser) expectIdent(names ...string) (string, error) {
	t, err := p.next()
	if err != nil {
		return "", err
	}
	if t.kind == tokIdent {
		for _, n := range names {
			if t.text == n {
				return n, nil
			}
		}
	}
	return "", &EvaluationError{Offset: t.pos, Reason: fmt.Sprintf("expected %s, found %s", strings.Join(names, " or "), t)}
}

func (p *parser) run(sink Sink) error {
	for {
		t, err := p.next()
		if err != nil {
			return err
		}

		switch {
		case t.kind == tokEOF:
			return nil
		case t.kind == tokPunct && t.text == ";":
			continue
		case t.kind == tokString:
			// Directive prologue, e.g. "use strict";
			if err := p.endStatement(); err != nil {
				return err
			}
		case t.kind == tokIdent && (t.text == "document" || t.text == "window"):
			p.unread(t)
			if err := p.writeCall(sink); err != nil {
				return err
			}
		default:
			return &EvaluationError{Offset: t.pos, Reason: fmt.Sprintf("unsupported statement starting with %s", t)}
		}
	}
}

func (p *parser) writeCall(sink Sink) error {
	first, err := p.expectIdent("window", "document")
	if err != nil {
		return err
	}
	if first == "window" {
		if err := p.expectPunct('.'); err != nil {
			return err
		}
		if _, err := p.expectIdent("document"); err != nil {
			return err
		}
	}
	if err := p.expectPunct('.'); err != nil {
		return err
	}
	method, err := p.expectIdent("write", "writeln")
	if err != nil {
		return err
	}
	if err := p.expectPunct('('); err != nil {
		return err
	}

	args, err := p.arguments()
	if err != nil {
		return err
	}
	if method == "writeln" {
		args += "\n"
	}
	sink.Write(args)

	return p.endStatement()
}

// arguments parses the argument list up to and including the closing paren.
func (p *parser) arguments() (string, error) {
	var sb strings.Builder

	t, err := p.next()
	if err != nil {
		return "", err
	}
	if t.kind == tokPunct && t.text == ")" {
		return "", nil
	}
	p.unread(t)

	for {
		s, err := p.concatenation()
		if err != nil {
			return "", err
		}
		sb.WriteString(s)

		t, err := p.next()
		if err != nil {
			return "", err
		}
		if t.kind == tokPunct && t.text == ")" {
			return sb.String(), nil
		}
		if t.kind != tokPunct || t.text != "," {
			return "", &EvaluationError{Offset: t.pos, Reason: fmt.Sprintf("expected ',' or ')', found %s", t)}
		}
	}
}

// concatenation parses string ('+' string)*.
func (p *parser) concatenation() (string, error) {
	var sb strings.Builder
	for {
		t, err := p.next()
		if err != nil {
			return "", err
		}
		if t.kind != tokString {
			return "", &EvaluationError{Offset: t.pos, Reason: fmt.Sprintf("expected string literal, found %s", t)}
		}
		sb.WriteString(t.text)

		t, err = p.next()
		if err != nil {
			return "", err
		}
		if t.kind != tokPunct || t.text != "+" {
			p.unread(t)
			return sb.String(), nil
		}
	}
}

// endStatement accepts ';', EOF, or a following statement on a new line.
func (p *parser) endStatement() error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.kind == tokEOF || (t.kind == tokPunct && t.text == ";") {
		if t.kind == tokEOF {
			p.unread(t)
		}
		return nil
	}
	if t.newlineBefore {
		p.unread(t)
		return nil
	}
	return &EvaluationError{Offset: t.pos, Reason: fmt.Sprintf("expected end of statement, found %s", t)}
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokPunct
)

type token struct {
	kind          tokenKind
	text          string
	pos           int
	newlineBefore bool
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of payload"
	case tokString:
		return "string literal"
	default:
		return strconv.Quote(t.text)
	}
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) next() (token, error) {
	newline, err := l.skipSpaceAndComments()
	if err != nil {
		return token{}, err
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start, newlineBefore: newline}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '\'' || c == '"' || c == '`':
		s, err := l.stringLiteral(c)
		if err != nil {
			return token{}, err
		}
		return token{kind: tokString, text: s, pos: start, newlineBefore: newline}, nil
	case strings.IndexByte(".(),+;", c) >= 0:
		l.pos++
		return token{kind: tokPunct, text: string(c), pos: start, newlineBefore: newline}, nil
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], pos: start, newlineBefore: newline}, nil
	default:
		r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
		return token{}, &EvaluationError{Offset: start, Reason: fmt.Sprintf("unexpected character %q", r)}
	}
}

func (l *lexer) skipSpaceAndComments() (bool, error) {
	newline := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n' || c == '\r':
			newline = true
			l.pos++
		case c == ' ' || c == '\t' || c == '\f' || c == '\v':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "\uFEFF"):
			l.pos += len("\uFEFF")
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexAny(l.src[l.pos:], "\r\n")
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				return false, &EvaluationError{Offset: l.pos, Reason: "unterminated comment"}
			}
			if strings.ContainsAny(l.src[l.pos:l.pos+2+end], "\r\n") {
				newline = true
			}
			l.pos += end + 4
		default:
			return newline, nil
		}
	}
	return newline, nil
}

func (l *lexer) stringLiteral(quote byte) (string, error) {
	start := l.pos
	l.pos++ // opening quote
	var sb strings.Builder

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			return sb.String(), nil
		case c == '\\':
			if err := l.escape(&sb); err != nil {
				return "", err
			}
		case quote == '`' && strings.HasPrefix(l.src[l.pos:], "${"):
			return "", &EvaluationError{Offset: l.pos, Reason: "template substitution is not supported"}
		case (c == '\n' || c == '\r') && quote != '`':
			return "", &EvaluationError{Offset: l.pos, Reason: "newline in string literal"}
		default:
			sb.WriteByte(c)
			l.pos++
		}
	}
	return "", &EvaluationError{Offset: start, Reason: "unterminated string literal"}
}

func (l *lexer) escape(sb *strings.Builder) error {
	start := l.pos
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return &EvaluationError{Offset: start, Reason: "unterminated escape sequence"}
	}

	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		sb.WriteByte('\n')
	case 'r':
		sb.WriteByte('\r')
	case 't':
		sb.WriteByte('\t')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		if l.pos < len(l.src) && l.src[l.pos] >= '0' && l.src[l.pos] <= '9' {
			return &EvaluationError{Offset: start, Reason: "octal escape is not supported"}
		}
		sb.WriteByte(0)
	case '\r':
		// line continuation, \r\n counts as one line terminator
		if l.pos < len(l.src) && l.src[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
		// line continuation
	case 'x':
		r, err := l.hex(2, start)
		if err != nil {
			return err
		}
		sb.WriteRune(r)
	case 'u':
		r, err := l.unicodeEscape(start)
		if err != nil {
			return err
		}
		sb.WriteRune(r)
	default:
		// \' \" \\ \/ and any other character stand for themselves.
		l.pos--
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		l.pos += size
		sb.WriteRune(r)
	}
	return nil
}

func (l *lexer) unicodeEscape(start int) (rune, error) {
	if l.pos < len(l.src) && l.src[l.pos] == '{' {
		end := strings.IndexByte(l.src[l.pos:], '}')
		if end < 2 {
			return 0, &EvaluationError{Offset: start, Reason: "invalid unicode escape"}
		}
		v, err := strconv.ParseUint(l.src[l.pos+1:l.pos+end], 16, 32)
		if err != nil || v > utf8.MaxRune {
			return 0, &EvaluationError{Offset: start, Reason: "invalid unicode escape"}
		}
		l.pos += end + 1
		return rune(v), nil
	}

	r, err := l.hex(4, start)
	if err != nil {
		return 0, err
	}
	// Surrogate pair written as two \u escapes.
	if r >= 0xD800 && r <= 0xDBFF && strings.HasPrefix(l.src[l.pos:], "\\u") {
		save := l.pos
		l.pos += 2
		lo, err := l.hex(4, start)
		if err == nil && lo >= 0xDC00 && lo <= 0xDFFF {
			return (r-0xD800)<<10 + (lo - 0xDC00) + 0x10000, nil
		}
		l.pos = save
	}
	return r, nil
}

func (l *lexer) hex(n, start int) (rune, error) {
	if l.pos+n > len(l.src) {
		return 0, &EvaluationError{Offset: start, Reason: "truncated escape sequence"}
	}
	v, err := strconv.ParseUint(l.src[l.pos:l.pos+n], 16, 32)
	if err != nil {
		return 0, &EvaluationError{Offset: start, Reason: "invalid hex escape"}
	}
	l.pos += n
	return rune(v), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
