/*
Copyright © 2018 the Hydro authors.
This file is part of Hydro.

Hydro is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Hydro is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Hydro.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package namelist reads Fortran namelist configuration files, such as the
// hydro.namelist and namelist.hrldas files that configure WRF-Hydro model
// runs, and computes structural differences between them.
package namelist

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// A Namelist is the parsed content of a Fortran namelist file: a mapping
// from group name to the group's settings. Group and key names are
// lowercased because Fortran is case-insensitive.
type Namelist map[string]Group

// A Group is one namelist group: a mapping from option name to value.
// Values are int64, float64, bool, string, or []interface{} holding any
// of those.
type Group map[string]interface{}

// Read reads and parses the namelist file at path.
func Read(path string) (Namelist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	nl, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("namelist: parsing %s: %v", path, err)
	}
	return nl, nil
}

// Parse parses namelist text from r.
func Parse(r io.Reader) (Namelist, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p := &parser{s: string(b)}
	return p.parse()
}

type parser struct {
	s    string
	i    int // current position
	line int // current line number, for error messages
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("line %d: %s", p.line+1, fmt.Sprintf(format, args...))
}

// skipSpace advances past whitespace and comments. Comments run from '!'
// to the end of the line.
func (p *parser) skipSpace() {
	for p.i < len(p.s) {
		c := p.s[p.i]
		switch {
		case c == '\n':
			p.line++
			p.i++
		case unicode.IsSpace(rune(c)):
			p.i++
		case c == '!':
			for p.i < len(p.s) && p.s[p.i] != '\n' {
				p.i++
			}
		default:
			return
		}
	}
}

func (p *parser) parse() (Namelist, error) {
	nl := make(Namelist)
	for {
		p.skipSpace()
		if p.i >= len(p.s) {
			return nl, nil
		}
		if p.s[p.i] != '&' && p.s[p.i] != '$' {
			return nil, p.errorf("expected start of group, got %q", p.s[p.i])
		}
		p.i++
		name := strings.ToLower(p.ident())
		if name == "" {
			return nil, p.errorf("group has no name")
		}
		g, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		nl[name] = g
	}
}

// parseGroup parses the body of one group, stopping after the terminating
// '/' or '&end'.
func (p *parser) parseGroup() (Group, error) {
	g := make(Group)
	for {
		p.skipSpace()
		if p.i >= len(p.s) {
			return nil, p.errorf("unterminated group")
		}
		switch p.s[p.i] {
		case '/':
			p.i++
			return g, nil
		case '&', '$': // &end or $end
			p.i++
			if e := strings.ToLower(p.ident()); e != "end" {
				return nil, p.errorf("expected group end, got %q", e)
			}
			return g, nil
		}
		key := strings.ToLower(p.ident())
		if key == "" {
			return nil, p.errorf("expected option name, got %q", p.s[p.i])
		}
		p.skipSpace()
		// Array element or slice syntax stays part of the key.
		if p.i < len(p.s) && p.s[p.i] == '(' {
			j := strings.IndexByte(p.s[p.i:], ')')
			if j < 0 {
				return nil, p.errorf("unterminated index on %s", key)
			}
			key += strings.Replace(p.s[p.i:p.i+j+1], " ", "", -1)
			p.i += j + 1
			p.skipSpace()
		}
		if p.i >= len(p.s) || p.s[p.i] != '=' {
			return nil, p.errorf("expected '=' after %s", key)
		}
		p.i++
		vals, err := p.parseValues()
		if err != nil {
			return nil, err
		}
		switch len(vals) {
		case 0:
			return nil, p.errorf("no value for %s", key)
		case 1:
			g[key] = vals[0]
		default:
			g[key] = vals
		}
	}
}

// parseValues parses the comma- or whitespace-separated values following
// '=', up to (but not consuming) the next 'key =' or the group terminator.
func (p *parser) parseValues() ([]interface{}, error) {
	var vals []interface{}
	for {
		p.skipSpace()
		if p.i >= len(p.s) {
			return vals, nil
		}
		switch c := p.s[p.i]; {
		case c == '/' || c == '&' || c == '$':
			return vals, nil
		case c == ',':
			p.i++
			continue
		case c == '\'' || c == '"':
			s, err := p.quoted(c)
			if err != nil {
				return nil, err
			}
			vals = append(vals, s)
		default:
			mark := p.i
			tok := p.bareToken()
			if tok == "" {
				return nil, p.errorf("unexpected character %q", c)
			}
			// A bare token followed by '=' is the next option
			// name, not a value.
			p.skipSpace()
			if p.i < len(p.s) && (p.s[p.i] == '=' || p.s[p.i] == '(') {
				p.i = mark
				return vals, nil
			}
			v, n, err := p.convert(tok)
			if err != nil {
				return nil, err
			}
			// Fortran repeat syntax: n*value.
			for ; n > 0; n-- {
				vals = append(vals, v)
			}
		}
	}
}

// ident reads an identifier: letters, digits, and underscores.
func (p *parser) ident() string {
	start := p.i
	for p.i < len(p.s) {
		c := rune(p.s[p.i])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' {
			break
		}
		p.i++
	}
	return p.s[start:p.i]
}

// bareToken reads an unquoted value token.
func (p *parser) bareToken() string {
	start := p.i
	for p.i < len(p.s) {
		c := rune(p.s[p.i])
		if unicode.IsSpace(c) || c == ',' || c == '/' || c == '!' || c == '=' || c == '(' {
			break
		}
		p.i++
	}
	return p.s[start:p.i]
}

// quoted reads a string delimited by quote, with doubled quotes as escapes.
func (p *parser) quoted(quote byte) (string, error) {
	p.i++ // opening quote
	var b strings.Builder
	for p.i < len(p.s) {
		c := p.s[p.i]
		if c == quote {
			if p.i+1 < len(p.s) && p.s[p.i+1] == quote {
				b.WriteByte(quote)
				p.i += 2
				continue
			}
			p.i++
			return b.String(), nil
		}
		if c == '\n' {
			p.line++
		}
		b.WriteByte(c)
		p.i++
	}
	return "", p.errorf("unterminated string")
}

// convert converts a bare token to its typed value, returning the value and
// the repeat count (1 unless the token uses Fortran's n*value syntax).
func (p *parser) convert(tok string) (interface{}, int, error) {
	n := 1
	if j := strings.IndexByte(tok, '*'); j > 0 {
		if r, err := strconv.Atoi(tok[:j]); err == nil {
			n = r
			tok = tok[j+1:]
		}
	}
	if i, err := strconv.ParseInt(tok, 10, 64); err == nil {
		return i, n, nil
	}
	// Fortran double-precision exponents use 'd' instead of 'e'.
	ftok := strings.Replace(strings.Replace(tok, "d", "e", 1), "D", "e", 1)
	if f, err := strconv.ParseFloat(ftok, 64); err == nil {
		return f, n, nil
	}
	switch strings.ToLower(tok) {
	case ".true.", ".t.", "t":
		return true, n, nil
	case ".false.", ".f.", "f":
		return false, n, nil
	}
	return tok, n, nil // bare string
}
