package ical

import (
	"errors"
	"fmt"
	"strings"
)

// lineParser turns the token stream of one logical line into a ContentLine.
type lineParser struct {
	lex       *lexer
	token     [2]item
	peekCount int
}

// parseContentLine matches one logical line against the content-line
// grammar. Failure is a *GrammarError carrying the line verbatim.
func parseContentLine(line string) (*ContentLine, error) {
	p := &lineParser{lex: lex(line)}
	cl, err := p.parse()

	if err != nil {
		p.lex.drain()
		return nil, &GrammarError{Text: line, Reason: err.Error()}
	}

	return cl, nil
}

// next returns the next token.
func (p *lineParser) next() item {
	if p.peekCount > 0 {
		p.peekCount--
	} else {
		p.token[0] = p.lex.nextItem()
	}
	return p.token[p.peekCount]
}

// backup backs the input stream up one token.
func (p *lineParser) backup() {
	p.peekCount++
}

func (p *lineParser) parse() (*ContentLine, error) {
	name := p.next()

	if name.typ == itemError {
		return nil, errors.New(name.val)
	}

	if name.typ != itemName {
		return nil, fmt.Errorf("found %s, expected a \"name\" token", name)
	}

	// Name case is not significant and not preserved.
	cl := &ContentLine{Name: strings.ToUpper(name.val)}

	if err := p.scanParams(cl); err != nil {
		return nil, err
	}

	if it := p.next(); it.typ != itemColon {
		if it.typ == itemError {
			return nil, errors.New(it.val)
		}
		return nil, fmt.Errorf("found %s, expected \":\"", it)
	}

	value := p.next()

	if value.typ == itemError {
		return nil, errors.New(value.val)
	}

	if value.typ != itemValue {
		return nil, fmt.Errorf("found %s, expected a value", value)
	}

	cl.Value = value.val

	if it := p.next(); it.typ != itemEOF {
		if it.typ == itemError {
			return nil, errors.New(it.val)
		}
		return nil, fmt.Errorf("found %s, expected end of line", it)
	}

	return cl, nil
}

// scanParams parses the list of params inside a content-line. Each
// ";name=" opens a fresh occurrence, so a repeated param name yields
// separate entries.
func (p *lineParser) scanParams(cl *ContentLine) error {
	for {
		it := p.next()

		if it.typ != itemSemiColon {
			p.backup()
			return nil
		}

		paramName := p.next()

		if paramName.typ == itemError {
			return errors.New(paramName.val)
		}

		if paramName.typ != itemParamName {
			return fmt.Errorf("found %s, expected a param-name", paramName)
		}

		param := Parameter{Name: paramName.val}

		if it := p.next(); it.typ != itemEqual {
			if it.typ == itemError {
				return errors.New(it.val)
			}
			return fmt.Errorf("found %s, expected =", it)
		}

		if err := p.scanValues(&param); err != nil {
			return err
		}

		cl.Params = append(cl.Params, param)
	}
}

// scanValues parses a list of at least one value for a param
func (p *lineParser) scanValues(param *Parameter) error {
	paramValue := p.next()

	if paramValue.typ == itemError {
		return errors.New(paramValue.val)
	}

	if paramValue.typ != itemParamValue {
		return fmt.Errorf("found %s, expected a param-value", paramValue)
	}

	param.Values = append(param.Values, paramValue.val)

	for {
		it := p.next()

		if it.typ != itemComma {
			p.backup()
			return nil
		}

		paramValue := p.next()

		if paramValue.typ == itemError {
			return errors.New(paramValue.val)
		}

		if paramValue.typ != itemParamValue {
			return fmt.Errorf("found %s, expected a param-value", paramValue)
		}

		param.Values = append(param.Values, paramValue.val)
	}
}
