package odata

import (
	"strings"
	"time"

	"github.com/honua-io/Honua.Server-sub000/filter"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenDateTime
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	Type  tokenType
	Value string
	Pos   int
}

// lex splits an OData $filter expression into tokens. Operator keywords
// (eq, ne, and, or, ...) come out as identifiers and are recognized by
// the parser. Unquoted datetimeoffset literals are classified here.
func lex(input string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(input)
	for i < n {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '(':
			tokens = append(tokens, token{tokenLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRParen, ")", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokenComma, ",", i})
			i++

		case c == '\'':
			start := i
			i++
			var sb strings.Builder
			closed := false
			for i < n {
				if input[i] == '\'' {
					if i+1 < n && input[i+1] == '\'' {
						sb.WriteByte('\'')
						i += 2
						continue
					}
					i++
					closed = true
					break
				}
				sb.WriteByte(input[i])
				i++
			}
			if !closed {
				return nil, &filter.SyntaxError{Offset: start, Message: "unterminated string literal"}
			}
			tokens = append(tokens, token{tokenString, sb.String(), start})

		case c >= '0' && c <= '9' || (c == '-' && i+1 < n && input[i+1] >= '0' && input[i+1] <= '9'):
			start := i
			if c == '-' {
				i++
			}
			for i < n && isTemporalOrNumber(input[i]) {
				i++
			}
			text := input[start:i]
			tokens = append(tokens, classifyNumeric(text, start))

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, token{tokenIdent, input[start:i], start})

		default:
			return nil, &filter.SyntaxError{Offset: i, Message: "unexpected character"}
		}
	}
	tokens = append(tokens, token{tokenEOF, "", n})
	return tokens, nil
}

// classifyNumeric distinguishes unquoted datetimeoffset and date
// literals from plain numbers.
func classifyNumeric(text string, pos int) token {
	if strings.ContainsAny(text, "T:") || strings.Count(text, "-") >= 2 {
		if _, err := time.Parse(time.RFC3339, text); err == nil {
			return token{tokenDateTime, text, pos}
		}
		if _, err := time.Parse("2006-01-02", text); err == nil {
			return token{tokenDateTime, text, pos}
		}
	}
	return token{tokenNumber, text, pos}
}

func isTemporalOrNumber(c byte) bool {
	return c >= '0' && c <= '9' || c == '.' || c == '-' || c == ':' ||
		c == 'T' || c == 'Z' || c == '+' || c == 'e' || c == 'E'
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.' || c == '/'
}
