package cql

import (
	"strings"

	"github.com/honua-io/Honua.Server-sub000/filter"
)

type tokenType int

const (
	tokenEOF tokenType = iota
	tokenIdent
	tokenNumber
	tokenString
	tokenOperator // = <> < <= > >=
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	Type  tokenType
	Value string
	Pos   int
}

// lex splits CQL2 text into tokens. Keyword recognition (AND, LIKE,
// INTERSECTS, ...) happens in the parser, case-insensitively.
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
					// Doubled quote is an escaped quote.
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
				return nil, &filter.SyntaxError{Offset: start, Snippet: snippet(input, start), Message: "unterminated string literal"}
			}
			tokens = append(tokens, token{tokenString, sb.String(), start})

		case c == '=':
			tokens = append(tokens, token{tokenOperator, "=", i})
			i++
		case c == '<':
			if i+1 < n && input[i+1] == '>' {
				tokens = append(tokens, token{tokenOperator, "<>", i})
				i += 2
			} else if i+1 < n && input[i+1] == '=' {
				tokens = append(tokens, token{tokenOperator, "<=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenOperator, "<", i})
				i++
			}
		case c == '>':
			if i+1 < n && input[i+1] == '=' {
				tokens = append(tokens, token{tokenOperator, ">=", i})
				i += 2
			} else {
				tokens = append(tokens, token{tokenOperator, ">", i})
				i++
			}
		case c == '!':
			if i+1 < n && input[i+1] == '=' {
				tokens = append(tokens, token{tokenOperator, "<>", i})
				i += 2
			} else {
				return nil, &filter.SyntaxError{Offset: i, Snippet: snippet(input, i), Message: "unexpected character '!'"}
			}

		case c >= '0' && c <= '9' || c == '.' ||
			(c == '-' && i+1 < n && (input[i+1] >= '0' && input[i+1] <= '9' || input[i+1] == '.')):
			start := i
			if c == '-' {
				i++
			}
			for i < n && (input[i] >= '0' && input[i] <= '9' || input[i] == '.' ||
				input[i] == 'e' || input[i] == 'E' ||
				((input[i] == '+' || input[i] == '-') && (input[i-1] == 'e' || input[i-1] == 'E'))) {
				i++
			}
			tokens = append(tokens, token{tokenNumber, input[start:i], start})

		case isIdentStart(c):
			start := i
			for i < n && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, token{tokenIdent, input[start:i], start})

		default:
			return nil, &filter.SyntaxError{Offset: i, Snippet: snippet(input, i), Message: "unexpected character"}
		}
	}
	tokens = append(tokens, token{tokenEOF, "", n})
	return tokens, nil
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '.' || c == ':'
}

// snippet returns a short slice of input around pos for error messages.
func snippet(input string, pos int) string {
	end := pos + 20
	if end > len(input) {
		end = len(input)
	}
	if pos > len(input) {
		pos = len(input)
	}
	return input[pos:end]
}
