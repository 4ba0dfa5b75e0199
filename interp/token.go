package interp

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the C-like source language
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType uint8

const (
	TokenPunctuation TokenType = iota
	TokenNumber
	TokenString
	TokenKeyword
	TokenIdentifier
	TokenOperator
)

var tokenTypeNames = map[TokenType]string{
	TokenPunctuation: "PUNCTUATION",
	TokenNumber:      "NUMBER",
	TokenString:      "STRING",
	TokenKeyword:     "KEYWORD",
	TokenIdentifier:  "IDENTIFIER",
	TokenOperator:    "OPERATOR",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token. Text is a slice of the preprocessed
// source, so tokens stay cheap and keep their exact spelling.
type Token struct {
	Type TokenType
	Text string
	Line int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)", t.Type, t.Text)
}

// Punctuation, in recognition order. Two-character entries win over
// single-character ones.
var punctuation = []string{
	".", ",", ":", ";", "->", "(", ")", "{", "}", "[", "]", "::",
}

// Operators, in recognition order. Two-character entries win over
// single-character ones.
var operators = []string{
	"+", "-", "*", "/",
	"++", "--", "!",
	"=", "+=", "-=", "*=", "/=",
	"==", "!=", ">", "<", ">=", "<=",
	"&&", "||", "&", "|", "~", "^",
}

// Assignment operators, a subset of the operator set.
var assignmentOperators = []string{
	"=", "+=", "-=", "*=", "/=",
}

// Reserved keywords. The parser recognizes all of them; the evaluator
// implements only the subset the language currently supports.
var keywords = []string{
	"break", "case", "class", "const", "const_cast", "continue", "default",
	"delete", "do", "dynamic_cast", "else", "enum", "false", "for", "if",
	"namespace", "new", "nullptr", "operator", "private", "protected",
	"public", "reinterpret_cast", "return", "sizeof", "static",
	"static_cast", "struct", "switch", "this", "true", "typedef", "union",
	"unsigned", "using", "virtual", "void", "while",
}

// isAssignmentOperator reports whether the token spells an assignment
// operator.
func isAssignmentOperator(tok Token) bool {
	if tok.Type != TokenOperator {
		return false
	}
	for _, op := range assignmentOperators {
		if tok.Text == op {
			return true
		}
	}
	return false
}
