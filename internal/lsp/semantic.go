package lsp

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"

	"befc/grammar"
)

// instructionKeywords are offered as completions.
var instructionKeywords = []string{
	"add", "sub", "mul", "sdiv", "srem", "and", "or", "xor",
	"bitcast", "ptrtoint", "sext", "zext",
	"getelementptr", "icmp", "select", "phi",
	"ret", "br", "switch",
	"alloca", "load", "store", "call",
	"define", "declare", "global", "constant", "type",
}

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into the semanticTokenTypes array
// TokenModifiers is a bitmask based on semanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into semanticTokenTypes
	TokenModifiers int // bitmask
}

const (
	modDeclaration = 1 << iota
	modDefinition
	modReadonly
)

// collectSemanticTokens classifies the lexical tokens of text. unit, when
// the text loaded, tells functions from data globals and named types from
// values.
func collectSemanticTokens(text string, unit *grammar.Unit) []SemanticToken {
	toks := significantTokens(text)
	names := tokenNames()

	var tokens []SemanticToken
	lineHead := ""
	line := 0
	globalsOnLine := 0
	for n, tok := range toks {
		if tok.Pos.Line != line {
			line = tok.Pos.Line
			lineHead = tok.Value
			globalsOnLine = 0
		}
		next := ""
		if n+1 < len(toks) {
			next = toks[n+1].Value
		}
		prev := ""
		if n > 0 {
			prev = toks[n-1].Value
		}
		signature := lineHead == "define" || lineHead == "declare"

		switch names[tok.Type] {
		case "Comment", "Metadata":
			tokens = append(tokens, makeToken(tok.Pos, len(tok.Value), "comment", 0))
		case "String", "CString":
			tokens = append(tokens, makeToken(tok.Pos, len(tok.Value), "string", 0))
		case "IntType":
			tokens = append(tokens, makeToken(tok.Pos, len(tok.Value), "type", 0))
		case "Int":
			tokens = append(tokens, makeToken(tok.Pos, len(tok.Value), "number", 0))
		case "Ident", "AttrRef":
			tokens = append(tokens, makeToken(tok.Pos, len(tok.Value), "keyword", 0))
		case "Label":
			tokens = append(tokens, makeToken(tok.Pos, len(tok.Value)-1, "namespace", modDeclaration))
		case "Global":
			globalsOnLine++
			tokens = append(tokens, globalToken(tok, unit, next == "=" || (signature && globalsOnLine == 1), lineHead))
		case "Local":
			tokens = append(tokens, localToken(tok, unit, signature, prev, next, toks, n))
		}
	}
	return tokens
}

func globalToken(tok lexer.Token, unit *grammar.Unit, declared bool, lineHead string) SemanticToken {
	name := strings.TrimPrefix(tok.Value, "@")
	kind, mods := "variable", 0
	if unit != nil {
		if unit.Module.Function(name) != nil {
			kind = "function"
		} else if g := unit.Module.Global(name); g != nil && g.Constant {
			mods |= modReadonly
		}
	}
	if declared {
		mods |= modDeclaration
		if lineHead == "define" || (kind == "variable" && lineHead == tok.Value) {
			mods |= modDefinition
		}
	}
	return makeToken(tok.Pos, len(tok.Value), kind, mods)
}

func localToken(tok lexer.Token, unit *grammar.Unit, signature bool, prev, next string, toks []lexer.Token, n int) SemanticToken {
	switch {
	case signature:
		return makeToken(tok.Pos, len(tok.Value), "parameter", modDeclaration)
	case next == "=" && n+2 < len(toks) && toks[n+2].Value == "type":
		return makeToken(tok.Pos, len(tok.Value), "type", modDeclaration|modDefinition)
	case next == "=":
		return makeToken(tok.Pos, len(tok.Value), "variable", modDeclaration)
	case prev == "label" || next == "]":
		return makeToken(tok.Pos, len(tok.Value), "namespace", 0)
	case unit != nil && unit.Module.NamedType(strings.TrimPrefix(tok.Value, "%")) != nil:
		return makeToken(tok.Pos, len(tok.Value), "type", 0)
	}
	return makeToken(tok.Pos, len(tok.Value), "variable", 0)
}

// significantTokens lexes text, dropping whitespace. Lexing stops quietly at
// the first character the lexer rejects.
func significantTokens(text string) []lexer.Token {
	lex, err := grammar.IRLexer.LexString("", text)
	if err != nil {
		return nil
	}
	whitespace := grammar.IRLexer.Symbols()["Whitespace"]

	var toks []lexer.Token
	for {
		tok, err := lex.Next()
		if err != nil || tok.EOF() {
			return toks
		}
		if tok.Type != whitespace {
			toks = append(toks, tok)
		}
	}
}

func tokenNames() map[lexer.TokenType]string {
	names := make(map[lexer.TokenType]string)
	for name, t := range grammar.IRLexer.Symbols() {
		names[t] = name
	}
	return names
}

// encodeSemanticTokens packs tokens, which are in document order, into the
// relative five-integer form of the protocol.
func encodeSemanticTokens(tokens []SemanticToken) []uint32 {
	data := make([]uint32, 0, 5*len(tokens))
	var last SemanticToken
	for n, t := range tokens {
		line, char := t.Line, t.StartChar
		if n > 0 {
			line -= last.Line
			if line == 0 {
				char -= last.StartChar
			}
		}
		data = append(data, line, char, t.Length, uint32(t.TokenType), uint32(t.TokenModifiers))
		last = t
	}
	return data
}

// makeToken creates a semantic token for a given position and length
func makeToken(pos lexer.Position, length int, tokenType string, modifiers int) SemanticToken {
	return SemanticToken{
		Line:           uint32(pos.Line - 1),   // LSP uses 0-based line numbers
		StartChar:      uint32(pos.Column - 1), // LSP uses 0-based column numbers
		Length:         uint32(length),
		TokenType:      indexOf(tokenType, SemanticTokenTypes),
		TokenModifiers: modifiers,
	}
}

// indexOf returns the index of a string in a slice, or 0 if not found
func indexOf(target string, list []string) int {
	for i, v := range list {
		if v == target {
			return i
		}
	}
	return 0 // Default to first token type if not found
}
