package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments, and metadata which is skipped to the end of the line
		{"Comment", `;[^\n]*`, nil},
		{"Metadata", `(,[ \t]*)?![^\n]*`, nil},

		// Character array and plain string literals
		{"CString", `c"[^"]*"`, nil},
		{"String", `"[^"]*"`, nil},

		// Sigiled names
		{"Global", `@[-a-zA-Z$._0-9]+`, nil},
		{"Local", `%[-a-zA-Z$._0-9]+`, nil},
		{"AttrRef", `#[0-9]+`, nil},

		// Block labels (must come before identifiers and integers)
		{"Label", `[-a-zA-Z$._0-9]+:`, nil},

		{"Ellipsis", `\.\.\.`, nil},

		// Integer types before keywords
		{"IntType", `i[0-9]+\b`, nil},
		{"Ident", `[a-zA-Z_.$][-a-zA-Z$._0-9]*`, nil},

		// Integer literals
		{"Int", `-?[0-9]+`, nil},

		// Punctuation
		{"Punctuation", `[{}\[\](),=*]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
