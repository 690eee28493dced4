package script

import "github.com/alecthomas/participle/v2/lexer"

// Lexer tokenizes NeroJTAG command scripts. Statements are separated by
// newlines or semicolons, which the parser treats as whitespace.
var Lexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s;]+`},
	{Name: "Hex", Pattern: `0[xX][0-9a-fA-F_]+`},
	{Name: "Bin", Pattern: `0[bB][01_]+`},
	{Name: "Int", Pattern: `[0-9][0-9_]*`},
	{Name: "Ident", Pattern: `[a-zA-Z][a-zA-Z0-9_]*`},
})
