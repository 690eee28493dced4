package script

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
)

var parser = participle.MustBuild[Program](
	participle.Lexer(Lexer),
	participle.Elide("Comment", "Whitespace"),
	participle.UseLookahead(2),
)

// Parse reads a script from r. name is used in error positions.
func Parse(name string, r io.Reader) (*Program, error) {
	prog, err := parser.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return prog, nil
}

// ParseString parses a script held in memory.
func ParseString(name, src string) (*Program, error) {
	return Parse(name, strings.NewReader(src))
}

// ParseFile parses the script at path.
func ParseFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	defer f.Close()
	return Parse(path, f)
}
