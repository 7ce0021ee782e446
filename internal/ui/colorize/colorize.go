// Package colorize applies terminal syntax highlighting to ARM
// disassembly listings in armlens reports.
package colorize

import (
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// getAssemblyLexer returns an appropriate assembly lexer with fallbacks
func getAssemblyLexer() chroma.Lexer {
	candidates := []string{"armasm", "gas", "GAS", "nasm"}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

// getListingStyle returns the disassembly style with fallbacks
func getListingStyle() *chroma.Style {
	candidates := []string{"armlens-dark", "dracula", "monokai"}
	for _, name := range candidates {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

// getTerminalFormatter returns an appropriate terminal formatter
func getTerminalFormatter() chroma.Formatter {
	candidates := []string{"terminal16m", "terminal256"}
	for _, name := range candidates {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Assembly highlights a block of ARM assembly for the terminal.
// Colors are disabled with ARMLENS_NO_COLOR.
func Assembly(code string) (string, error) {
	if os.Getenv("ARMLENS_NO_COLOR") != "" {
		return code, nil
	}

	lexer := getAssemblyLexer()
	if lexer == nil {
		return code, nil
	}

	style := getListingStyle()
	formatter := getTerminalFormatter()

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code, err
	}

	return buf.String(), nil
}

// Lines highlights each line independently, preserving alignment of
// annotated listings.
func Lines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		c, err := Assembly(l)
		if err != nil || strings.TrimSpace(c) == "" {
			out[i] = l
			continue
		}
		out[i] = strings.TrimRight(c, "\n")
	}
	return out
}
