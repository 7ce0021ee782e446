package colorize

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
)

// ArmlensDark is the listing style used for disassembly output.
var ArmlensDark = styles.Register(chroma.MustNewStyle("armlens-dark", chroma.StyleEntries{
	chroma.Text:       "#E4E4E4",
	chroma.Background: "bg:#1b1b1b",
	chroma.Comment:    "#6C7086",

	// Mnemonics and registers
	chroma.Keyword:      "#E4E4E4",
	chroma.Name:         "#74A39E",
	chroma.NameBuiltin:  "#74A39E",
	chroma.NameVariable: "#74A39E",

	// Immediates and addresses
	chroma.LiteralNumber:        "#F08FA6",
	chroma.LiteralNumberHex:     "#F08FA6",
	chroma.LiteralNumberInteger: "#F08FA6",

	// Labels
	chroma.NameLabel:    "#E5C07B",
	chroma.NameFunction: "#E4E4E4",

	chroma.Operator:    "#E4E4E4",
	chroma.Punctuation: "#E4E4E4",
	chroma.String:      "#E5C07B",
}))
