package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"armlens/internal/annotate"
	"armlens/internal/jumptable"
)

var slotCmd = &cobra.Command{
	Use:   "slot [binary]",
	Short: "Verify a single jump-table slot, optionally annotating it",
	Long: `Slot verifies one jump-table entry. With --rename or --comment it
also requests writes against the verified target; writes pass through
the safety gate, so nothing is applied unless --enable-writes is set
and --dry-run=false.`,
	Example: `
# Verify slot 3 of the table at 0x20000000
armlens slot firmware.elf --base 0x20000000 --index 3

# Rename the verified target (writes still gated)
armlens slot firmware.elf --base 0x20000000 --index 3 \
  --rename handler_reset --enable-writes --dry-run=false
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseStr, _ := cmd.Flags().GetString("base")
		index, _ := cmd.Flags().GetUint32("index")
		rename, _ := cmd.Flags().GetString("rename")
		comment, _ := cmd.Flags().GetString("comment")
		asJSON, _ := cmd.Flags().GetBool("json")

		base, err := parseAddr(baseStr)
		if err != nil {
			return err
		}

		req, err := newRequest(cmd)
		if err != nil {
			return err
		}
		defer req.Close()

		h, err := openHost(args[0])
		if err != nil {
			return err
		}
		defer h.Close()

		rng, err := codeRangeFromFlags(cmd, h)
		if err != nil {
			return err
		}

		proc := &jumptable.Processor{
			Verifier: &jumptable.Verifier{Host: h},
			Writer:   annotate.New(h, req.Gate, req.Scope, req.Sink),
			Range:    rng,
		}

		res := proc.Process(cmd.Context(), base, index, jumptable.WriteIntent{
			RenameTo: rename,
			Comment:  comment,
		})

		if asJSON {
			bts, err := json.MarshalIndent(slotToJSON(res), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(bts))
			return nil
		}

		display(slotReport(args[0], res))
		return nil
	},
}

func init() {
	slotCmd.Flags().String("base", "", "Jump table base address (required)")
	slotCmd.Flags().Uint32("index", 0, "Slot index within the table")
	slotCmd.Flags().String("rename", "", "Rename the verified target symbol")
	slotCmd.Flags().String("comment", "", "Attach a comment to the verified target")
	slotCmd.Flags().String("min", "", "Code range lower bound (inclusive)")
	slotCmd.Flags().String("max", "", "Code range upper bound (exclusive)")
	_ = slotCmd.MarkFlagRequired("base")
	rootCmd.AddCommand(slotCmd)
}

func slotReport(path string, res jumptable.SlotResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Slot %d\n\n", res.Slot)
	fmt.Fprintf(&b, "`%s`, slot address %s, raw word %s\n\n", path, hex(res.SlotAddr), hex(uint64(res.Raw)))

	if res.Valid() {
		fmt.Fprintf(&b, "**valid** %s target %s", res.Outcome.Mode, hex(res.Outcome.Target))
		if res.Outcome.Symbol != "" {
			fmt.Fprintf(&b, " `%s`", res.Outcome.Symbol)
		}
		b.WriteString("\n")
	} else {
		fmt.Fprintf(&b, "**invalid** (%s)\n", res.Outcome.Kind.Code())
	}

	if res.Write != nil {
		b.WriteString("\n## Writes\n\n")
		fmt.Fprintf(&b, "- renamed: %v\n", res.Write.Renamed)
		fmt.Fprintf(&b, "- comment set: %v\n", res.Write.CommentSet)
		if res.Write.VerifyAfter != nil {
			fmt.Fprintf(&b, "- re-verified: %s\n", res.Write.VerifyAfter.Kind.Code())
		}
	}
	for _, e := range res.Errors {
		fmt.Fprintf(&b, "\n> error: %s\n", e)
	}
	for _, n := range res.Notes {
		fmt.Fprintf(&b, "\n> %s\n", n)
	}
	return b.String()
}
