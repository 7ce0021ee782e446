package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/spf13/cobra"

	"armlens/internal/annotate"
	"armlens/internal/jumptable"
	"armlens/internal/safety"
	"armlens/internal/ui/browse"
)

var scanCmd = &cobra.Command{
	Use:   "scan [binary]",
	Short: "Verify a range of jump-table slots (read-only)",
	Long: `Scan walks jump-table slots sequentially, probing each raw word for
an ARM or Thumb target inside the code range and verifying candidates
against the symbol table. Scanning never writes.`,
	Example: `
# Scan 16 slots of the table at 0x20000000
armlens scan firmware.elf --base 0x20000000 --count 16

# Restrict targets to a code range and emit the JSON envelope
armlens scan firmware.elf --base 0x20000000 --count 64 \
  --min 0x00100000 --max 0x00110000 --json

# Browse results interactively
armlens scan firmware.elf --base 0x20000000 --count 64 --tui
  `,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseStr, _ := cmd.Flags().GetString("base")
		start, _ := cmd.Flags().GetUint32("start")
		count, _ := cmd.Flags().GetUint32("count")
		useTUI, _ := cmd.Flags().GetBool("tui")
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

		scanner := &jumptable.Scanner{
			Processor: &jumptable.Processor{
				Verifier: &jumptable.Verifier{Host: h},
				Writer:   annotate.New(h, req.Gate, req.Scope, req.Sink),
				Range:    rng,
			},
			Scope: req.Scope,
		}

		if useTUI {
			program := tea.NewProgram(
				browse.New(cmd.Context(), func(ctx context.Context) (jumptable.ScanSummary, error) {
					return scanner.Scan(ctx, base, start, count)
				}),
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
			)
			if _, err := program.Run(); err != nil {
				slog.Error("TUI run error", "error", err)
				return fmt.Errorf("TUI error: %v", err)
			}
			return nil
		}

		sum, scanErr := scanner.Scan(cmd.Context(), base, start, count)
		if scanErr != nil && !errors.Is(scanErr, safety.ErrSafetyLimit) {
			return scanErr
		}

		if asJSON {
			bts, err := json.MarshalIndent(scanToJSON(sum), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(bts))
		} else {
			display(scanReport(args[0], base, sum))
		}

		if scanErr != nil {
			return fmt.Errorf("batch aborted: %w", scanErr)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().String("base", "", "Jump table base address (required)")
	scanCmd.Flags().Uint32("start", 0, "First slot index")
	scanCmd.Flags().Uint32("count", 16, "Number of slots to scan")
	scanCmd.Flags().String("min", "", "Code range lower bound (inclusive)")
	scanCmd.Flags().String("max", "", "Code range upper bound (exclusive)")
	scanCmd.Flags().Bool("tui", false, "Browse results interactively")
	_ = scanCmd.MarkFlagRequired("base")
	rootCmd.AddCommand(scanCmd)
}

// scanReport renders the batch summary as markdown.
func scanReport(path string, base uint64, sum jumptable.ScanSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Jump table scan\n\n")
	fmt.Fprintf(&b, "`%s`, table at %s, slots %d..%d\n\n", path, hex(base), sum.Start, sum.Start+sum.Count)
	fmt.Fprintf(&b, "**total** %d  **valid** %d  **invalid** %d\n\n", sum.Total, sum.Valid, sum.Invalid)

	for _, it := range sum.Items {
		mark := "✗"
		if it.Valid() {
			mark = "✓"
		}
		fmt.Fprintf(&b, "- %s slot %d at %s raw %s", mark, it.Slot, hex(it.SlotAddr), hex(uint64(it.Raw)))
		if it.Valid() {
			fmt.Fprintf(&b, " → %s %s", it.Outcome.Mode, hex(it.Outcome.Target))
			if it.Outcome.Symbol != "" {
				fmt.Fprintf(&b, " `%s`", it.Outcome.Symbol)
			}
		} else {
			fmt.Fprintf(&b, " (%s)", it.Outcome.Kind.Code())
		}
		b.WriteString("\n")
	}

	if len(sum.Notes) > 0 {
		b.WriteString("\n")
		for _, n := range sum.Notes {
			fmt.Fprintf(&b, "> %s\n", n)
		}
	}
	return b.String()
}
