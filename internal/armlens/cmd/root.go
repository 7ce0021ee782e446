// Package cmd wires the armlens commands: guarded jump-table
// verification, MMIO classification, and the audit trail viewer.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"armlens/internal/armlens/log"
	"armlens/internal/armlens/styles"
	"armlens/internal/config"
	"armlens/internal/host"
	"armlens/internal/jumptable"
	"armlens/internal/safety"
)

var rootCmd = &cobra.Command{
	Use:   "armlens",
	Short: "Guarded jump-table verification and MMIO classification for ARM firmware",
	Long: `armlens is a deterministic analysis layer over a disassembled ARM
firmware image. It verifies guarded ARM/Thumb jump tables, classifies
memory-mapped I/O accesses, and routes every mutation through a
write-guard with per-request safety limits.

Writes are disabled by default and every command defaults to a dry
run; enable them with --enable-writes --dry-run=false or the
ARMLENS_ENABLE_WRITES environment variable.`,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		debug, _ := cmd.Flags().GetBool("debug")
		log.Setup(debug)
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Emit the JSON envelope instead of a rendered report")
	rootCmd.PersistentFlags().Bool("enable-writes", false, "Allow mutating operations (overrides ARMLENS_ENABLE_WRITES)")
	rootCmd.PersistentFlags().Bool("dry-run", true, "Simulate writes without applying them")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// request bundles the per-request safety state. One is built per
// command invocation and discarded at exit; nothing is shared.
type request struct {
	Config config.Config
	Gate   safety.Gate
	Scope  *safety.Scope
	Sink   safety.Sink

	closeSink func() error
}

// newRequest reads configuration, applies flag overrides, and opens
// the audit sink.
func newRequest(cmd *cobra.Command) (*request, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	enable := cfg.EnableWrites
	if cmd.Flags().Changed("enable-writes") {
		enable, _ = cmd.Flags().GetBool("enable-writes")
	}
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	req := &request{
		Config: cfg,
		Gate:   safety.Gate{WritesEnabled: enable, DryRun: dryRun},
		Scope:  safety.NewScope(safety.Limits{MaxWrites: cfg.MaxWrites, MaxItems: cfg.MaxItems}),
	}
	req.Sink, req.closeSink = openAuditSink(cfg.AuditLog)
	return req, nil
}

// Close flushes the audit sink.
func (r *request) Close() {
	if r.closeSink != nil {
		_ = r.closeSink()
	}
}

// openHost opens the firmware image behind the analysis.
func openHost(path string) (*host.ELFHost, error) {
	h, err := host.OpenELF(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return h, nil
}

// parseAddr accepts 0x-prefixed hex and plain decimal addresses.
func parseAddr(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return v, nil
}

// codeRangeFromFlags builds the request's code range, defaulting to
// the image's executable section when the flags are unset.
func codeRangeFromFlags(cmd *cobra.Command, h *host.ELFHost) (jumptable.CodeRange, error) {
	minStr, _ := cmd.Flags().GetString("min")
	maxStr, _ := cmd.Flags().GetString("max")

	if minStr == "" && maxStr == "" {
		text := h.Image().Text
		if text.Size == 0 {
			return jumptable.CodeRange{}, fmt.Errorf("image has no executable section; pass --min and --max")
		}
		return jumptable.NewCodeRange(text.VA, text.VA+text.Size)
	}
	if minStr == "" || maxStr == "" {
		return jumptable.CodeRange{}, fmt.Errorf("--min and --max must be given together")
	}

	min, err := parseAddr(minStr)
	if err != nil {
		return jumptable.CodeRange{}, err
	}
	max, err := parseAddr(maxStr)
	if err != nil {
		return jumptable.CodeRange{}, err
	}
	return jumptable.NewCodeRange(min, max)
}

// display renders markdown to the terminal, falling back to plain
// text when output is piped.
func display(md string) {
	if term.IsTerminal(os.Stdout.Fd()) {
		width, _, err := term.GetSize(os.Stdout.Fd())
		if err != nil || width <= 0 {
			width = 100
		}
		if r := styles.GetMarkdownRenderer(width); r != nil {
			if out, err := r.Render(md); err == nil {
				fmt.Print(out)
				return
			}
		}
	}
	fmt.Print(md)
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%08X", v)
}

// Execute runs the CLI. fang provides the styled help and errors; it
// is bypassed when output is piped so envelopes stay machine-clean.
func Execute() {
	styled := term.IsTerminal(os.Stdout.Fd())
	for _, arg := range os.Args[1:] {
		if arg == "--json" {
			styled = false
			break
		}
	}

	if !styled {
		if err := rootCmd.Execute(); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
