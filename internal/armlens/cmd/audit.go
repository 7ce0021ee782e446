package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"

	"armlens/internal/config"
	"armlens/internal/safety"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the write audit trail",
	Long: `Audit reads the JSONL trail that every write attempt is appended to,
including attempts the gate rejected. With --follow it keeps the file
open and streams new events as they land.`,
	Example: `
# Last 20 events
armlens audit

# Stream events while another session runs
armlens audit --follow
  `,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		limit, _ := cmd.Flags().GetInt("last")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = cfg.AuditLog
		}

		if follow {
			return followAudit(cmd, path, asJSON)
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open audit trail: %w", err)
		}
		defer f.Close()

		var lines []string
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			if s := strings.TrimSpace(sc.Text()); s != "" {
				lines = append(lines, s)
			}
		}
		if err := sc.Err(); err != nil {
			return err
		}
		if limit > 0 && len(lines) > limit {
			lines = lines[len(lines)-limit:]
		}
		for _, line := range lines {
			printAuditLine(line, asJSON)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().Bool("follow", false, "Stream new events as they are appended")
	auditCmd.Flags().Int("last", 20, "Number of trailing events to show (0 for all)")
	auditCmd.Flags().String("file", "", "Audit trail path (defaults to ARMLENS_AUDIT_LOG)")
	rootCmd.AddCommand(auditCmd)
}

func followAudit(cmd *cobra.Command, path string, asJSON bool) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("tail audit trail: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-cmd.Context().Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				return line.Err
			}
			if s := strings.TrimSpace(line.Text); s != "" {
				printAuditLine(s, asJSON)
			}
		}
	}
}

// printAuditLine renders one JSONL record, passing through raw lines
// that do not parse.
func printAuditLine(line string, asJSON bool) {
	if asJSON {
		fmt.Println(line)
		return
	}
	var ev safety.Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		fmt.Println(line)
		return
	}
	mode := "live"
	if !ev.WritesEnabled {
		mode = "disabled"
	} else if ev.DryRun {
		mode = "dry-run"
	}
	fmt.Printf("%s  %-14s %-10s %s  %v\n",
		ev.Time.Format("2006-01-02 15:04:05"), ev.Category, mode, ev.Result, ev.Params)
}
