// file: cmd/report.go
// version: 1.0.0
// guid: 8c9d0e1f-2a3b-4c5d-6e7f-8a9b0c1d2e3f

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rodaddy/audiobook-pipeline/internal/audit"
	"github.com/rodaddy/audiobook-pipeline/internal/config"
	"github.com/rodaddy/audiobook-pipeline/internal/diff"
)

// writeFormatted emits v to stdout as json or yaml; empty format selects
// the caller's text renderer.
func writeFormatted(format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}

// diffCmd compares two libraries and lists books missing from the target.
var diffCmd = &cobra.Command{
	Use:   "diff <source-library> <target-library>",
	Short: "List books present in one library but missing from another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result := diff.Compare(args[0], args[1])

		format, _ := cmd.Flags().GetString("format")
		if format != "" {
			return writeFormatted(format, result)
		}

		fmt.Printf("Source: %d book(s), target: %d book(s)\n", result.SourceCount, result.TargetCount)
		fmt.Printf("Matched: %d, missing: %d\n\n", len(result.Matched), len(result.Missing))
		for _, b := range result.Missing {
			fmt.Printf("  MISSING  %s - %s\n           %s\n", b.Author, b.Title, b.Path)
		}
		return nil
	},
}

// auditCmd runs library consistency checks.
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check the library for metadata, duplicate, and structure problems",
	Long: `Run consistency checks against the library: embedded tags, duplicate
and near-duplicate titles, folder structure, leftover source files, and
stale media-server entries. Fixable findings can be applied with --fix.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLibrary(); err != nil {
			return err
		}

		a := audit.New(config.AppConfig.LibraryRoot)
		a.MediaServerURL = config.AppConfig.MediaServerURL
		a.MediaServerToken = config.AppConfig.MediaServerToken

		var checks []string
		if raw, _ := cmd.Flags().GetString("checks"); raw != "" {
			checks = strings.Split(raw, ",")
		}

		report := a.Run(checks)

		format, _ := cmd.Flags().GetString("format")
		if format != "" {
			if err := writeFormatted(format, report); err != nil {
				return err
			}
		} else {
			fmt.Printf("Audited %d file(s) under %s\n", report.TotalFiles, report.LibraryRoot)
			fmt.Printf("Findings: %d critical, %d warning, %d info (%d fixable)\n\n",
				report.CountBySeverity(audit.SeverityCritical),
				report.CountBySeverity(audit.SeverityWarning),
				report.CountBySeverity(audit.SeverityInfo),
				report.FixableCount())
			for _, f := range report.Findings {
				fmt.Printf("  [%s] %s: %s\n", strings.ToUpper(f.Severity), f.Check, f.Message)
			}
		}

		if fix, _ := cmd.Flags().GetBool("fix"); fix {
			applied := audit.ApplyFixes(config.AppConfig.LibraryRoot, report.Findings, config.AppConfig.DryRun)
			fmt.Printf("\nApplied %d fix(es)\n", len(applied))
			for _, a := range applied {
				fmt.Printf("  %s\n", a)
			}
		}
		return nil
	},
}

// verifyCmd reports author-name variations and duplicate titles.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report author-name variations, unsorted books, and duplicates",
	RunE: func(cmd *cobra.Command, args []string) error {
		var report *audit.VerifyReport
		var err error

		if logPath, _ := cmd.Flags().GetString("dry-run-log"); logPath != "" {
			report, err = audit.VerifyDryRunLog(logPath)
		} else {
			if err := requireLibrary(); err != nil {
				return err
			}
			report, err = audit.Verify(config.AppConfig.LibraryRoot)
		}
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format != "" {
			return writeFormatted(format, report)
		}
		report.WriteReport(os.Stdout)
		return nil
	},
}

func init() {
	diffCmd.Flags().String("format", "", "output format: json or yaml (default human-readable)")
	auditCmd.Flags().String("format", "", "output format: json or yaml (default human-readable)")
	auditCmd.Flags().String("checks", "", "comma-separated checks to run (default all)")
	auditCmd.Flags().Bool("fix", false, "apply fixable findings")
	verifyCmd.Flags().String("format", "", "output format: json or yaml (default human-readable)")
	verifyCmd.Flags().String("dry-run-log", "", "verify planned destinations from an organize dry-run log")

	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(verifyCmd)
}
