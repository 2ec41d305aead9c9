// file: cmd/organize.go
// version: 1.0.0
// guid: 7b8c9d0e-1f2a-3b4c-5d6e-7f8a9b0c1d2f

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rodaddy/audiobook-pipeline/internal/config"
	"github.com/rodaddy/audiobook-pipeline/internal/pipeline"
	"github.com/rodaddy/audiobook-pipeline/internal/watcher"
)

// organizeCmd resolves and places books from source directories.
var organizeCmd = &cobra.Command{
	Use:   "organize [source-dir...]",
	Short: "Resolve metadata and file books into the library",
	Long: `Discover audiobooks under the source directories (or the configured
inbox), resolve their metadata, and place them into the library tree.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLibrary(); err != nil {
			return err
		}

		roots := args
		if len(roots) == 0 {
			if config.AppConfig.InboxDir == "" {
				return fmt.Errorf("no source directories given and no inbox configured")
			}
			roots = []string{config.AppConfig.InboxDir}
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		p := pipeline.New(config.AppConfig, store)
		p.EmbedCovers, _ = cmd.Flags().GetBool("embed-covers")

		summary, err := p.Run(cmd.Context(), roots...)
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

// reorganizeCmd re-files books already inside the library.
var reorganizeCmd = &cobra.Command{
	Use:   "reorganize",
	Short: "Re-resolve and move misplaced books within the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLibrary(); err != nil {
			return err
		}

		p := pipeline.New(config.AppConfig, nil)
		summary, err := p.Reorganize(cmd.Context())
		if err != nil {
			return err
		}
		printSummary(summary)
		return nil
	},
}

// watchCmd runs organize whenever the inbox settles after changes.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox and organize new books automatically",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLibrary(); err != nil {
			return err
		}
		inbox := config.AppConfig.InboxDir
		if inbox == "" {
			return fmt.Errorf("no inbox configured (--inbox)")
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		w := watcher.New(func(rootDir string) {
			p := pipeline.New(config.AppConfig, store)
			summary, err := p.Run(context.Background(), rootDir)
			if err != nil {
				log.Printf("[WARN] watch: organize run failed: %v", err)
				return
			}
			log.Printf("[INFO] watch: run %s: %d placed, %d unsorted, %d skipped, %d failed",
				summary.RunID, summary.Placed, summary.Unsorted, summary.Skipped, summary.Failed)
		}, config.AppConfig.WatchDebounce)

		if err := w.Start(inbox); err != nil {
			return fmt.Errorf("failed to watch %s: %w", inbox, err)
		}
		defer w.Stop()
		fmt.Printf("Watching %s (debounce %s). Press Ctrl-C to stop.\n", inbox, config.AppConfig.WatchDebounce)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		return nil
	},
}

func printSummary(s pipeline.Summary) {
	fmt.Printf("Run %s complete: %d book(s)\n", s.RunID, s.Total)
	fmt.Printf("  placed:   %d\n", s.Placed)
	fmt.Printf("  unsorted: %d\n", s.Unsorted)
	fmt.Printf("  skipped:  %d\n", s.Skipped)
	fmt.Printf("  failed:   %d\n", s.Failed)
}

func init() {
	organizeCmd.Flags().Bool("embed-covers", false, "download and embed cover art (requires ffmpeg)")

	rootCmd.AddCommand(organizeCmd)
	rootCmd.AddCommand(reorganizeCmd)
	rootCmd.AddCommand(watchCmd)
}
