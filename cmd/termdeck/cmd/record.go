package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"termdeck/internal/term"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	recordCols  int
	recordRows  int
	recordQuiet bool
)

var recordCmd = &cobra.Command{
	Use:   "record <file.ttyrec> -- <command> [args...]",
	Short: "Record a command's terminal output as a cast",
	Long: `Run a command on a pseudo-terminal and save its output as a ttyrec
recording. Reference the file from a slide with media.cast.

Examples:
  termdeck record decks/talk/build.ttyrec -- make build
  termdeck record demo.ttyrec --cols 68 --rows 12 -- sh -c 'ls -la; git log -3'`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.IntVar(&recordCols, "cols", 80, "terminal width for the recording")
	f.IntVar(&recordRows, "rows", 24, "terminal height for the recording")
	f.BoolVar(&recordQuiet, "quiet", false, "do not echo output while recording")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	out := args[0]
	command := args[1:]
	if dash := cmd.ArgsLenAtDash(); dash > 1 {
		return fmt.Errorf("expected one output file before --, got %d", dash)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return record(ctx, cmd, f, command)
}

func record(ctx context.Context, cmd *cobra.Command, f *os.File, command []string) error {
	opts := term.RecordOptions{Cols: recordCols, Rows: recordRows}
	if !recordQuiet {
		opts.Echo = cmd.OutOrStdout()
	}
	frames, runErr := term.Record(ctx, command, f, opts)
	if err := f.Sync(); err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\nrecorded %d frames (%s) to %s\n", frames, humanize.Bytes(uint64(info.Size())), f.Name())
	if runErr != nil {
		return fmt.Errorf("command: %w", runErr)
	}
	return nil
}
