package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/startterm/startsh/core"
	"github.com/startterm/startsh/core/surface"
	"github.com/startterm/startsh/core/ttylog"
)

var (
	runLines   []string
	runRecord  string
	runColor   bool
	runTimeout time.Duration
)

// runCmd runs lines non-interactively and prints the final frame.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run shell lines and print the resulting screen.",
	Long: `Run executes each -c line in order, or each line of stdin if none are
given, then prints the screen. The exit status is that of the last line.`,
	Example: `  startsh run -c 'mkdir docs' -c 'ls -l'
  echo 'find / -name "*go*"' | startsh run`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, persisted, err := loadConfigOrDefault()
		if err != nil {
			return err
		}
		logger, err := newLogger(configuration, persisted)
		if err != nil {
			return err
		}
		defer logger.Sync()

		lines := runLines
		if len(lines) == 0 {
			if lines, err = readLines(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		provider, err := configuration.LoadBookmarks()
		if err != nil {
			return err
		}

		opts := core.NewOptions(configuration, provider, logger)
		opts.Motd = ""
		if runRecord != "" {
			fd, err := configuration.CreateSessionLog(runRecord)
			if err != nil {
				return err
			}
			defer fd.Close()
			recorder := ttylog.NewRecorder(nil, ttylog.NewAsciicastLogSink(fd, opts.Rows, opts.Cols))
			defer recorder.Close()
			opts.Surface = surface.NewANSI(recorder)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		shell, err := core.NewShell(ctx, opts)
		if err != nil {
			return err
		}
		defer shell.Close()
		shell.Start(ctx)

		finished := make(chan error, 1)
		go func() { finished <- submitAll(shell, lines) }()

		select {
		case err = <-finished:
		case <-time.After(runTimeout):
			shell.Close()
			err = fmt.Errorf("timed out after %s", runTimeout)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, row := range shell.Frame() {
			if runColor {
				fmt.Fprintln(out, strings.TrimRight(surface.EncodeLine(row), " "))
			} else {
				fmt.Fprintln(out, strings.TrimRight(row.String(), " "))
			}
		}

		if persisted {
			if err := configuration.SaveBookmarks(provider); err != nil {
				logger.Warn("couldn't save bookmarks", zap.Error(err))
			}
		}

		if status := shell.Session().Status(); status != 0 {
			return exitStatusError(status)
		}
		return nil
	},
}

// submitAll runs lines one at a time, stopping early if one exits the shell.
func submitAll(shell *core.Shell, lines []string) error {
	for _, line := range lines {
		select {
		case <-shell.Done():
			return nil
		default:
		}
		if err := shell.Submit(line); err != nil {
			if errors.Is(err, core.ErrBusy) {
				return fmt.Errorf("%q: %w", line, err)
			}
			return err
		}
		shell.Wait()
	}
	return nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runLines, "command", "c", nil, "line to run, may be repeated")
	runCmd.Flags().StringVar(&runRecord, "record", "", "record the session to this file in the session log directory")
	runCmd.Flags().BoolVar(&runColor, "color", false, "print the screen with ANSI colors")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Second, "give up if the lines take longer than this")
}
