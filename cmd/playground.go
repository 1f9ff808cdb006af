package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/startterm/startsh/core"
	"github.com/startterm/startsh/core/editor"
	"github.com/startterm/startsh/core/screen"
	"github.com/startterm/startsh/core/surface"
	"github.com/startterm/startsh/core/ttylog"
)

var (
	playgroundSurface string
	playgroundRecord  string
)

// playgroundCmd runs the shell on the local terminal
var playgroundCmd = &cobra.Command{
	Use:   "playground",
	Short: "Run the shell on this terminal without starting a server.",
	Long: `Playground runs the shell on the local terminal. With no configuration
in --config the built-in defaults are used and nothing is saved.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		playgroundLogger := log.New(cmd.ErrOrStderr(), "[playground] ", 0)

		configuration, persisted, err := loadConfigOrDefault()
		if err != nil {
			return err
		}
		if !persisted {
			playgroundLogger.Println("No configuration found, changes won't be saved.")
		}
		logger, err := newLogger(configuration, persisted)
		if err != nil {
			return err
		}
		defer logger.Sync()

		provider, err := configuration.LoadBookmarks()
		if err != nil {
			return err
		}

		var recording io.Writer
		if playgroundRecord != "" {
			fd, err := configuration.CreateSessionLog(playgroundRecord)
			if err != nil {
				return err
			}
			defer fd.Close()
			recording = fd
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		opts := core.NewOptions(configuration, provider, logger)
		opts.OnExit = cancel

		switch playgroundSurface {
		case "ansi":
			err = playANSI(ctx, opts, recording)
		case "tcell":
			err = playTcell(ctx, opts, recording)
		default:
			err = fmt.Errorf("unknown surface %q, expected ansi or tcell", playgroundSurface)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		if persisted {
			if err := configuration.SaveBookmarks(provider); err != nil {
				logger.Warn("couldn't save bookmarks", zap.Error(err))
			}
		}
		return nil
	},
}

// playANSI drives the shell with escape sequences on a raw-mode stdin/stdout.
func playANSI(ctx context.Context, opts core.Options, recording io.Writer) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	defer term.Restore(fd, state)

	if cols, rows, err := term.GetSize(fd); err == nil {
		opts.Rows, opts.Cols = rows, cols
	}

	var out io.Writer = os.Stdout
	var recorder *ttylog.Recorder
	if recording != nil {
		recorder = ttylog.NewRecorder(os.Stdout, ttylog.NewAsciicastLogSink(recording, opts.Rows, opts.Cols))
		defer recorder.Close()
		out = recorder
	}
	display := surface.NewANSI(out)
	defer display.Close()
	opts.Surface = display

	shell, err := core.NewShell(ctx, opts)
	if err != nil {
		return err
	}
	defer shell.Close()
	shell.Start(ctx)

	go watchSize(ctx, fd, opts.Rows, opts.Cols, func(rows, cols int) {
		if recorder != nil {
			recorder.RecordResize(rows, cols)
		}
		shell.Resize(rows, cols)
	})

	keys := make(chan editor.Key, 64)
	go editor.Decode(ctx, os.Stdin, keys)
	return shell.Run(ctx, keys)
}

// watchSize polls the terminal size until ctx ends.
func watchSize(ctx context.Context, fd, rows, cols int, onResize func(rows, cols int)) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c, r, err := term.GetSize(fd)
			if err != nil || (r == rows && c == cols) {
				continue
			}
			rows, cols = r, c
			onResize(rows, cols)
		}
	}
}

// playTcell draws the shell on a tcell screen.
func playTcell(ctx context.Context, opts core.Options, recording io.Writer) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := s.Init(); err != nil {
		return err
	}
	defer s.Fini()

	opts.Cols, opts.Rows = s.Size()

	var display screen.Surface = surface.NewTcell(s)
	var recorder *ttylog.Recorder
	if recording != nil {
		recorder = ttylog.NewRecorder(nil, ttylog.NewAsciicastLogSink(recording, opts.Rows, opts.Cols))
		defer recorder.Close()
		ansi := surface.NewANSI(recorder)
		defer ansi.Close()
		display = surface.Tee(display, ansi)
	}
	opts.Surface = display

	shell, err := core.NewShell(ctx, opts)
	if err != nil {
		return err
	}
	defer shell.Close()
	shell.Start(ctx)

	keys := make(chan editor.Key, 64)
	go surface.PollKeys(ctx, s, keys, func(rows, cols int) {
		if recorder != nil {
			recorder.RecordResize(rows, cols)
		}
		shell.Resize(rows, cols)
	})
	return shell.Run(ctx, keys)
}

func init() {
	rootCmd.AddCommand(playgroundCmd)

	playgroundCmd.Flags().StringVar(&playgroundSurface, "surface", "ansi", "how to draw the screen: ansi or tcell")
	playgroundCmd.Flags().StringVar(&playgroundRecord, "record", "", "record the session to this file in the session log directory")
}
