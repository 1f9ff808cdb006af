package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/startterm/startsh/core/config"
	"github.com/startterm/startsh/core/logger"
)

var cfgPath string

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadConfigOrDefault falls back to the built-in configuration, kept in
// memory, when there's none on disk. persisted reports which one was used.
func loadConfigOrDefault() (configuration *config.Configuration, persisted bool, err error) {
	configuration, err = config.Load(cfgPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		configuration = config.DefaultConfig()
		if err := configuration.ApplyEnv(); err != nil {
			return nil, false, err
		}
		return configuration, false, configuration.Validate()
	case err != nil:
		return nil, false, err
	}
	return configuration, true, nil
}

// newLogger writes JSON to the app log of a persisted configuration and
// warnings to stderr otherwise.
func newLogger(configuration *config.Configuration, persisted bool) (*zap.Logger, error) {
	if !persisted {
		return logger.New(logger.Config{Level: "warn", OutputPaths: []string{"stderr"}})
	}
	return logger.New(logger.Config{
		Level:       configuration.LogLevel,
		OutputPaths: []string{configuration.AppLogPath()},
	})
}

// exitStatusError carries a shell's non-zero exit status out of a command.
type exitStatusError int

func (e exitStatusError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "startsh",
	Short: "A shell over your bookmarks",
	Long: `startsh presents a bookmark tree as a filesystem and drives it with a
small Unix-like shell, locally or over SSH.`,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	var status exitStatusError
	if errors.As(err, &status) {
		os.Exit(int(status))
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
