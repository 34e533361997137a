package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/harrisonrobin/planbridge/pkg/config"
	"github.com/harrisonrobin/planbridge/pkg/model"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFile = "planbridge.log"

var (
	cfg        *config.Config
	configPath string
	debug      bool
	logCloser  io.Closer
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "planbridge",
		Short:         "Convert OmniPlan exports into Acunote sprints",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if configPath == "" {
				cfg, err = config.Load()
			} else {
				cfg, err = config.LoadFrom(configPath)
			}
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debug") {
				cfg.Debug = debug
			}
			logCloser, err = setupLogging(cfg)
			return err
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/planbridge/config.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging and test sprint prefix")

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(pushCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(configCmd())

	os.Exit(run(rootCmd))
}

// run executes the command tree and returns the process exit code. The debug
// log file is closed on every path.
func run(rootCmd *cobra.Command) int {
	err := rootCmd.Execute()
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
	if err == nil {
		return 0
	}
	var logged *loggedError
	if !errors.As(err, &logged) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return 1
}

// setupLogging tees the log to a rotated file in the config directory when
// debug is on.
func setupLogging(cfg *config.Config) (io.Closer, error) {
	log.SetFlags(log.LstdFlags)
	if !cfg.Debug {
		return nil, nil
	}
	dir, err := config.GetConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFile),
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     28,
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.SetOutput(io.MultiWriter(os.Stderr, lj))
	return lj, nil
}

// loggedError is an error that was already written to the log.
type loggedError struct {
	err error
}

func (e *loggedError) Error() string { return e.err.Error() }

func (e *loggedError) Unwrap() error { return e.err }

// checkTree logs documents that cannot be converted at all. The returned
// error makes the process exit 1 without printing it a second time.
func checkTree(err error) error {
	var depthErr *model.DepthError
	if errors.As(err, &depthErr) {
		log.Printf("Error: %v", err)
		return &loggedError{err: err}
	}
	if errors.Is(err, model.ErrMalformedInput) {
		log.Printf("Error: malformed document: %v", err)
		return &loggedError{err: err}
	}
	return err
}
