package afs

import (
	"fmt"

	"github.com/mwantia/afs/data"
	"github.com/mwantia/afs/log"
)

type RegistryOptions struct {
	LogLevel      log.LogLevel
	LogFile       string
	NoTerminalLog bool

	// Logger replaces the logger built from the fields above
	Logger *log.Logger
}

type RegistryOption func(*RegistryOptions) error

func newDefaultRegistryOptions() *RegistryOptions {
	return &RegistryOptions{
		LogLevel: log.Info,
	}
}

func WithLogLevel(logLevel log.LogLevel) RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.LogLevel = logLevel
		return nil
	}
}

func WithoutTerminalLog() RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.NoTerminalLog = true
		return nil
	}
}

func WithLogFile(logFile string) RegistryOption {
	return func(opts *RegistryOptions) error {
		opts.LogFile = logFile

		return nil
	}
}

// WithLogger makes the registry and its dispatchers log through logger.
func WithLogger(logger *log.Logger) RegistryOption {
	return func(opts *RegistryOptions) error {
		if logger == nil {
			return fmt.Errorf("%w: nil logger", data.ErrInvalid)
		}
		opts.Logger = logger
		return nil
	}
}

func (opts *RegistryOptions) newLogger() *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return log.NewLogger("afs", opts.LogLevel, opts.LogFile, opts.NoTerminalLog)
}
