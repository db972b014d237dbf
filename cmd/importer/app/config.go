package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Config struct {
	DBPath       string
	Name         string
	Files        []string
	List         bool
	MaxBatchSize int
	LogLevel     slog.Level
	Output       io.Writer
}

func NewConfig() *Config {
	return &Config{
		LogLevel: slog.LevelInfo,
		Output:   os.Stdout,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return NewConfigFromArgs(os.Args[1:], os.Stderr)
}

// NewConfigFromArgs parses command line arguments. Usage is printed to output
// when the arguments are invalid.
func NewConfigFromArgs(args []string, output io.Writer) (*Config, error) {
	c := NewConfig()

	fs := flag.NewFlagSet("importer", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: importer -db <file> [-name <name>] <spectrum.json>...")
		fmt.Fprintln(fs.Output(), "       importer -db <file> -list")
		fs.PrintDefaults()
	}

	var verbose bool
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.StringVar(&c.Name, "name", "", "Session name (default: dataset file name)")
	fs.BoolVar(&c.List, "list", false, "List stored sessions")
	fs.IntVar(&c.MaxBatchSize, "batch", 0, "Maximum number of frames per insert statement")
	fs.BoolVar(&verbose, "verbose", false, "Enable more verbose output")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	c.Files = fs.Args()
	if verbose {
		c.LogLevel = slog.LevelDebug
	}

	var err error
	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.List && len(c.Files) > 0:
		err = errors.New("-list does not take dataset files")
	case !c.List && len(c.Files) == 0:
		err = errors.New("at least one dataset file is required")
	case c.Name != "" && len(c.Files) > 1:
		err = errors.New("-name can only be used with a single dataset file")
	case c.MaxBatchSize < 0:
		err = fmt.Errorf("invalid batch size: %d", c.MaxBatchSize)
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}
	return c, nil
}
