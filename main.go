package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/svanichkin/pngview/internal/logging"
	"github.com/svanichkin/pngview/png"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// app holds what the root command's persistent flags configure.
type app struct {
	stderr io.Writer
	log    zerolog.Logger

	logLevel   string
	maxPixels  int64
	lenient    bool
	truncate16 bool
	noAdler    bool
}

// run executes the command line and logs a failure before returning it.
func run(args []string, stdout, stderr io.Writer) error {
	a := &app{stderr: stderr, log: logging.New(stderr, zerolog.InfoLevel)}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err != nil {
		a.log.Error().Stack().Err(err).Msg("pngview failed")
	}
	return err
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pngview",
		Short:         "Decode and inspect PNG files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(a.logLevel)
			if err != nil {
				return err
			}
			a.log = logging.New(a.stderr, level)
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: trace, debug, info, warn, error")
	flags.Int64Var(&a.maxPixels, "max-pixels", 0, "refuse images with more pixels than this (0 for the default)")
	flags.BoolVar(&a.lenient, "lenient", false, "skip ancillary chunks with a bad CRC instead of failing")
	flags.BoolVar(&a.truncate16, "truncate16", false, "reduce 16-bit samples to 8 bits")
	flags.BoolVar(&a.noAdler, "ignore-adler32", false, "do not verify the zlib checksum")

	root.AddCommand(a.decodeCommand(), a.chunksCommand(), a.showCommand())
	return root
}

// decodeConfig turns the persistent flags into a png.Config.
func (a *app) decodeConfig() png.Config {
	return png.Config{
		MaxPixels:           a.maxPixels,
		LenientAncillaryCRC: a.lenient,
		IgnoreAdler32:       a.noAdler,
		Truncate16:          a.truncate16,
		Logger:              &a.log,
	}
}

func formatSize(size int64) string {
	if size < 1024*1024 {
		return fmt.Sprintf("%.2f KB", float64(size)/1024)
	}
	return fmt.Sprintf("%.2f MB", float64(size)/(1024*1024))
}
