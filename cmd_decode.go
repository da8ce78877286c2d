package main

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/svanichkin/pngview/internal/export"
	"github.com/svanichkin/pngview/internal/oops"
	"github.com/svanichkin/pngview/png"
)

var errUnknownFormat = errors.New("unknown output format")

// writers maps an output format name to its encoder. The name doubles as the
// file extension.
var writers = map[string]func(io.Writer, *png.Image) error{
	"ppm": func(w io.Writer, img *png.Image) error { return export.WritePPM(w, img, color.NRGBA{A: 0xff}) },
	"pam": export.WritePAM,
	"qoi": export.WriteQOI,
	"pxz": export.WriteDump,
}

func (a *app) decodeCommand() *cobra.Command {
	var outPath, format string
	cmd := &cobra.Command{
		Use:   "decode <input.png>",
		Short: "Decode a PNG file and write its pixels in another format",
		Long: "Decode a PNG file and write its pixels as PPM, PAM, QOI or a zstd-compressed raw dump (pxz).\n" +
			"The format comes from --format, else from the extension of --output, else ppm. " +
			"An --output extension that names no known format is an error. " +
			"Use --output - to write to standard output.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inPath := args[0]
			ext, err := outputFormat(format, outPath)
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = strings.TrimSuffix(inPath, filepath.Ext(inPath)) + "." + ext
			}

			data, err := loadFile(inPath)
			if err != nil {
				return err
			}
			start := time.Now()
			img, err := a.decodeConfig().Decode(data)
			if err != nil {
				return oops.New(err, "decoding %s", inPath)
			}
			finish := time.Since(start)

			if outPath == "-" {
				return writers[ext](cmd.OutOrStdout(), img)
			}
			outSize, err := writeFile(outPath, img, writers[ext])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) → %s (%s)\n",
				inPath,
				formatSize(int64(len(data))),
				outPath,
				formatSize(outSize),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%dx%d %s depth=%d, time=%s\n",
				img.Width,
				img.Height,
				img.Header.ColorType,
				img.Header.BitDepth,
				finish,
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: ppm, pam, qoi, pxz")
	return cmd
}

func outputFormat(format, outPath string) (string, error) {
	if format == "" && outPath != "" && outPath != "-" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(outPath)), ".")
	}
	if format == "" {
		format = "ppm"
	}
	format = strings.ToLower(format)
	if _, ok := writers[format]; !ok {
		return "", oops.New(errUnknownFormat, "%q", format)
	}
	return format, nil
}

func writeFile(path string, img *png.Image, write func(io.Writer, *png.Image) error) (int64, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, oops.New(err, "creating output")
	}
	if err := write(out, img); err != nil {
		out.Close()
		return 0, oops.New(err, "writing %s", path)
	}
	info, err := out.Stat()
	if err != nil {
		out.Close()
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, oops.New(err, "closing %s", path)
	}
	return info.Size(), nil
}
