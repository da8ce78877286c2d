package main

import (
	"bytes"
	"encoding/hex"
	"errors"
	"image/color"
	"strings"

	"github.com/spf13/cobra"

	"github.com/svanichkin/pngview/internal/export"
	"github.com/svanichkin/pngview/internal/oops"
	"github.com/svanichkin/pngview/png"
)

var errBadColor = errors.New("bad color")

func (a *app) showCommand() *cobra.Command {
	var cols int
	var background string
	cmd := &cobra.Command{
		Use:   "show <input.png|input.pxz|input.qoi>",
		Short: "Render an image in a truecolor terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bg, err := parseColor(background)
			if err != nil {
				return err
			}
			data, err := loadFile(args[0])
			if err != nil {
				return err
			}

			var img *png.Image
			switch {
			case bytes.HasPrefix(data, []byte(export.DumpMagic)):
				img, err = export.ReadDump(bytes.NewReader(data))
			case bytes.HasPrefix(data, []byte(export.QOIMagic)):
				img, err = export.ReadQOI(bytes.NewReader(data))
			default:
				img, err = a.decodeConfig().Decode(data)
			}
			if err != nil {
				return oops.New(err, "loading %s", args[0])
			}
			a.log.Debug().Int("width", img.Width).Int("height", img.Height).Int("cols", cols).Msg("rendering preview")
			return export.WritePreview(cmd.OutOrStdout(), img, cols, bg)
		},
	}
	cmd.Flags().IntVar(&cols, "cols", 0, "preview width in terminal columns (0 for up to 80)")
	cmd.Flags().StringVar(&background, "bg", "000000", "background for transparent pixels, as rrggbb")
	return cmd
}

func parseColor(s string) (color.NRGBA, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil || len(b) != 3 {
		return color.NRGBA{}, oops.New(errBadColor, "%q", s)
	}
	return color.NRGBA{R: b[0], G: b[1], B: b[2], A: 0xff}, nil
}
