package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/svanichkin/pngview/internal/oops"
	"github.com/svanichkin/pngview/png"
)

func (a *app) chunksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chunks <input.png>",
		Short: "List the chunks of a PNG file",
		Long:  "List every chunk up to IEND with its offset, length and CRC. Chunks read before an error are still listed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadFile(args[0])
			if err != nil {
				return err
			}
			infos, inspectErr := png.Inspect(data)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tTYPE\tOFFSET\tLENGTH\tCRC\tCRITICAL")
			for _, c := range infos {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%08x\t%t\n", c.Index, c.Type, c.Offset, c.Length, c.CRC, c.Critical)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d chunks\n", len(infos))

			if inspectErr != nil {
				return oops.New(inspectErr, "reading chunks of %s", args[0])
			}
			if h, err := png.DecodeConfig(data); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		},
	}
}
