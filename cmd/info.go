package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <slide>",
	Short: "Print the pyramid level table and calibration of a slide",
	Long: `Print slide metadata: pixel type, channel count, the full level table
(dimensions, downsample factors, native tile sizes) and the
microns-per-pixel calibration when the file carries one.

Examples:
  wsi-reader info scan.svs`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	slide, err := newRegistry().Open(args[0])
	if err != nil {
		return err
	}
	defer slide.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "slide:    %s\n", args[0])
	fmt.Fprintf(out, "dtype:    %s\n", slide.DType())
	fmt.Fprintf(out, "channels: %d\n", slide.NumChannels())
	if x, y, ok := slide.MPP(); ok {
		fmt.Fprintf(out, "mpp:      %.4f x %.4f\n", x, y)
	} else {
		fmt.Fprintf(out, "mpp:      unknown\n")
	}
	fmt.Fprintln(out)

	dims := slide.LevelDimensions()
	tiles := slide.TileDimensions()
	downsamples := slide.LevelDownsamples()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LEVEL\tWIDTH\tHEIGHT\tDOWNSAMPLE\tTILE")
	for i := 0; i < slide.LevelCount(); i++ {
		fmt.Fprintf(w, "%d\t%d\t%d\t%g\t%dx%d\n",
			i, dims[i].X, dims[i].Y, downsamples[i], tiles[i].X, tiles[i].Y)
	}
	return w.Flush()
}
