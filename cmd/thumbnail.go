package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var thumbnailCmd = &cobra.Command{
	Use:   "thumbnail <slide>",
	Short: "Export a whole-slide preview image",
	Long: `Export a preview of the whole slide, downsampled to fit inside the
requested bounding box with the aspect ratio preserved.

Examples:
  wsi-reader thumbnail scan.svs --width 1024 --height 1024 -o preview.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runThumbnail,
}

func init() {
	rootCmd.AddCommand(thumbnailCmd)

	thumbnailCmd.Flags().Int("width", 512, "maximum thumbnail width")
	thumbnailCmd.Flags().Int("height", 512, "maximum thumbnail height")
	thumbnailCmd.Flags().StringP("output", "o", "thumbnail.png", "output image file (format from extension)")
	thumbnailCmd.Flags().Bool("normalize", false, "rescale samples into [0,1] before encoding")

	viper.BindPFlag("thumbnail.width", thumbnailCmd.Flags().Lookup("width"))
	viper.BindPFlag("thumbnail.height", thumbnailCmd.Flags().Lookup("height"))
	viper.BindPFlag("thumbnail.output", thumbnailCmd.Flags().Lookup("output"))
	viper.BindPFlag("thumbnail.normalize", thumbnailCmd.Flags().Lookup("normalize"))
}

func runThumbnail(cmd *cobra.Command, args []string) error {
	width := viper.GetInt("thumbnail.width")
	height := viper.GetInt("thumbnail.height")
	if width <= 0 || height <= 0 {
		return fmt.Errorf("thumbnail bounds must be positive")
	}

	slide, err := newRegistry().Open(args[0])
	if err != nil {
		return err
	}
	defer slide.Close()

	region, err := slide.Thumbnail(width, height, viper.GetBool("thumbnail.normalize"))
	if err != nil {
		return err
	}

	output := viper.GetString("thumbnail.output")
	if err := saveRegion(region, output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %dx%d thumbnail to %s\n", region.Width, region.Height, output)
	return nil
}
