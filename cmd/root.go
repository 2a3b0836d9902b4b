package cmd

import (
	"fmt"
	"os"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/GeorgeBatch/wsi-reader/pkg/wsi"
	"github.com/GeorgeBatch/wsi-reader/pkg/wsi/imagefile"
	"github.com/GeorgeBatch/wsi-reader/pkg/wsi/tiff"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wsi-reader",
	Short: "Read regions out of multi-resolution whole-slide images",
	Long: `wsi-reader extracts pixel regions from gigapixel pyramidal images.

Regions are addressed either by pyramid level (with coordinates in that
level's pixel space) or by an arbitrary downsample factor (with coordinates
in the downsampled frame). Regions may extend beyond the slide bounds;
out-of-bounds pixels are written transparent.

Examples:
  # Extract a level-0 region to a PNG
  wsi-reader --slide scan.svs --level 0 --x 20000 --y 14000 --width 512 --height 512 -o region.png

  # Extract at 10x downsample, resampled from the full-resolution level
  wsi-reader --slide scan.svs --downsample 10 --x 100 --y 100 --width 1024 --height 1024 --downsample-level0 -o region.png

  # Inspect the pyramid
  wsi-reader info scan.svs

  # Export a bounded whole-slide preview
  wsi-reader thumbnail scan.svs --width 1024 --height 1024 -o preview.jpg

  # Serve a slide directory over HTTP
  wsi-reader serve --root /data/slides --port 8080`,
	// If no slide is given, show help; otherwise run the extraction.
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("slide") == "" {
			return cmd.Help()
		}
		return runExtract(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wsi-reader.yaml)")

	rootCmd.Flags().String("slide", "", "slide file to read (required)")
	rootCmd.Flags().StringP("output", "o", "region.png", "output image file (format from extension)")

	// Addressing: pick a stored level or an arbitrary downsample factor.
	rootCmd.Flags().Int("level", 0, "pyramid level to read")
	rootCmd.Flags().Float64("downsample", 0, "downsample factor to read at (overrides --level)")
	rootCmd.Flags().Int("x", 0, "region left edge")
	rootCmd.Flags().Int("y", 0, "region top edge")
	rootCmd.Flags().Int("width", 0, "region width in pixels (required)")
	rootCmd.Flags().Int("height", 0, "region height in pixels (required)")

	rootCmd.Flags().Bool("normalize", false, "rescale samples into [0,1] before encoding")
	rootCmd.Flags().Bool("downsample-level0", false, "resample from the full-resolution level instead of a stored level")

	viper.BindPFlag("slide", rootCmd.Flags().Lookup("slide"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("level", rootCmd.Flags().Lookup("level"))
	viper.BindPFlag("downsample", rootCmd.Flags().Lookup("downsample"))
	viper.BindPFlag("x", rootCmd.Flags().Lookup("x"))
	viper.BindPFlag("y", rootCmd.Flags().Lookup("y"))
	viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	viper.BindPFlag("height", rootCmd.Flags().Lookup("height"))
	viper.BindPFlag("normalize", rootCmd.Flags().Lookup("normalize"))
	viper.BindPFlag("downsample-level0", rootCmd.Flags().Lookup("downsample-level0"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".wsi-reader" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wsi-reader")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newRegistry assembles the format registry. Formats are registered here,
// at the composition root, rather than through package-level side effects.
func newRegistry() *wsi.Registry {
	registry := wsi.NewRegistry()
	registry.Register(tiff.Format())
	registry.Register(imagefile.Format())
	return registry
}

func runExtract(cmd *cobra.Command, args []string) error {
	width := viper.GetInt("width")
	height := viper.GetInt("height")
	if width <= 0 || height <= 0 {
		return fmt.Errorf("region size is required (use --width and --height)")
	}

	slide, err := newRegistry().Open(viper.GetString("slide"))
	if err != nil {
		return err
	}
	defer slide.Close()

	opts := &wsi.ReadOptions{
		Normalize:        viper.GetBool("normalize"),
		DownsampleLevel0: viper.GetBool("downsample-level0"),
	}
	x := viper.GetInt("x")
	y := viper.GetInt("y")

	var region *wsi.Region
	if ds := viper.GetFloat64("downsample"); ds > 0 {
		region, err = slide.ReadRegionDownsample(x, y, ds, width, height, opts)
	} else {
		region, err = slide.ReadRegion(x, y, viper.GetInt("level"), width, height, opts)
	}
	if err != nil {
		return err
	}

	output := viper.GetString("output")
	if err := saveRegion(region, output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %dx%d region to %s\n", region.Width, region.Height, output)
	return nil
}

// saveRegion encodes a region into an image file, picking the format from
// the file extension.
func saveRegion(region *wsi.Region, path string) error {
	return imaging.Save(region.Image(), path, imaging.JPEGQuality(90))
}
