package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pixpress/internal/config"
	"pixpress/internal/pipeline"
)

var (
	previewMaxSize uint32
	previewDataURI bool
)

var previewCmd = &cobra.Command{
	Use:   "preview [flags] <image>",
	Short: "Print a base64 JPEG preview of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := pipeline.Load(args[0])
		if err != nil {
			return err
		}
		encoded, err := pipeline.GeneratePreview(src.Upright(), previewMaxSize)
		if err != nil {
			return err
		}
		if previewDataURI {
			encoded = "data:image/jpeg;base64," + encoded
		}
		fmt.Fprintln(os.Stdout, encoded)
		return nil
	},
}

func init() {
	previewCmd.Flags().Uint32Var(&previewMaxSize, "max-size", config.DefaultPreviewSize, "longest edge of the preview in pixels")
	previewCmd.Flags().BoolVar(&previewDataURI, "data-uri", false, "prefix the output with a data: URI header")

	rootCmd.AddCommand(previewCmd)
}
