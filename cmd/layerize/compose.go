package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pdf-layer-service/internal/compose"
	"pdf-layer-service/internal/render"
)

func composeCmd() *cobra.Command {
	var layers string
	var out string
	var width int

	cmd := &cobra.Command{
		Use:   "compose <page-dir>",
		Short: "Stack selected layer rasters of a processed page in z order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zs, err := compose.ParseLayers(layers)
			if err != nil {
				return err
			}
			img, err := compose.Layers(args[0], zs, width)
			if err != nil {
				return err
			}
			if err := render.WritePNG(out, img); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%dx%d)\n", out, img.Bounds().Dx(), img.Bounds().Dy())
			return nil
		},
	}
	cmd.Flags().StringVar(&layers, "layers", "", "comma-separated z-indexes, e.g. 1,3")
	cmd.Flags().StringVarP(&out, "out", "o", "composed.png", "output PNG")
	cmd.Flags().IntVar(&width, "width", 0, "scale the result to this width (0 keeps the size)")
	_ = cmd.MarkFlagRequired("layers")
	return cmd
}
