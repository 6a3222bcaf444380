package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/layering"
	"pdf-layer-service/internal/pdf"
	"pdf-layer-service/pkg/logger"
)

// pageSegments is the inspect output of one page.
type pageSegments struct {
	Number   int                   `json:"number"`
	Layers   []domain.LayerSummary `json:"layers"`
	ZeroArea []domain.Primitive    `json:"zero_area_objects"`
}

func inspectCmd(logLevel *string) *cobra.Command {
	var page int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Print the layer segmentation of a PDF without rendering",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := pdf.NewProvider(logger.NewLogger(*logLevel)).Open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer src.Close()

			first, last := 0, src.PageCount()-1
			if page > 0 {
				if page > src.PageCount() {
					return fmt.Errorf("page %d out of range, document has %d pages", page, src.PageCount())
				}
				first, last = page-1, page-1
			}

			var pages []pageSegments
			for i := first; i <= last; i++ {
				raws, err := src.Primitives(i)
				if err != nil {
					return fmt.Errorf("page %d: %w", i+1, err)
				}
				seg := layering.Segment(raws)
				ps := pageSegments{Number: i + 1, ZeroArea: seg.Degenerate}
				for _, z := range seg.SortedZ() {
					l := seg.Layers[z]
					ps.Layers = append(ps.Layers, domain.LayerSummary{
						ZIndex:      l.ZIndex,
						Kind:        l.Kind,
						ObjectCount: l.ObjectCount(),
						IDRange:     l.IDRange(),
					})
				}
				pages = append(pages, ps)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(pages)
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PAGE\tZ\tKIND\tOBJECTS\tRANGE")
			for _, p := range pages {
				for _, l := range p.Layers {
					fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\n", p.Number, l.ZIndex, l.Kind, l.ObjectCount, l.IDRange)
				}
				if len(p.ZeroArea) > 0 {
					fmt.Fprintf(tw, "%d\t-\tzero-area\t%d\t\n", p.Number, len(p.ZeroArea))
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "1-based page to inspect (default: all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
