package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pdf-layer-service/internal/domain"
	"pdf-layer-service/internal/pdf"
	"pdf-layer-service/internal/processor"
	"pdf-layer-service/internal/repository"
	"pdf-layer-service/pkg/logger"
)

// localUser owns the records the CLI writes.
const localUser = "local"

// snapshot is what process prints with --json.
type snapshot struct {
	Document *domain.Document    `json:"document"`
	Pages    []domain.PageBundle `json:"pages"`
	Failures []string            `json:"failures,omitempty"`
}

func processCmd(logLevel *string) *cobra.Command {
	var out string
	var scale float64
	var workers int
	var asJSON bool
	var dbPath string

	cmd := &cobra.Command{
		Use:   "process <file.pdf>",
		Short: "Segment and render every page of a PDF into an output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := args[0]
			if out == "" {
				out = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + "-layers"
			}
			log := logger.NewLogger(*logLevel)

			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			if err := copyFile(src, filepath.Join(out, domain.SourceFileName)); err != nil {
				return err
			}

			now := time.Now().UTC()
			doc := &domain.Document{
				ID:        uuid.New().String(),
				UserID:    localUser,
				Name:      filepath.Base(src),
				Source:    src,
				Status:    domain.StatusProcessing,
				CreatedAt: now,
				UpdatedAt: now,
			}

			proc := processor.NewProcessor(pdf.NewProvider(log), log, scale, workers)
			processed, report, err := proc.Process(cmd.Context(), out, doc)
			if err != nil {
				return err
			}
			processed.Status = domain.StatusCompleted
			processed.UpdatedAt = time.Now().UTC()

			bundles := make([]domain.PageBundle, 0, len(processed.Pages))
			for _, p := range processed.Pages {
				dir := path.Join(processor.PagesDir, domain.PageDirName(p.Number))
				bundles = append(bundles, p.Bundle(processed.ID, func(name string) string {
					return path.Join(dir, name)
				}))
			}

			if dbPath != "" {
				if err := saveRecords(cmd.Context(), dbPath, doc, processed, bundles); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if asJSON {
				snap := snapshot{Document: processed, Pages: bundles}
				for _, f := range report.Failures {
					snap.Failures = append(snap.Failures, f.Error())
				}
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}
			printSummary(w, processed, report, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output directory (default: <name>-layers)")
	cmd.Flags().Float64Var(&scale, "scale", 2.0, "pixels per PDF unit")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "pages processed concurrently")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the document snapshot as JSON")
	cmd.Flags().StringVar(&dbPath, "db", "", "also keep the records in this SQLite file")
	return cmd
}

// saveRecords stores the document and its bundles the way the service does:
// the record is created in the processing status and finished last.
func saveRecords(ctx context.Context, dbPath string, doc, processed *domain.Document, bundles []domain.PageBundle) error {
	db, err := repository.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	documents := repository.NewSQLiteDocumentRepository(db)
	if err := documents.Create(ctx, doc); err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	if err := repository.NewSQLitePageRepository(db).SaveBundles(ctx, doc.ID, bundles); err != nil {
		return fmt.Errorf("save page bundles: %w", err)
	}
	if err := documents.UpdateProcessing(ctx, processed); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, doc *domain.Document, report *processor.Report, out string) {
	fmt.Fprintf(w, "%s: %d pages, %d assets in %s\n", doc.Name, doc.PageCount, len(report.Assets), out)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tSIZE\tLAYERS\tZERO-AREA")
	for _, s := range doc.Summaries {
		kinds := make([]string, 0, len(s.Layers))
		for _, l := range s.Layers {
			kinds = append(kinds, fmt.Sprintf("%d:%s(%d)", l.ZIndex, l.Kind, l.ObjectCount))
		}
		fmt.Fprintf(tw, "%d\t%.0fx%.0f\t%s\t%d\n", s.Number, s.Width, s.Height, strings.Join(kinds, " "), s.ZeroAreaObjectCount)
	}
	tw.Flush()
	for _, f := range report.Failures {
		fmt.Fprintf(w, "failed: %v\n", f)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
