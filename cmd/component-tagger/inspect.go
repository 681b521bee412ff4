package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/twhy/react-component-tagger/pkg/position"
	"github.com/twhy/react-component-tagger/pkg/tagger"
)

// ErrUnsupportedFormat reports an unknown --format value.
var ErrUnsupportedFormat = errors.New("unsupported format")

// fileRecords is the inspect output for one file.
type fileRecords struct {
	Path    string          `json:"path"            yaml:"path"`
	Size    int             `json:"size"            yaml:"size"`
	Error   string          `json:"error,omitempty" yaml:"error,omitempty"`
	Records []tagger.Record `json:"records"         yaml:"records"`
}

func inspectCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect [files...]",
		Short: "List the annotation computed for every JSX tag",
		Long: `Show the records annotation would inject, without rewriting files.

Examples:
  component-tagger inspect src/App.tsx
  component-tagger inspect src -f json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInspect(cmd, args, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format (table, json, yaml)")

	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, args []string, format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	p, err := a.plugin(nil)
	if err != nil {
		return err
	}

	files, err := collectFiles(args, p.Eligible)
	if err != nil {
		return err
	}

	reports := make([]fileRecords, 0, len(files))

	for _, path := range files {
		//nolint:gosec // path is resolved by collectFiles.
		src, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}

		report := fileRecords{Path: p.Document(path, nil).RelPath, Size: len(src), Records: []tagger.Record{}}

		res, annotateErr := p.Annotate(cmd.Context(), src, path)
		if annotateErr != nil {
			report.Error = annotateErr.Error()
		} else if res.Records != nil {
			report.Records = res.Records
		}

		reports = append(reports, report)
	}

	out := cmd.OutOrStdout()

	switch format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		err = enc.Encode(reports)
	case formatYAML:
		enc := yaml.NewEncoder(out)
		err = enc.Encode(reports)

		if err == nil {
			err = enc.Close()
		}
	default:
		renderRecordTable(out, reports)
	}

	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}

	return nil
}

func renderRecordTable(w io.Writer, reports []fileRecords) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	tbl.AppendHeader(table.Row{"File", "Name", "Element", "Opening", "Map call", "Key", "Src", "Class"})

	var tags, size int

	for _, report := range reports {
		size += report.Size

		if report.Error != "" {
			tbl.AppendRow(table.Row{report.Path, "parse error: " + sanitizeForTerminal(report.Error)})

			continue
		}

		for _, rec := range report.Records {
			tags++

			tbl.AppendRow(table.Row{
				report.Path,
				rec.Name,
				spanString(&rec.Element),
				spanString(&rec.Opening),
				spanString(rec.MapCall),
				keyString(rec.HasKey),
				optional(rec.Src),
				optional(rec.Class),
			})
		}
	}

	tbl.AppendFooter(table.Row{
		fmt.Sprintf("%d file(s), %s", len(reports), humanize.Bytes(uint64(size))),
		fmt.Sprintf("Total: %d tags", tags),
	})

	tbl.Render()
}

func spanString(s *position.Span) string {
	if s == nil {
		return ""
	}

	return s.Start.String() + "-" + s.End.String()
}

func keyString(hasKey bool) string {
	if hasKey {
		return "yes"
	}

	return ""
}

func optional(s *string) string {
	if s == nil {
		return ""
	}

	return sanitizeForTerminal(*s)
}
