package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
)

func diffCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "diff [files...]",
		Short: "Show the lines annotation would change",
		Long: `Print a line diff between each file and its annotated form.

Examples:
  component-tagger diff src/App.tsx
  component-tagger diff src --exclude Fragment`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDiff(cmd, args)
		},
	}
}

func (a *app) runDiff(cmd *cobra.Command, args []string) error {
	p, err := a.plugin(nil)
	if err != nil {
		return err
	}

	files, err := collectFiles(args, p.Eligible)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, path := range files {
		//nolint:gosec // path is resolved by collectFiles.
		src, readErr := os.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}

		res, annotateErr := p.Annotate(cmd.Context(), src, path)
		if annotateErr != nil {
			color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "skip: %s\n", sanitizeForTerminal(annotateErr.Error()))

			continue
		}

		if !res.Changed() {
			continue
		}

		rel := p.Document(path, nil).RelPath
		writeLineDiff(out, rel, string(src), res.Code)
	}

	return nil
}

// writeLineDiff prints a line-granular diff with ---/+++ headers.
func writeLineDiff(w io.Writer, name, before, after string) {
	dmp := diffmatchpatch.New()

	chars1, chars2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	fmt.Fprintf(w, "--- a/%s\n+++ b/%s\n", name, name)

	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")

		for line := range strings.SplitSeq(text, "\n") {
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				removed.Fprintf(w, "-%s\n", line)
			case diffmatchpatch.DiffInsert:
				added.Fprintf(w, "+%s\n", line)
			case diffmatchpatch.DiffEqual:
				// unchanged lines are omitted
			}
		}
	}
}
