package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/twhy/react-component-tagger/pkg/plugin"
)

// Sentinel errors for the transform command.
var (
	ErrMapNeedsOutDir  = errors.New("--map requires --out-dir")
	ErrNoInput         = errors.New("no input files (pass files or --stdin-path)")
	ErrMapModeConflict = errors.New("--map and --inline-map are mutually exclusive")
	ErrUnreadableFiles = errors.New("some files could not be read")
)

type transformOptions struct {
	outDir    string
	mapFile   bool
	inlineMap bool
	stdinPath string
}

func transformCmd(a *app) *cobra.Command {
	var opts transformOptions

	cmd := &cobra.Command{
		Use:   "transform [files...]",
		Short: "Annotate files and print or write the result",
		Long: `Annotate JSX files. Directories are walked for eligible files.

Examples:
  component-tagger transform src/App.tsx                 # print to stdout
  component-tagger transform src --out-dir build --map   # mirror into build/ with .map files
  cat App.jsx | component-tagger transform --stdin-path src/App.jsx --inline-map`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTransform(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.outDir, "out-dir", "o", "", "write results under this directory instead of stdout")
	cmd.Flags().BoolVar(&opts.mapFile, "map", false, "write a .map file next to each output")
	cmd.Flags().BoolVar(&opts.inlineMap, "inline-map", false, "append the source map as a data URL comment")
	cmd.Flags().StringVar(&opts.stdinPath, "stdin-path", "", "read source from stdin and use this path as its identity")

	return cmd
}

func (a *app) runTransform(cmd *cobra.Command, args []string, opts transformOptions) error {
	if opts.mapFile && opts.inlineMap {
		return ErrMapModeConflict
	}

	if opts.mapFile && opts.outDir == "" {
		return ErrMapNeedsOutDir
	}

	p, err := a.plugin(func(o *plugin.Options) { o.Logger = a.logger(cmd.ErrOrStderr()) })
	if err != nil {
		return err
	}

	if opts.stdinPath != "" {
		return a.transformStdin(cmd, p, opts)
	}

	if len(args) == 0 {
		return ErrNoInput
	}

	files, err := collectFiles(args, p.Eligible)
	if err != nil {
		return err
	}

	results, err := p.TransformFiles(cmd.Context(), files, a.cfg.Workers)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}

	var sum transformSummary

	for _, res := range results {
		err = a.emit(cmd, p, res, opts, &sum)
		if err != nil {
			return err
		}
	}

	if !a.quiet {
		sum.print(cmd.ErrOrStderr())
	}

	if sum.unreadable > 0 {
		return fmt.Errorf("%w: %d", ErrUnreadableFiles, sum.unreadable)
	}

	return nil
}

func (a *app) transformStdin(cmd *cobra.Command, p *plugin.Plugin, opts transformOptions) error {
	src, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	path := p.Document(opts.stdinPath, nil).Path

	res := plugin.FileResult{
		Path:   path,
		Source: src,
		Output: p.Transform(cmd.Context(), string(src), path),
	}

	var sum transformSummary

	return a.emit(cmd, p, res, opts, &sum)
}

// emit writes one result to stdout or the output directory. Documents that
// were not transformed pass through unchanged.
func (a *app) emit(cmd *cobra.Command, p *plugin.Plugin, res plugin.FileResult, opts transformOptions, sum *transformSummary) error {
	if res.Err != nil {
		sum.unreadable++

		color.New(color.FgRed).Fprintf(cmd.ErrOrStderr(), "error: %s\n", sanitizeForTerminal(res.Err.Error()))

		return nil
	}

	if res.Source == nil && res.Output == nil {
		sum.skipped++

		return nil
	}

	code, mapData := render(res, opts, filepath.Base(res.Path))

	sum.count(res)

	if opts.outDir == "" {
		_, err := cmd.OutOrStdout().Write(code)
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil
	}

	target, err := outputPath(opts.outDir, p.Root(), res.Path)
	if err != nil {
		return err
	}

	err = writeFile(target, code)
	if err != nil {
		return err
	}

	sum.bytes += uint64(len(code))

	if mapData != nil {
		err = writeFile(target+".map", mapData)
		if err != nil {
			return err
		}

		sum.bytes += uint64(len(mapData))
	}

	return nil
}

// render returns the output text and, in --map mode, the map file contents.
func render(res plugin.FileResult, opts transformOptions, base string) (code, mapData []byte) {
	if res.Output == nil {
		return res.Source, nil
	}

	text := res.Output.Code

	switch {
	case opts.inlineMap:
		text += "\n" + res.Output.Map.Comment() + "\n"
	case opts.mapFile:
		text += "\n//# sourceMappingURL=" + base + ".map\n"
		mapData = []byte(res.Output.Map.String())
	}

	return []byte(text), mapData
}

type transformSummary struct {
	annotated  int
	unchanged  int
	failed     int
	skipped    int
	unreadable int
	bytes      uint64
}

func (s *transformSummary) count(res plugin.FileResult) {
	switch {
	case res.Output == nil:
		s.failed++
	case res.Output.Code != string(res.Source):
		s.annotated++
	default:
		s.unchanged++
	}
}

func (s *transformSummary) print(w io.Writer) {
	green := color.New(color.FgGreen)
	green.Fprintf(w, "annotated %d file(s)", s.annotated)
	fmt.Fprintf(w, ", %d unchanged, %d skipped", s.unchanged, s.skipped)

	if s.failed > 0 {
		color.New(color.FgYellow).Fprintf(w, ", %d passed through after parse errors", s.failed)
	}

	if s.bytes > 0 {
		fmt.Fprintf(w, ", wrote %s", humanize.Bytes(s.bytes))
	}

	fmt.Fprintln(w)
}
