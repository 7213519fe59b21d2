package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contexter/internal/change"
	"contexter/internal/container"
	"contexter/internal/diff"
	"contexter/internal/errors"
	"contexter/internal/patch"
	"contexter/internal/sanitize"
	"contexter/internal/snapshot"
	"contexter/internal/workspace"
)

// formatFor picks the encoding from the file extension, or the configured
// format when the extension says nothing
func formatFor(path string) container.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return container.FormatHTML
	case ".md", ".markdown", ".txt":
		return container.FormatMarkdown
	}
	if f, err := container.ParseFormat(cfg.Format); err == nil {
		return f
	}
	return container.FormatMarkdown
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.InputNotFound(path, err)
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func readContainer(path string) (*snapshot.Document, error) {
	text, err := readFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := container.DecodeString(container.ForFormat(formatFor(path)), text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func writeContainer(path string, doc *snapshot.Document) error {
	out, err := container.EncodeString(container.ForFormat(formatFor(path)), doc)
	if err != nil {
		return err
	}
	return workspace.WriteFileAtomic(path, []byte(out), 0o644)
}

func readPatch(path string) (*diff.PatchSet, error) {
	text, err := readFile(path)
	if err != nil {
		return nil, err
	}
	ps, err := patch.DecodeString(patch.ForFormat(formatFor(path)), text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ps, nil
}

func writePatch(path string, ps *diff.PatchSet) error {
	out, err := patch.EncodeString(patch.ForFormat(formatFor(path)), ps)
	if err != nil {
		return err
	}
	return workspace.WriteFileAtomic(path, []byte(out), 0o644)
}

func newIgnore() *workspace.Ignore {
	ig := workspace.DefaultIgnore()
	if err := ig.Add(cfg.Exclude...); err != nil {
		logger.Warn("Some exclude patterns were ignored", zap.Error(err))
	}
	return ig
}

func newEngine() *diff.Engine {
	return diff.NewEngine(cfg.ContextLines)
}

// detectorExcludes are the patterns the mirror must skip for project: the
// configured ones, the project's ignore file, and any output file that
// lives inside the project
func detectorExcludes(project string, outputs ...string) []string {
	scanner := workspace.NewScanner(newIgnore(), cfg.IgnoreFile, logger)
	excludes := scanner.IgnoreFor(project).Patterns()

	absProject, err := filepath.Abs(project)
	if err != nil {
		return excludes
	}
	for _, out := range outputs {
		if out == "" {
			continue
		}
		abs, err := filepath.Abs(out)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(absProject, abs)
		if err == nil && !strings.HasPrefix(rel, "..") {
			// the atomic writer's temp file appears next to the output
			excludes = append(excludes, "/"+filepath.ToSlash(rel), "."+filepath.Base(abs)+".tmp-*")
		}
	}
	return excludes
}

// newSink writes the patch set to patchOut, or applies it to the container
// at containerPath
func newSink(patchOut, containerPath string) (change.Sink, error) {
	if (patchOut == "") == (containerPath == "") {
		return nil, fmt.Errorf("exactly one of --patch or --container is required")
	}
	if patchOut != "" {
		return func(_ context.Context, ps *diff.PatchSet) error {
			return writePatch(patchOut, ps)
		}, nil
	}
	return func(_ context.Context, ps *diff.PatchSet) error {
		doc, err := readContainer(containerPath)
		if err != nil {
			return err
		}
		updated, report, err := patch.NewApplier(logger).Apply(doc.Snapshot, ps)
		if err != nil {
			return err
		}
		doc.Snapshot = updated
		if err := writeContainer(containerPath, doc); err != nil {
			return err
		}
		logger.Info("Container updated", zap.String("path", containerPath), zap.Int("files", report.Total()))
		return nil
	}, nil
}

func newDetector(project, patchOut, containerPath string) (*change.Detector, func() error, error) {
	mirror, closeFn, err := change.NewMirror(cfg.Mirror, project, logger)
	if err != nil {
		return nil, nil, err
	}
	excludes := detectorExcludes(project, patchOut, containerPath)
	var opts []change.DetectorOption
	if containerPath != "" && formatFor(containerPath).TrimsText() {
		opts = append(opts, change.WithTrimmedText())
	}
	return change.NewDetector(mirror, newEngine(), excludes, logger, opts...), closeFn, nil
}

func printOutcome(res *change.Result, patchOut, containerPath string) {
	switch res.Outcome {
	case change.Initialized:
		success("Baseline created, nothing to patch yet")
	case change.Unchanged:
		fmt.Println("No changes detected")
	case change.Patched:
		printReport(res.Report)
		stats := res.Patch.Stats()
		target := patchOut
		if target == "" {
			target = containerPath
		}
		success("%d file(s) changed (%s, %s) → %s",
			res.Patch.Len(),
			color.GreenString("+%d", stats.Additions),
			color.RedString("-%d", stats.Deletions),
			target)
	}
}

func init() {
	var buildCmd = &cobra.Command{
		Use:   "build [paths...]",
		Short: "Pack files and directories into a container",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			noTree, _ := cmd.Flags().GetBool("no-tree")

			scanner := workspace.NewScanner(newIgnore(), cfg.IgnoreFile, logger)
			scanner.SkipFile(out)

			var doc *snapshot.Document
			err := spin("Scanning "+strings.Join(args, ", "), func() error {
				var err error
				doc, err = scanner.Build(args, !noTree)
				return err
			})
			if err != nil {
				return err
			}
			if err := writeContainer(out, doc); err != nil {
				return err
			}
			text, binary := doc.Snapshot.Counts()
			success("Packed %d file(s), %d binary placeholder(s) into %s", text, binary, out)
			return nil
		},
	}
	buildCmd.Flags().StringP("output", "o", "context.md", "container to write (.md or .html)")
	buildCmd.Flags().Bool("no-tree", false, "leave out the directory structure summary")

	var reconstructCmd = &cobra.Command{
		Use:   "reconstruct <container>",
		Short: "Recreate the files of a container on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("output")
			doc, err := readContainer(args[0])
			if err != nil {
				return err
			}
			n, err := workspace.Materialize(doc.Snapshot, dir, logger)
			if err != nil {
				return err
			}
			success("Wrote %d file(s) to %s", n, dir)
			return nil
		},
	}
	reconstructCmd.Flags().StringP("output", "o", ".", "directory to write into")

	var sanitizeCmd = &cobra.Command{
		Use:   "sanitize <container>",
		Short: "Repair missing or broken fences in a text container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = args[0]
			}
			text, err := readFile(args[0])
			if err != nil {
				return err
			}
			fixed, report := sanitize.Sanitize(text)
			if !report.Changed() && out == args[0] {
				fmt.Println("Container is already well formed")
				return nil
			}
			if err := workspace.WriteFileAtomic(out, []byte(fixed), 0o644); err != nil {
				return err
			}
			success("%d fence(s) opened, %d closed, %d CRLF line(s) normalized → %s",
				report.OpenedFences, report.ClosedFences+boolInt(report.ClosedAtEOF), report.CRLFLines, out)
			return nil
		},
	}
	sanitizeCmd.Flags().StringP("output", "o", "", "write the repaired container here instead of in place")

	var convertCmd = &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a container between the text and HTML forms",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readContainer(args[0])
			if err != nil {
				return err
			}
			if err := writeContainer(args[1], doc); err != nil {
				return err
			}
			success("Converted %s → %s", args[0], args[1])
			return nil
		},
	}

	var diffCmd = &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Compute the patch between two containers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			oldDoc, err := readContainer(args[0])
			if err != nil {
				return err
			}
			newDoc, err := readContainer(args[1])
			if err != nil {
				return err
			}

			prev, next := container.Comparable(oldDoc.Snapshot, newDoc.Snapshot, formatFor(args[0]), formatFor(args[1]))
			ps := newEngine().Snapshots(prev, next)
			if out == "" {
				text, err := patch.EncodeString(patch.TextCodec{}, ps)
				if err != nil {
					return err
				}
				printColoredDiff(os.Stdout, text)
				return nil
			}
			if err := writePatch(out, ps); err != nil {
				return err
			}
			stats := ps.Stats()
			success("%d file(s) changed (+%d -%d) → %s", ps.Len(), stats.Additions, stats.Deletions, out)
			return nil
		},
	}
	diffCmd.Flags().StringP("output", "o", "", "patch file to write; prints to stdout when empty")

	var updateCmd = &cobra.Command{
		Use:   "update <container> <patch>",
		Short: "Apply a patch file to a container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				out = args[0]
			}
			doc, err := readContainer(args[0])
			if err != nil {
				return err
			}
			ps, err := readPatch(args[1])
			if err != nil {
				return err
			}
			updated, report, err := patch.NewApplier(logger).Apply(doc.Snapshot, ps)
			if err != nil {
				return err
			}
			doc.Snapshot = updated
			if err := writeContainer(out, doc); err != nil {
				return err
			}
			for _, p := range report.Skipped {
				fmt.Printf("\t%s %s (binary, skipped)\n", color.YellowString("!"), p)
			}
			success("%d created, %d modified, %d deleted → %s",
				len(report.Created), len(report.Modified), len(report.Deleted), out)
			return nil
		},
	}
	updateCmd.Flags().StringP("output", "o", "", "write the updated container here instead of in place")

	var smartUpdateCmd = &cobra.Command{
		Use:   "smartupdate <project>",
		Short: "Patch what changed in a project since the last run",
		Long: `Compares the project against the baseline kept in its .contexter_cache
directory. The first run only records the baseline. Later runs write a patch
file (--patch) or apply the changes straight to a container (--container),
then record the project as the new baseline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patchOut, _ := cmd.Flags().GetString("patch")
			containerPath, _ := cmd.Flags().GetString("container")
			sink, err := newSink(patchOut, containerPath)
			if err != nil {
				return err
			}
			detector, closeFn, err := newDetector(args[0], patchOut, containerPath)
			if err != nil {
				return err
			}
			defer closeFn()

			var res *change.Result
			err = spin("Looking for changes in "+args[0], func() error {
				var err error
				res, err = detector.Run(cmd.Context(), args[0], sink)
				return err
			})
			if err != nil {
				return err
			}
			printOutcome(res, patchOut, containerPath)
			return nil
		},
	}
	smartUpdateCmd.Flags().String("patch", "", "patch file to write")
	smartUpdateCmd.Flags().String("container", "", "container to update in place")

	var watchCmd = &cobra.Command{
		Use:   "watch <project>",
		Short: "Run smartupdate whenever the project changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := args[0]
			patchOut, _ := cmd.Flags().GetString("patch")
			containerPath, _ := cmd.Flags().GetString("container")
			sink, err := newSink(patchOut, containerPath)
			if err != nil {
				return err
			}
			detector, closeFn, err := newDetector(project, patchOut, containerPath)
			if err != nil {
				return err
			}
			defer closeFn()

			ig := workspace.NewIgnore(detectorExcludes(project, patchOut, containerPath)...)
			watcher, err := change.NewWatcher(project, ig, cfg.Debounce, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			run := func(ctx context.Context) error {
				res, err := detector.Run(ctx, project, sink)
				if err != nil {
					return err
				}
				printOutcome(res, patchOut, containerPath)
				return nil
			}
			if err := run(ctx); err != nil {
				return err
			}
			fmt.Printf("Watching %s (Ctrl-C to stop)\n", project)
			err = watcher.Run(ctx, func(ctx context.Context) error {
				if err := run(ctx); err != nil {
					printError(err)
					return err
				}
				return nil
			})
			if err != nil && !stderrors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	watchCmd.Flags().String("patch", "", "patch file to write on every change")
	watchCmd.Flags().String("container", "", "container to keep up to date")

	var showCmd = &cobra.Command{
		Use:   "show <container> <path>",
		Short: "Print one file of a container",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, _ := cmd.Flags().GetBool("plain")
			doc, err := readContainer(args[0])
			if err != nil {
				return err
			}
			c, ok := doc.Snapshot.Get(args[1])
			if !ok {
				return errors.NotFound(fmt.Sprintf("%s has no file %s", args[0], args[1]))
			}
			if c.IsBinary() {
				fmt.Printf("%s is binary; its content is not stored\n", args[1])
				return nil
			}
			body := c.String() + "\n"
			if plain {
				_, err := os.Stdout.WriteString(body)
				return err
			}
			return highlight(os.Stdout, args[1], body)
		},
	}
	showCmd.Flags().Bool("plain", false, "print without syntax highlighting")

	var inspectCmd = &cobra.Command{
		Use:   "inspect <container>",
		Short: "Summarize a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, _ := cmd.Flags().GetBool("list")
			doc, err := readContainer(args[0])
			if err != nil {
				return err
			}
			fmt.Println(summary(filepath.Base(args[0]), doc))
			if list {
				for _, p := range doc.Snapshot.Paths() {
					marker := color.GreenString("T")
					if c, _ := doc.Snapshot.Get(p); c.IsBinary() {
						marker = color.YellowString("B")
					}
					fmt.Printf("\t%s %s\n", marker, p)
				}
			}
			return nil
		},
	}
	inspectCmd.Flags().BoolP("list", "l", false, "list every file")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(reconstructCmd)
	rootCmd.AddCommand(sanitizeCmd)
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(smartUpdateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(inspectCmd)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
