package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"

	"contexter/internal/change"
	"contexter/internal/classify"
	"contexter/internal/errors"
	"contexter/internal/snapshot"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
)

// spin runs fn behind a spinner on stdout
func spin(message string, fn func() error) error {
	spinner, _ := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100).WithRemoveWhenDone(true).
		Start(message)
	err := fn()
	if spinner != nil {
		spinner.Stop()
	}
	return err
}

func success(format string, args ...any) {
	fmt.Printf("%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

func printError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s %v\n", red("error:"), err)
	for _, c := range errors.Conflicts(err) {
		fmt.Fprintf(os.Stderr, "  %s %s\n", red("✗"), c)
	}
}

func printColoredDiff(w io.Writer, diff string) {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	header := color.New(color.FgCyan)
	file := color.New(color.Bold)

	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "--- DIFF FOR:"):
			file.Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			header.Fprintln(w, line)
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			file.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			added.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			removed.Fprintln(w, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func printReport(r *change.Report) {
	for _, p := range r.Added {
		fmt.Printf("\t%s %s\n", color.BlueString("A"), p)
	}
	for _, p := range r.Modified {
		fmt.Printf("\t%s %s\n", color.YellowString("M"), p)
	}
	for _, p := range r.Deleted {
		fmt.Printf("\t%s %s\n", color.RedString("D"), p)
	}
}

// highlight prints one file with terminal colors, falling back to plain
// text when the language is unknown to the highlighter
func highlight(w io.Writer, path, content string) error {
	if err := quick.Highlight(w, content, classify.Language(path), "terminal256", "monokai"); err != nil {
		_, err = io.WriteString(w, content)
		return err
	}
	return nil
}

// summary renders the inspect panel for a document
func summary(name string, doc *snapshot.Document) string {
	text, binary := doc.Snapshot.Counts()
	var b strings.Builder
	b.WriteString(titleStyle.Render(name) + "\n\n")
	row := func(label string, value any) {
		b.WriteString(labelStyle.Render(label) + fmt.Sprint(value) + "\n")
	}
	row("files", text)
	row("binary", binary)
	row("trees", len(doc.Trees))

	size := 0
	langs := make(map[string]int)
	for _, p := range doc.Snapshot.Paths() {
		c, _ := doc.Snapshot.Get(p)
		if c.IsBinary() {
			continue
		}
		size += len(c.String())
		langs[classify.Language(p)]++
	}
	row("text bytes", size)

	if len(langs) > 0 {
		var parts []string
		for _, l := range slices.Sorted(maps.Keys(langs)) {
			name := l
			if name == "" {
				name = "plain"
			}
			parts = append(parts, fmt.Sprintf("%s %d", name, langs[l]))
		}
		row("languages", strings.Join(parts, ", "))
	}
	return boxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
