// Package report describes the coverage of a snapshot for humans and machines.
package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/CageChen/ctxhub/internal/aggregate"
)

// Summary is the structured inventory of one snapshot. It carries everything
// in a Result except the view itself.
type Summary struct {
	GeneratedAt  string                  `json:"generatedAt"` // RFC3339Nano UTC
	Root         string                  `json:"root"`
	Budget       int                     `json:"budget"`
	Size         int                     `json:"size"`
	Tokens       int                     `json:"tokens"`
	TokenCounter string                  `json:"tokenCounter,omitempty"`
	FilesScanned int                     `json:"filesScanned"`
	Complete     bool                    `json:"complete"`
	Interrupted  bool                    `json:"interrupted"`
	ElapsedMS    int64                   `json:"elapsedMs"`
	Included     []string                `json:"included"`
	Skipped      []aggregate.SkippedFile `json:"skipped"`
}

// Summarize builds a Summary from res. tokens and counter describe the token
// estimate of the view and may be zero.
func Summarize(res *aggregate.Result, tokens int, counter string) Summary {
	return Summary{
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Root:         res.Root,
		Budget:       res.Budget,
		Size:         res.Size,
		Tokens:       tokens,
		TokenCounter: counter,
		FilesScanned: len(res.Included) + len(res.Skipped),
		Complete:     res.Complete,
		Interrupted:  res.Interrupted,
		ElapsedMS:    res.Elapsed.Milliseconds(),
		Included:     res.Included,
		Skipped:      res.Skipped,
	}
}

// Status is a one-word verdict on the snapshot.
func Status(res *aggregate.Result) string {
	switch {
	case res.Interrupted:
		return "interrupted"
	case !res.Complete:
		return "partial"
	default:
		return "complete"
	}
}

// Markdown renders a coverage report for res as GitHub-flavored Markdown.
func Markdown(res *aggregate.Result, tokens int) string {
	var b strings.Builder
	name := filepath.Base(res.Root)

	fmt.Fprintf(&b, "# Snapshot of %s\n\n", name)
	fmt.Fprintf(&b, "Status: **%s**", Status(res))
	switch {
	case res.Interrupted:
		b.WriteString(". The walk was stopped before every file was visited.")
	case !res.Complete:
		b.WriteString(". Some text files did not fit in the budget.")
	}
	b.WriteString("\n\n")

	b.WriteString("## Summary\n\n")
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Root | %s |\n", code(res.Root))
	fmt.Fprintf(&b, "| Size | %d / %d bytes (%.1f%%) |\n", res.Size, res.Budget, percent(res.Size, res.Budget))
	if tokens > 0 {
		fmt.Fprintf(&b, "| Tokens | ~%d |\n", tokens)
	}
	fmt.Fprintf(&b, "| Included | %d |\n", len(res.Included))
	for _, reason := range []aggregate.Reason{aggregate.ReasonBudget, aggregate.ReasonBinary, aggregate.ReasonUnreadable} {
		if n := len(res.SkippedBy(reason)); n > 0 {
			fmt.Fprintf(&b, "| Skipped (%s) | %d |\n", reason, n)
		}
	}
	fmt.Fprintf(&b, "| Elapsed | %s |\n", res.Elapsed.Round(time.Millisecond))

	b.WriteString("\n## Included\n\n")
	if len(res.Included) == 0 {
		b.WriteString("No files were included.\n")
	}
	for _, p := range res.Included {
		fmt.Fprintf(&b, "- %s\n", code(rel(res.Root, p)))
	}

	b.WriteString("\n## Skipped\n\n")
	if len(res.Skipped) == 0 {
		b.WriteString("No files were skipped.\n")
		return b.String()
	}
	b.WriteString("| File | Reason |\n|---|---|\n")
	for _, s := range res.Skipped {
		reason := string(s.Reason)
		if s.Error != "" {
			reason += ": " + escapeCell(s.Error)
		}
		fmt.Fprintf(&b, "| %s | %s |\n", code(rel(res.Root, s.Path)), reason)
	}
	return b.String()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

func rel(root, p string) string {
	if r, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(r)
	}
	return p
}

// code wraps s in a code span long enough to contain any backticks in s.
func code(s string) string {
	fence := "`"
	for strings.Contains(s, fence) {
		fence += "`"
	}
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		return fence + " " + escapeCell(s) + " " + fence
	}
	return fence + escapeCell(s) + fence
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
