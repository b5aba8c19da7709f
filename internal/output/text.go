package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clearsift/clearsift/internal/finding"
)

var (
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
	dim     = lipgloss.Color("#6B7280")

	highStyle   = lipgloss.NewStyle().Foreground(danger).Bold(true)
	mediumStyle = lipgloss.NewStyle().Foreground(warning).Bold(true)
	lowStyle    = lipgloss.NewStyle().Foreground(dim).Bold(true)
	fileStyle   = lipgloss.NewStyle().Foreground(dim)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *AuditReport) error {
	ew := &errWriter{w: w}

	s := report.AnalysisSummary
	total := s.HighSeverity + s.MediumSeverity + s.LowSeverity

	ew.printf("clearsift audit — %s #%d\n", report.Repo, report.PRNumber)
	if report.Commit != "" {
		ew.printf("Commit: %s\n", report.Commit)
	}
	ew.println(strings.Repeat("─", 60))
	ew.printf("Findings: %d kept", total)
	if total > 0 {
		ew.printf(" (%d high, %d medium, %d low)", s.HighSeverity, s.MediumSeverity, s.LowSeverity)
	}
	ew.println("")

	fs := report.FilteringSummary
	if fs.ExcludedFindings > 0 {
		ew.printf("Filtered out: %d of %d original findings\n",
			fs.ExcludedFindings, fs.TotalOriginalFindings)
	}
	ew.println(strings.Repeat("─", 60))

	if total == 0 {
		ew.println("\nNo issues kept after filtering. Looks good!")
		return ew.err
	}

	grouped := groupBySeverity(report.Findings)
	for _, sev := range []finding.Severity{finding.SeverityHigh, finding.SeverityMedium, finding.SeverityLow} {
		findings := grouped[sev]
		if len(findings) == 0 {
			continue
		}

		ew.printf("\n%s\n", severityLabel(sev))
		ew.println(strings.Repeat("─", 40))

		sort.Slice(findings, func(i, j int) bool {
			return findings[i].File < findings[j].File
		})

		for _, f := range findings {
			loc := f.File
			if loc == "" {
				loc = "unknown"
			}
			if f.Line > 0 {
				loc = fmt.Sprintf("%s:%d", loc, f.Line)
			}
			ew.printf("\n  %s  %s\n", fileStyle.Render(loc), titleStyle.Render(f.Title))
			ew.printf("  Category: %s | Confidence: %.0f%%\n", f.Category, f.Confidence*100)

			for _, line := range wrapText(f.Description, 70) {
				ew.printf("    %s\n", line)
			}
			if f.Recommendation != "" {
				ew.println("  Recommendation:")
				for _, line := range wrapText(f.Recommendation, 70) {
					ew.printf("    %s\n", line)
				}
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	return ew.err
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

func groupBySeverity(findings []finding.Finding) map[finding.Severity][]finding.Finding {
	m := make(map[finding.Severity][]finding.Finding)
	for _, f := range findings {
		sev := finding.Severity(strings.ToUpper(string(f.Severity)))
		m[sev] = append(m[sev], f)
	}
	return m
}

func severityLabel(s finding.Severity) string {
	switch s {
	case finding.SeverityHigh:
		return highStyle.Render("[!!] HIGH")
	case finding.SeverityMedium:
		return mediumStyle.Render("[!] MEDIUM")
	default:
		return lowStyle.Render("[-] LOW")
	}
}

func wrapText(text string, width int) []string {
	if len(text) <= width {
		return []string{text}
	}
	var lines []string
	words := strings.Fields(text)
	var current strings.Builder
	for _, word := range words {
		if current.Len()+len(word)+1 > width && current.Len() > 0 {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
