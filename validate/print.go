package validate

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/muesli/termenv"
)

// PrintOptions configures Print.
type PrintOptions struct {
	// Color enables ANSI styling when the environment supports it.
	Color bool
}

var severityColors = map[Severity]string{
	SeverityError:   "1",
	SeverityWarning: "3",
	SeverityInfo:    "4",
	SeverityHint:    "8",
}

var sectionTitles = map[Severity]string{
	SeverityError:   "Errors",
	SeverityWarning: "Warnings",
	SeverityInfo:    "Infos",
	SeverityHint:    "Hints",
}

// Print writes the report as one table per severity, most severe first.
// Empty sections are omitted.
func (r *Report) Print(w io.Writer, opts PrintOptions) error {
	profile := termenv.Ascii
	if opts.Color {
		profile = termenv.EnvColorProfile()
	}
	out := termenv.NewOutput(w, termenv.WithProfile(profile))

	if _, err := fmt.Fprintf(w, "glTF %s  generator: %s  meshes: %d  primitives: %d  accessors: %d\n",
		r.Info.Version, r.Info.Generator, r.Info.Meshes, r.Info.Primitives, r.Info.Accessors); err != nil {
		return err
	}
	for _, sev := range Severities() {
		issues := r.Issues.Filter(sev)
		if len(issues) == 0 {
			continue
		}
		title := out.String(fmt.Sprintf("%s (%d)", sectionTitles[sev], len(issues))).
			Bold().
			Foreground(out.Color(severityColors[sev]))
		if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tPOINTER\tMESSAGE")
		for _, it := range issues {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Code, it.Pointer, it.Message)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	if len(r.Issues) == 0 {
		_, err := fmt.Fprintln(w, "\nNo issues found.")
		return err
	}
	return nil
}
