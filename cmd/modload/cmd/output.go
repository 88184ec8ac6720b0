package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/modloader"
)

// writeOutput renders v as json or yaml, or calls text for the text format.
func writeOutput(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case formatText:
		return text(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// excludedMod is one mod that will not take part in the session.
type excludedMod struct {
	ID      string   `json:"id" yaml:"id"`
	Status  string   `json:"status" yaml:"status"`
	Reasons []string `json:"reasons" yaml:"reasons"`
}

// planOutput is the result of the plan command.
type planOutput struct {
	Session     string                 `json:"session" yaml:"session"`
	Platform    string                 `json:"platform" yaml:"platform"`
	Phase       string                 `json:"phase" yaml:"phase"`
	LoadOrder   []string               `json:"loadOrder" yaml:"loadOrder"`
	Excluded    []excludedMod          `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Diagnostics []modloader.Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Errors      []string               `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newPlanOutput(plan *modloader.Plan, report *modloader.SessionReport, dirErrors []error) *planOutput {
	out := &planOutput{
		Session:     report.Session,
		Platform:    report.Platform.String(),
		Phase:       plan.Phase,
		LoadOrder:   plan.IDs(),
		Diagnostics: report.Diagnostics,
		Errors:      errorStrings(dirErrors),
	}
	for _, m := range report.Mods {
		if m.State != modloader.StateExcluded {
			continue
		}
		ex := excludedMod{ID: m.ID, Status: m.Status.String()}
		for _, d := range m.Diagnostics {
			if d.Severity != modloader.SeverityAdvisory {
				ex.Reasons = append(ex.Reasons, d.Message)
			}
		}
		out.Excluded = append(out.Excluded, ex)
	}
	return out
}

func (p *planOutput) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Session %s on platform %s\n", p.Session, p.Platform)
	fmt.Fprintf(w, "Load order for %s:\n", p.Phase)
	for i, id := range p.LoadOrder {
		fmt.Fprintf(w, "  %d. %s\n", i+1, id)
	}
	if len(p.Excluded) > 0 {
		fmt.Fprintln(w, "Excluded:")
		for _, ex := range p.Excluded {
			fmt.Fprintf(w, "  %s (%s): %s\n", ex.ID, ex.Status, strings.Join(ex.Reasons, "; "))
		}
	}
	writeDiagnostics(w, p.Diagnostics)
	writeErrors(w, p.Errors)
	return nil
}

// runOutput is the result of the run command.
type runOutput struct {
	modloader.SessionReport `yaml:",inline"`
	Errors                  []string `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func newRunOutput(report *modloader.SessionReport, dirErrors []error) *runOutput {
	return &runOutput{SessionReport: *report, Errors: errorStrings(dirErrors)}
}

func (r *runOutput) writeText(w io.Writer) error {
	fmt.Fprintf(w, "Session %s on platform %s, phases: %s\n",
		r.Session, r.Platform, strings.Join(r.Phases, ", "))
	fmt.Fprintf(w, "Load order: %s\n\n", strings.Join(r.LoadOrder, ", "))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MOD\tVERSION\tSTATUS\tSTATE\tLOADED\tPHASES")
	for _, m := range r.Mods {
		phases := make([]string, len(m.Phases))
		for i, o := range m.Phases {
			phases[i] = o.Phase + "=" + o.Result.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
			m.ID, m.Version, m.Status, m.State, m.FullyLoaded, strings.Join(phases, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var diags []modloader.Diagnostic
	for _, m := range r.Mods {
		diags = append(diags, m.Diagnostics...)
	}
	diags = append(diags, r.Diagnostics...)
	writeDiagnostics(w, diags)
	writeErrors(w, r.Errors)

	fmt.Fprintf(w, "\n%d of %d mods fully loaded\n", r.LoadedCount(), len(r.Mods)-1)
	return nil
}

func writeDiagnostics(w io.Writer, diags []modloader.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintln(w, "Diagnostics:")
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

func writeErrors(w io.Writer, errs []string) {
	if len(errs) == 0 {
		return
	}
	fmt.Fprintln(w, "Unreadable mod directories:")
	for _, e := range errs {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
