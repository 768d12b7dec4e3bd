package installer

import "univdl/internal/deps"

// Presence reports whether a tool is installed in bin/.
type Presence struct {
	Tool     deps.Tool
	Path     string
	Present  bool
	Optional bool
}

// StatusReport lists bin/ contents per tool.
type StatusReport struct {
	BinDir string
	Tools  []Presence
}

// Status reports which tools are present in bin/ without touching PATH or
// running anything.
func (i *Installer) Status() StatusReport {
	report := StatusReport{BinDir: i.layout.BinDir}
	for _, tool := range deps.AllTools() {
		report.Tools = append(report.Tools, Presence{
			Tool:     tool,
			Path:     i.layout.Path(tool),
			Present:  i.layout.Has(tool),
			Optional: tool.OptionalOn(i.layout.Platform),
		})
	}
	return report
}

// Missing returns the required tools absent from bin/.
func (r StatusReport) Missing() []deps.Tool {
	var missing []deps.Tool
	for _, presence := range r.Tools {
		if !presence.Present && !presence.Optional {
			missing = append(missing, presence.Tool)
		}
	}
	return missing
}
