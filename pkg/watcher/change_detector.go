package watcher

import "strings"

// ChangeAnalysis describes what changed and what a rebuild has to redo.
type ChangeAnalysis struct {
	NeedReconfigure bool // reload configuration before rebuilding
	NeedReload      bool // reparse the input
	ChangedFiles    []string
}

// AnalyzeChanges folds a batch of events into one rebuild decision.
func AnalyzeChanges(events ...ChangeEvent) *ChangeAnalysis {
	analysis := &ChangeAnalysis{}
	for _, event := range events {
		analysis.ChangedFiles = append(analysis.ChangedFiles, event.Paths...)
		switch event.Type {
		case ChangeTypeConfig:
			// Partitioner, direction or grid size may have changed, and
			// with the grid the input itself.
			analysis.NeedReconfigure = true
			analysis.NeedReload = true
		case ChangeTypeInput:
			analysis.NeedReload = true
		}
	}
	return analysis
}

// Reason describes the change for logs and build status.
func (a *ChangeAnalysis) Reason() string {
	switch {
	case a.NeedReconfigure:
		return "config changed: " + strings.Join(a.ChangedFiles, ", ")
	case a.NeedReload:
		return "input changed: " + strings.Join(a.ChangedFiles, ", ")
	}
	return "no changes"
}
