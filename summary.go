package vocyolo

import (
	"github.com/cyclopcam/logs"
)

// Stage names used in Failure records.
const (
	StageConvert  = "convert"
	StageOrganize = "organize"
)

// Failure records an image identifier that could not be processed.
type Failure struct {
	ID    string
	Stage string
	Err   error
}

// Summary is the batch result of a run.
type Summary struct {
	Descriptors int      // Annotation descriptors found.
	Relevant    int      // Descriptors with at least one allow-listed object.
	Skipped     int      // Descriptors without any allow-listed object.
	Labels      int      // Label lines written across all label files.
	Train       []string // Identifiers written to the train split, in manifest order.
	Val         []string // Identifiers written to the val split, in manifest order.
	Orphans     []string // Relevant identifiers listed in neither split list.
	Overlap     []string // Identifiers listed in both split lists.
	Failures    []Failure
}

// OK reports whether no identifier failed.
func (s *Summary) OK() bool {
	return len(s.Failures) == 0
}

// addFailure appends a failure record.
func (s *Summary) addFailure(id, stage string, err error) {
	s.Failures = append(s.Failures, Failure{ID: id, Stage: stage, Err: err})
}

// Log writes the summary to log. Individual failures are logged where they occur and only counted
// here.
func (s *Summary) Log(log logs.Log) {
	log.Infof("Descriptors: %d, relevant: %d, skipped: %d", s.Descriptors, s.Relevant, s.Skipped)
	log.Infof("Train images: %d, val images: %d, label lines: %d", len(s.Train), len(s.Val), s.Labels)
	if len(s.Orphans) > 0 {
		log.Warnf("%d relevant images are in neither split list", len(s.Orphans))
	}
	if len(s.Overlap) > 0 {
		log.Warnf("%d images are listed in both split lists", len(s.Overlap))
	}
	if len(s.Failures) > 0 {
		log.Warnf("%d images failed", len(s.Failures))
	}
}
