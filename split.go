package vocyolo

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Split identifies one of the output datasets.
type Split int

// The output datasets.
const (
	Train Split = iota
	Val
)

// Splits lists all splits in output order.
var Splits = []Split{Train, Val}

func (s Split) String() string {
	switch s {
	case Train:
		return "train"
	case Val:
		return "val"
	}
	return fmt.Sprintf("Split(%d)", int(s))
}

// OrphanPolicy decides what happens to relevant images that are listed in neither split list.
type OrphanPolicy string

// The known orphan policies.
const (
	OrphanDrop OrphanPolicy = "drop"  // Exclude silently.
	OrphanWarn OrphanPolicy = "warn"  // Exclude and report.
	OrphanFail OrphanPolicy = "error" // Fail the run before writing anything.
	OrphanKeep OrphanPolicy = "keep"  // Write the label to labels/train without image or manifest entry.
)

// Valid reports whether p is a known policy.
func (p OrphanPolicy) Valid() bool {
	switch p {
	case OrphanDrop, OrphanWarn, OrphanFail, OrphanKeep:
		return true
	}
	return false
}

// SplitListPath returns <sourceRoot>/ImageSets/Main/<split>.txt.
func SplitListPath(sourceRoot string, split Split) string {
	return filepath.Join(sourceRoot, "ImageSets", "Main", split.String()+".txt")
}

// ReadSplitList reads the image identifiers from a split list file, one per line. Surrounding white
// space is trimmed and blank lines are ignored. A missing file is reported as *FileNotFoundError.
func ReadSplitList(path string) ([]string, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Plan is the split assignment of every relevant image, computed before the output tree is
// touched.
type Plan struct {
	Train   []string // In train list order.
	Val     []string // In val list order.
	Orphans []string // Relevant identifiers in neither list, in relevant order.
}

// IDs returns the identifiers assigned to split.
func (p Plan) IDs(split Split) []string {
	if split == Val {
		return p.Val
	}
	return p.Train
}

// Overlap returns the identifiers assigned to both splits, in train order.
func (p Plan) Overlap() []string {
	inVal := make(map[string]bool, len(p.Val))
	for _, id := range p.Val {
		inVal[id] = true
	}
	var overlap []string
	for _, id := range p.Train {
		if inVal[id] {
			overlap = append(overlap, id)
		}
	}
	return overlap
}

// PlanSplits intersects the train and val lists with the relevant identifiers, preserving the
// order of each list. Repeated identifiers within a list are kept once. Relevant identifiers
// found in neither list are returned as orphans.
func PlanSplits(relevant, train, val []string) Plan {
	isRelevant := make(map[string]bool, len(relevant))
	for _, id := range relevant {
		isRelevant[id] = true
	}
	assigned := make(map[string]bool, len(relevant))

	filter := func(ids []string) []string {
		seen := make(map[string]bool, len(ids))
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if !isRelevant[id] || seen[id] {
				continue
			}
			seen[id] = true
			assigned[id] = true
			out = append(out, id)
		}
		return out
	}

	plan := Plan{
		Train: filter(train),
		Val:   filter(val),
	}
	for _, id := range relevant {
		if !assigned[id] {
			plan.Orphans = append(plan.Orphans, id)
		}
	}
	return plan
}
