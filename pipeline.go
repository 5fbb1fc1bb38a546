package vocyolo

import (
	"github.com/cyclopcam/logs"
)

// Run converts the VOC tree cfg.SourceRoot into a YOLO tree at cfg.DestRoot.
//
// The conversion stage and the split planning complete before the output tree is touched. The
// returned summary lists the images that failed individually; the error is reserved for
// conditions that prevent the whole run.
func Run(log logs.Log, cfg *Config) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	converter, err := NewConverter(log, cfg)
	if err != nil {
		return nil, err
	}
	organizer, err := NewOrganizer(log, cfg, converter.Classes())
	if err != nil {
		return nil, err
	}

	// Read the split lists first, so that a missing list fails the run before any parsing.
	var lists [2][]string
	for _, split := range Splits {
		ids, err := ReadSplitList(SplitListPath(cfg.SourceRoot, split))
		if err != nil {
			return nil, err
		}
		lists[split] = ids
	}

	conversion, err := converter.ConvertDir(VOCAnnotationDir(cfg.SourceRoot))
	if err != nil {
		return nil, err
	}

	plan := PlanSplits(conversion.Relevant, lists[Train], lists[Val])
	log.Infof("Planned %d train and %d val images, %d relevant images in neither list",
		len(plan.Train), len(plan.Val), len(plan.Orphans))

	summary, err := organizer.Organize(plan, conversion.Labels)
	if err != nil {
		return nil, err
	}

	summary.Descriptors = len(conversion.Relevant) + len(conversion.Skipped) + len(conversion.Failures)
	summary.Relevant = len(conversion.Relevant)
	summary.Skipped = len(conversion.Skipped)
	summary.Failures = append(conversion.Failures, summary.Failures...)

	return summary, nil
}
