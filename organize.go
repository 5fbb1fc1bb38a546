package vocyolo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/logs"
	"github.com/gofrs/flock"
)

// LockPath returns the advisory lock file that guards destRoot for the duration of a run. It sits
// beside destRoot, so the output tree only contains dataset files.
func LockPath(destRoot string) string {
	clean := filepath.Clean(destRoot)
	return filepath.Join(filepath.Dir(clean), "."+filepath.Base(clean)+".vocyolo.lock")
}

// ImageDir returns <destRoot>/images/<split>.
func ImageDir(destRoot string, split Split) string {
	return filepath.Join(destRoot, "images", split.String())
}

// LabelDir returns <destRoot>/labels/<split>.
func LabelDir(destRoot string, split Split) string {
	return filepath.Join(destRoot, "labels", split.String())
}

// manifestEntry returns the manifest line of an image: <root>/images/<split>/<id>.jpg, with root
// used as given rather than cleaned.
func manifestEntry(root string, split Split, id string) string {
	rel := filepath.Join("images", split.String(), id+".jpg")
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return root + rel
	}
	return root + string(filepath.Separator) + rel
}

// ManifestPath returns <destRoot>/<split>.txt.
func ManifestPath(destRoot string, split Split) string {
	return filepath.Join(destRoot, split.String()+".txt")
}

// Organizer writes the YOLO output tree for a split plan.
type Organizer struct {
	log           logs.Log
	sourceRoot    string
	destRoot      string
	classes       Classes
	policy        OrphanPolicy
	absolutePaths bool
	datasetYAML   bool
	workers       int
	images        *imageProcessor
}

// NewOrganizer creates an organizer for the validated configuration cfg.
func NewOrganizer(log logs.Log, cfg *Config, classes Classes) (*Organizer, error) {
	images, err := newImageProcessor(cfg.Images)
	if err != nil {
		return nil, &ConfigError{Field: "images", Msg: err.Error()}
	}

	return &Organizer{
		log:           log,
		sourceRoot:    cfg.SourceRoot,
		destRoot:      cfg.DestRoot,
		classes:       classes,
		policy:        cfg.OrphanPolicy,
		absolutePaths: cfg.ManifestAbsolutePaths,
		datasetYAML:   cfg.WriteDatasetYAML,
		workers:       cfg.Workers,
		images:        images,
	}, nil
}

// Organize materializes plan: images are copied into images/<split>, each label file is written
// once into labels/<split>, and the manifests list the images in plan order.
//
// An image that cannot be materialized is recorded as a failure in the summary and gets neither a
// label file nor a manifest entry. Errors that affect the whole tree are returned.
func (o *Organizer) Organize(plan Plan, labels map[string]YOLOAnnotatedFile) (*Summary, error) {
	if o.policy == OrphanFail && len(plan.Orphans) > 0 {
		return nil, &OrphanError{IDs: plan.Orphans}
	}

	if err := os.MkdirAll(o.destRoot, 0755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}

	// Take exclusive ownership of the output tree.
	lockPath := LockPath(o.destRoot)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %q: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("another run is writing to %q", o.destRoot)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			o.log.Warnf("Failed to release lock %q: %v", lockPath, err)
		}
	}()

	for _, split := range Splits {
		for _, dir := range []string{ImageDir(o.destRoot, split), LabelDir(o.destRoot, split)} {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("cannot create output directory: %w", err)
			}
		}
	}

	// Remove what earlier runs left behind for identifiers this plan does not assign to a split.
	for _, split := range Splits {
		if err := o.pruneSplit(split, plan.IDs(split)); err != nil {
			return nil, err
		}
	}

	manifestRoot := o.destRoot
	if o.absolutePaths {
		if manifestRoot, err = filepath.Abs(o.destRoot); err != nil {
			return nil, err
		}
	}

	summary := &Summary{Overlap: plan.Overlap()}
	if len(summary.Overlap) > 0 {
		o.log.Warnf("%d images are listed in both train and val", len(summary.Overlap))
	}

	for _, split := range Splits {
		written, err := o.organizeSplit(split, plan.IDs(split), labels, manifestRoot, summary)
		if err != nil {
			return nil, err
		}
		if split == Val {
			summary.Val = written
		} else {
			summary.Train = written
		}
	}

	if err := o.handleOrphans(plan.Orphans, labels, summary); err != nil {
		return nil, err
	}

	if o.datasetYAML {
		path, err := WriteDatasetYAML(o.destRoot, o.classes)
		if err != nil {
			return nil, err
		}
		o.log.Infof("Wrote dataset description %s", path)
	}

	return summary, nil
}

// organizeSplit materializes the images and labels of one split and writes its manifest. It
// returns the identifiers that made it into the manifest.
func (o *Organizer) organizeSplit(split Split, ids []string, labels map[string]YOLOAnnotatedFile,
	manifestRoot string, summary *Summary) ([]string, error) {

	imageDir := ImageDir(o.destRoot, split)
	labelDir := LabelDir(o.destRoot, split)
	o.log.Infof("Writing %d %s images", len(ids), split)

	tasks := make([]imageTask, len(ids))
	for i, id := range ids {
		tasks[i] = imageTask{
			src: VOCImagePath(o.sourceRoot, id),
			dst: filepath.Join(imageDir, id+".jpg"),
		}
	}
	errs := o.images.processAll(tasks, o.workers)

	written := make([]string, 0, len(ids))
	manifest := make([]string, 0, len(ids))
	for i, id := range ids {
		labelPath := filepath.Join(labelDir, id+".txt")
		fail := func(err error) {
			o.log.Warnf("Skipping %s image %s: %v", split, id, err)
			summary.addFailure(id, StageOrganize, err)
			// Neither a partial image nor a label from an earlier run may stay behind.
			o.removeIfExists(tasks[i].dst)
			o.removeIfExists(labelPath)
		}

		if errs[i] != nil {
			fail(errs[i])
			continue
		}
		yoloData, ok := labels[id]
		if !ok {
			fail(fmt.Errorf("no label data for %s", id))
			continue
		}
		if _, err := WriteYOLOLabel(labelDir, yoloData); err != nil {
			fail(err)
			continue
		}

		summary.Labels += len(yoloData.Annotations)
		written = append(written, id)
		manifest = append(manifest, manifestEntry(manifestRoot, split, id))
	}

	manifestPath := ManifestPath(o.destRoot, split)
	if err := writeLines(manifestPath, manifest); err != nil {
		return nil, err
	}
	o.log.Infof("Wrote %d entries to %s", len(manifest), manifestPath)

	return written, nil
}

// pruneSplit removes images and label files of split whose identifier is not in ids.
func (o *Organizer) pruneSplit(split Split, ids []string) error {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}

	removed := 0
	for _, dir := range []struct {
		path string
		ext  string
	}{
		{ImageDir(o.destRoot, split), ".jpg"},
		{LabelDir(o.destRoot, split), ".txt"},
	} {
		files, err := filesByExtInDir(dir.path, dir.ext)
		if err != nil {
			return err
		}
		for _, path := range files {
			_, id, _, err := splitPath(path)
			if err != nil || keep[id] {
				continue
			}
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("cannot remove stale file: %w", err)
			}
			removed++
		}
	}

	if removed > 0 {
		o.log.Infof("Removed %d stale %s files from an earlier run", removed, split)
	}
	return nil
}

func (o *Organizer) removeIfExists(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		o.log.Warnf("Failed to remove %q: %v", path, err)
	}
}

// handleOrphans applies the orphan policy to relevant images that are in neither split.
func (o *Organizer) handleOrphans(orphans []string, labels map[string]YOLOAnnotatedFile,
	summary *Summary) error {

	if len(orphans) == 0 || o.policy == OrphanDrop {
		return nil
	}
	summary.Orphans = orphans

	switch o.policy {
	case OrphanWarn:
		o.log.Warnf("%d relevant images are in neither split list and were left out: %v",
			len(orphans), orphans)
	case OrphanKeep:
		// Labels only. No image is copied and no manifest refers to them.
		labelDir := LabelDir(o.destRoot, Train)
		for _, id := range orphans {
			if _, err := WriteYOLOLabel(labelDir, labels[id]); err != nil {
				return err
			}
		}
		o.log.Warnf("Kept %d unreferenced label files in %s", len(orphans), labelDir)
	}
	return nil
}
