package vocyolo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func newTestOrganizer(t *testing.T, cfg *Config) *Organizer {
	t.Helper()
	classes, err := cfg.Classes()
	require.NoError(t, err)
	organizer, err := NewOrganizer(logs.NewTestingLog(t), cfg, classes)
	require.NoError(t, err)
	return organizer
}

func testLabels(ids ...string) map[string]YOLOAnnotatedFile {
	labels := make(map[string]YOLOAnnotatedFile, len(ids))
	for _, id := range ids {
		labels[id] = YOLOAnnotatedFile{
			ID:          id,
			Annotations: []YOLOAnnotation{{ClassID: 0, CenterX: 0.5, CenterY: 0.5, Width: 0.25, Height: 0.25}},
		}
	}
	return labels
}

func TestOrganize(t *testing.T) {
	cfg := testConfig(t)
	for _, id := range []string{"a", "b", "c"} {
		writeImage(t, cfg.SourceRoot, id, 32, 32)
	}
	plan := Plan{Train: []string{"c", "a"}, Val: []string{"b"}}

	summary, err := newTestOrganizer(t, cfg).Organize(plan, testLabels("a", "b", "c"))
	require.NoError(t, err)
	require.True(t, summary.OK())
	require.Equal(t, []string{"c", "a"}, summary.Train)
	require.Equal(t, []string{"b"}, summary.Val)
	require.Equal(t, 3, summary.Labels)

	require.Equal(t, []string{
		filepath.Join(cfg.DestRoot, "images", "train", "c.jpg"),
		filepath.Join(cfg.DestRoot, "images", "train", "a.jpg"),
	}, readFileLines(t, ManifestPath(cfg.DestRoot, Train)))
	require.Equal(t, []string{
		filepath.Join(cfg.DestRoot, "images", "val", "b.jpg"),
	}, readFileLines(t, ManifestPath(cfg.DestRoot, Val)))

	for _, id := range []string{"a", "c"} {
		require.FileExists(t, filepath.Join(ImageDir(cfg.DestRoot, Train), id+".jpg"))
		require.FileExists(t, filepath.Join(LabelDir(cfg.DestRoot, Train), id+".txt"))
	}
	require.FileExists(t, filepath.Join(ImageDir(cfg.DestRoot, Val), "b.jpg"))
	require.Equal(t, []string{"0 0.500000 0.500000 0.250000 0.250000"},
		readFileLines(t, filepath.Join(LabelDir(cfg.DestRoot, Val), "b.txt")))
	require.NoFileExists(t, filepath.Join(LabelDir(cfg.DestRoot, Train), "b.txt"))
	require.NoFileExists(t, filepath.Join(cfg.DestRoot, DatasetYAMLName))
}

func TestOrganizeMissingImage(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, cfg.SourceRoot, "a", 32, 32)
	plan := Plan{Train: []string{"a", "gone"}}

	summary, err := newTestOrganizer(t, cfg).Organize(plan, testLabels("a", "gone"))
	require.NoError(t, err)
	require.False(t, summary.OK())
	require.Equal(t, []string{"a"}, summary.Train)
	require.Len(t, summary.Failures, 1)
	require.Equal(t, "gone", summary.Failures[0].ID)
	require.Equal(t, StageOrganize, summary.Failures[0].Stage)
	var notFound *FileNotFoundError
	require.ErrorAs(t, summary.Failures[0].Err, &notFound)

	require.NoFileExists(t, filepath.Join(LabelDir(cfg.DestRoot, Train), "gone.txt"))
	require.Equal(t, []string{filepath.Join(cfg.DestRoot, "images", "train", "a.jpg")},
		readFileLines(t, ManifestPath(cfg.DestRoot, Train)))
}

func TestOrganizeOrphanPolicies(t *testing.T) {
	plan := Plan{Train: []string{"a"}, Orphans: []string{"o"}}
	orphanLabel := func(cfg *Config) string {
		return filepath.Join(LabelDir(cfg.DestRoot, Train), "o.txt")
	}

	for _, policy := range []OrphanPolicy{OrphanDrop, OrphanWarn} {
		cfg := testConfig(t)
		cfg.OrphanPolicy = policy
		writeImage(t, cfg.SourceRoot, "a", 16, 16)
		writeImage(t, cfg.SourceRoot, "o", 16, 16)

		summary, err := newTestOrganizer(t, cfg).Organize(plan, testLabels("a", "o"))
		require.NoError(t, err, policy)
		require.True(t, summary.OK(), policy)
		require.NoFileExists(t, orphanLabel(cfg), policy)
		require.NoFileExists(t, filepath.Join(ImageDir(cfg.DestRoot, Train), "o.jpg"), policy)
		if policy == OrphanWarn {
			require.Equal(t, []string{"o"}, summary.Orphans)
		} else {
			require.Empty(t, summary.Orphans)
		}
	}

	cfg := testConfig(t)
	cfg.OrphanPolicy = OrphanFail
	_, err := newTestOrganizer(t, cfg).Organize(plan, testLabels("a", "o"))
	var orphanErr *OrphanError
	require.ErrorAs(t, err, &orphanErr)
	require.Equal(t, []string{"o"}, orphanErr.IDs)
	require.NoDirExists(t, cfg.DestRoot)

	// The keep policy leaves an unreferenced label file in labels/train.
	cfg = testConfig(t)
	cfg.OrphanPolicy = OrphanKeep
	writeImage(t, cfg.SourceRoot, "a", 16, 16)
	summary, err := newTestOrganizer(t, cfg).Organize(plan, testLabels("a", "o"))
	require.NoError(t, err)
	require.Equal(t, []string{"o"}, summary.Orphans)
	require.FileExists(t, orphanLabel(cfg))
	require.NoFileExists(t, filepath.Join(ImageDir(cfg.DestRoot, Train), "o.jpg"))
	require.NotContains(t, readFileLines(t, ManifestPath(cfg.DestRoot, Train)),
		filepath.Join(cfg.DestRoot, "images", "train", "o.jpg"))
}

func TestOrganizeOverlap(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, cfg.SourceRoot, "a", 16, 16)
	plan := Plan{Train: []string{"a"}, Val: []string{"a"}}

	summary, err := newTestOrganizer(t, cfg).Organize(plan, testLabels("a"))
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, summary.Overlap)
	for _, split := range Splits {
		require.FileExists(t, filepath.Join(ImageDir(cfg.DestRoot, split), "a.jpg"))
		require.FileExists(t, filepath.Join(LabelDir(cfg.DestRoot, split), "a.txt"))
	}
}

func TestOrganizeAbsolutePathsAndDatasetYAML(t *testing.T) {
	cfg := testConfig(t)
	cfg.CategoryAllowlist = []string{"person", "dog"}
	cfg.ManifestAbsolutePaths = true
	cfg.WriteDatasetYAML = true
	writeImage(t, cfg.SourceRoot, "a", 16, 16)

	_, err := newTestOrganizer(t, cfg).Organize(Plan{Train: []string{"a"}}, testLabels("a"))
	require.NoError(t, err)

	absRoot, err := filepath.Abs(cfg.DestRoot)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(absRoot, "images", "train", "a.jpg")},
		readFileLines(t, ManifestPath(cfg.DestRoot, Train)))
	require.Empty(t, readFileLines(t, ManifestPath(cfg.DestRoot, Val)))

	enc, err := os.ReadFile(filepath.Join(cfg.DestRoot, DatasetYAMLName))
	require.NoError(t, err)
	var desc DatasetYAML
	require.NoError(t, yaml.Unmarshal(enc, &desc))
	require.Equal(t, DatasetYAML{
		Path:  absRoot,
		Train: filepath.Join("images", "train"),
		Val:   filepath.Join("images", "val"),
		NC:    2,
		Names: map[int]string{0: "person", 1: "dog"},
	}, desc)
}

func TestOrganizeLocked(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.DestRoot, 0755))
	lock := flock.New(LockPath(cfg.DestRoot))
	ok, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer lock.Unlock()

	_, err = newTestOrganizer(t, cfg).Organize(Plan{}, nil)
	require.Error(t, err)
	require.NoDirExists(t, ImageDir(cfg.DestRoot, Train))
}

func TestOrganizeIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, cfg.SourceRoot, "a", 16, 16)
	writeImage(t, cfg.SourceRoot, "b", 16, 16)
	plan := Plan{Train: []string{"a"}, Val: []string{"b"}}

	for i := 0; i < 2; i++ {
		summary, err := newTestOrganizer(t, cfg).Organize(plan, testLabels("a", "b"))
		require.NoError(t, err)
		require.True(t, summary.OK())
	}

	require.Len(t, readFileLines(t, ManifestPath(cfg.DestRoot, Train)), 1)
	require.Len(t, readFileLines(t, ManifestPath(cfg.DestRoot, Val)), 1)
	entries, err := os.ReadDir(LabelDir(cfg.DestRoot, Train))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestOrganizeLeavesNoLockFileInTree(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, cfg.SourceRoot, "a", 16, 16)

	_, err := newTestOrganizer(t, cfg).Organize(Plan{Train: []string{"a"}}, testLabels("a"))
	require.NoError(t, err)

	lockPath := LockPath(cfg.DestRoot)
	require.Equal(t, filepath.Dir(cfg.DestRoot), filepath.Dir(lockPath))
	entries, err := os.ReadDir(cfg.DestRoot)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"images", "labels", "train.txt", "val.txt"}, names)
}

func TestOrganizeManifestKeepsConfiguredPrefix(t *testing.T) {
	cfg := testConfig(t)
	writeImage(t, cfg.SourceRoot, "a", 16, 16)
	sep := string(filepath.Separator)
	cfg.DestRoot = filepath.Dir(cfg.DestRoot) + sep + "." + sep + "dataset" + sep

	_, err := newTestOrganizer(t, cfg).Organize(Plan{Train: []string{"a"}}, testLabels("a"))
	require.NoError(t, err)
	require.Equal(t, []string{cfg.DestRoot + filepath.Join("images", "train", "a.jpg")},
		readFileLines(t, ManifestPath(cfg.DestRoot, Train)))

	require.Equal(t, filepath.Join("d", "images", "val", "b.jpg"), manifestEntry("d", Val, "b"))
}
