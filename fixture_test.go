package vocyolo

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

// testObject is one <object> of a generated VOC descriptor.
type testObject struct {
	name                   string
	xmin, ymin, xmax, ymax int
	difficult              bool
}

// vocXML renders a VOC descriptor. Sizes <= 0 omit the size block.
func vocXML(id string, width, height int, objects ...testObject) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<annotation>\n\t<folder>VOC2012</folder>\n\t<filename>%s.jpg</filename>\n", id)
	if width > 0 && height > 0 {
		fmt.Fprintf(&b, "\t<size>\n\t\t<width>%d</width>\n\t\t<height>%d</height>\n\t\t<depth>3</depth>\n\t</size>\n",
			width, height)
	}
	for _, o := range objects {
		difficult := 0
		if o.difficult {
			difficult = 1
		}
		fmt.Fprintf(&b, "\t<object>\n\t\t<name>%s</name>\n\t\t<pose>Unspecified</pose>\n"+
			"\t\t<truncated>0</truncated>\n\t\t<difficult>%d</difficult>\n"+
			"\t\t<bndbox>\n\t\t\t<xmin>%d</xmin>\n\t\t\t<ymin>%d</ymin>\n\t\t\t<xmax>%d</xmax>\n\t\t\t<ymax>%d</ymax>\n"+
			"\t\t</bndbox>\n\t</object>\n",
			o.name, difficult, o.xmin, o.ymin, o.xmax, o.ymax)
	}
	b.WriteString("</annotation>\n")
	return b.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// writeDescriptor writes <root>/Annotations/<id>.xml.
func writeDescriptor(t *testing.T, root, id string, width, height int, objects ...testObject) string {
	t.Helper()
	path := filepath.Join(VOCAnnotationDir(root), id+".xml")
	writeFile(t, path, vocXML(id, width, height, objects...))
	return path
}

// writeImage writes a uniformly colored JPEG to <root>/JPEGImages/<id>.jpg.
func writeImage(t *testing.T, root, id string, width, height int) string {
	t.Helper()
	path := VOCImagePath(root, id)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	img := imaging.New(width, height, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

// writeSplitList writes <root>/ImageSets/Main/<split>.txt.
func writeSplitList(t *testing.T, root string, split Split, ids ...string) {
	t.Helper()
	content := ""
	if len(ids) > 0 {
		content = strings.Join(ids, "\n") + "\n"
	}
	writeFile(t, SplitListPath(root, split), content)
}

// readFileLines returns the lines of a text file without the trailing newline.
func readFileLines(t *testing.T, path string) []string {
	t.Helper()
	lines, err := readLines(path)
	require.NoError(t, err)
	return lines
}

// testConfig returns a valid configuration for a source tree under a temporary directory.
func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := Default()
	cfg.SourceRoot = filepath.Join(dir, "VOC2012")
	cfg.DestRoot = filepath.Join(dir, "dataset")
	require.NoError(t, os.MkdirAll(VOCAnnotationDir(cfg.SourceRoot), 0755))
	return &cfg
}

// recordingLog forwards to a testing log and keeps the formatted warnings.
type recordingLog struct {
	logs.Log
	warnings []string
}

func newRecordingLog(t *testing.T) *recordingLog {
	return &recordingLog{Log: logs.NewTestingLog(t)}
}

func (l *recordingLog) Warnf(format string, a ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, a...))
	l.Log.Warnf(format, a...)
}

// countContaining returns the number of warnings that contain substr.
func (l *recordingLog) countContaining(substr string) int {
	n := 0
	for _, w := range l.warnings {
		if strings.Contains(w, substr) {
			n++
		}
	}
	return n
}
