package vocyolo

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// filesByExtInDir returns all regular files with file extension ext found directly in directory
// dirPath, sorted by name. All files are returned if ext is empty.
func filesByExtInDir(dirPath, ext string) ([]string, error) {
	dirInfo, err := os.Stat(dirPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFoundError{Path: dirPath, Err: err}
		}
		return nil, fmt.Errorf("cannot read directory %q: %w", dirPath, err)
	}
	if !dirInfo.IsDir() {
		return nil, fmt.Errorf("cannot read directory %q: not a directory", dirPath)
	}

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access %q: %w", dirPath, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		// Must be a regular file or a symlink and have the requested extension.
		mode := entry.Type()
		if (!mode.IsRegular() && mode&fs.ModeSymlink == 0) || !strings.HasSuffix(name, ext) {
			continue
		}
		files = append(files, filepath.Join(dirPath, name))
	}
	sort.Strings(files)

	return files, nil
}

// splitPath splits the given file path into the dir name, the base name without extension and the
// extension (without the dot).
func splitPath(path string) (dir, baseNoExt, ext string, err error) {
	dir, file := filepath.Split(path)
	ext = filepath.Ext(file)
	if ext == "" {
		return "", "", "", fmt.Errorf("missing file extension in %q", path)
	}

	dir = strings.TrimSuffix(dir, string(os.PathSeparator))
	baseNoExt = file[0 : len(file)-len(ext)]
	ext = ext[1:]

	return dir, baseNoExt, ext, nil
}

// readLines returns a slice of lines read from the file at path. A missing file is reported as a
// *FileNotFoundError.
func readLines(path string) (lines []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FileNotFoundError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("cannot read file %q: %w", path, err)
	}
	defer closeWithErrCheck(file, &err)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %q as lines: %w", path, err)
	}

	return lines, nil
}

// writeLines writes each line followed by a newline to the file at path, replacing any existing
// file.
func writeLines(path string, lines []string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create file %q: %w", path, err)
	}
	defer closeWithErrCheck(file, &err)

	w := bufio.NewWriter(file)
	for _, line := range lines {
		if _, err := w.WriteString(line); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return w.Flush()
}

// copyFile copies the regular file at src to dst, replacing dst if it exists. A missing src is
// reported as a *FileNotFoundError.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &FileNotFoundError{Path: src, Err: err}
		}
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer closeWithErrCheck(out, &err)

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("failed to copy %q to %q: %w", src, dst, err)
	}
	return nil
}

// closeWithErrCheck calls c.Close(). If it returns an error, and (*e == nil), e is set to that
// error.
func closeWithErrCheck(c io.Closer, e *error) {
	err := c.Close()
	if err != nil && *e == nil {
		*e = err
	}
}
