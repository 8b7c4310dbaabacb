// Package fsops implements the in-process file actions of tasks:
// deleting files, staging a glob-filtered copy and checking freshness.
//
// Errors are *fs.PathError values naming the failed operation.
package fsops

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/pubflow/pkg/domain"
	"github.com/bmatcuk/doublestar/v4"
)

// Delete removes files and directories. Missing paths are ignored.
func Delete(paths ...string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return &fs.PathError{Op: "delete", Path: p, Err: unwrapPath(err)}
		}
	}
	return nil
}

// Match reports whether rel (slash separated, relative to the copy source)
// is selected by the include patterns and not rejected by the exclude patterns.
// An empty include list selects everything.
func Match(rel string, include, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	if len(include) == 0 {
		return true
	}
	for _, pattern := range include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// ValidatePatterns rejects malformed glob patterns.
func ValidatePatterns(patterns ...string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// Stage copies the files selected by spec into spec.Into.
//
// Files are first copied into a temporary sibling of the destination, which
// then replaces the destination with a rename. A failed stage leaves the
// previous destination untouched. Extra files that do not exist are skipped.
func Stage(spec domain.CopySpec) (int, error) {
	if err := ValidatePatterns(append(append([]string{}, spec.Include...), spec.Exclude...)...); err != nil {
		return 0, &fs.PathError{Op: "stage", Path: spec.From, Err: err}
	}

	into, err := filepath.Abs(spec.Into)
	if err != nil {
		return 0, &fs.PathError{Op: "stage", Path: spec.Into, Err: err}
	}
	parent := filepath.Dir(into)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return 0, &fs.PathError{Op: "mkdir", Path: parent, Err: unwrapPath(err)}
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(into)+".stage-*")
	if err != nil {
		return 0, &fs.PathError{Op: "stage", Path: parent, Err: unwrapPath(err)}
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()

	copied, err := copyTree(spec, into, tmp)
	if err != nil {
		return 0, err
	}
	for _, extra := range spec.Extra {
		info, err := os.Stat(extra)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, &fs.PathError{Op: "stat", Path: extra, Err: unwrapPath(err)}
		}
		if err := copyFile(extra, filepath.Join(tmp, filepath.Base(extra)), info.Mode()); err != nil {
			return 0, err
		}
		copied++
	}

	if err := replaceDir(tmp, into); err != nil {
		return 0, err
	}
	committed = true
	return copied, nil
}

func copyTree(spec domain.CopySpec, into, tmp string) (int, error) {
	from, err := filepath.Abs(spec.From)
	if err != nil {
		return 0, &fs.PathError{Op: "stage", Path: spec.From, Err: err}
	}

	copied := 0
	err = filepath.WalkDir(from, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return &fs.PathError{Op: "walk", Path: path, Err: unwrapPath(err)}
		}
		if d.IsDir() {
			// The destination and staging dirs may live inside the source tree.
			if path == into || path == tmp || strings.HasPrefix(d.Name(), "."+filepath.Base(into)+".stage-") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(from, path)
		if err != nil {
			return &fs.PathError{Op: "stage", Path: path, Err: err}
		}
		if !Match(filepath.ToSlash(rel), spec.Include, spec.Exclude) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return &fs.PathError{Op: "stat", Path: path, Err: unwrapPath(err)}
		}
		dst := filepath.Join(tmp, rel)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return &fs.PathError{Op: "mkdir", Path: filepath.Dir(dst), Err: unwrapPath(err)}
		}
		if err := copyFile(path, dst, info.Mode()); err != nil {
			return err
		}
		copied++
		return nil
	})
	return copied, err
}

// replaceDir swaps dst for src. The old dst is moved aside first so that a
// failed rename can restore it.
func replaceDir(src, dst string) error {
	backup := ""
	if _, err := os.Stat(dst); err == nil {
		backup = src + ".old"
		if err := os.Rename(dst, backup); err != nil {
			return &fs.PathError{Op: "rename", Path: dst, Err: unwrapPath(err)}
		}
	}
	if err := os.Rename(src, dst); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dst)
		}
		return &fs.PathError{Op: "rename", Path: dst, Err: unwrapPath(err)}
	}
	if backup != "" {
		_ = os.RemoveAll(backup)
	}
	return nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return &fs.PathError{Op: "copy", Path: src, Err: unwrapPath(err)}
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return &fs.PathError{Op: "copy", Path: dst, Err: unwrapPath(err)}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return &fs.PathError{Op: "copy", Path: dst, Err: err}
	}
	if err := out.Close(); err != nil {
		return &fs.PathError{Op: "copy", Path: dst, Err: unwrapPath(err)}
	}
	return nil
}

func unwrapPath(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
