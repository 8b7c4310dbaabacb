package fsops

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// UpToDate reports whether every output exists and is newer than every input.
// It is false when either list is empty or an input is missing.
// Directories count as their newest (inputs) or oldest (outputs) file.
func UpToDate(inputs, outputs []string) (bool, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return false, nil
	}

	var newestInput time.Time
	for _, in := range inputs {
		t, ok, err := mtime(in, true)
		if err != nil || !ok {
			return false, err
		}
		if t.After(newestInput) {
			newestInput = t
		}
	}

	for _, out := range outputs {
		t, ok, err := mtime(out, false)
		if err != nil || !ok {
			return false, err
		}
		if !t.After(newestInput) {
			return false, nil
		}
	}
	return true, nil
}

func mtime(path string, newest bool) (time.Time, bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, &fs.PathError{Op: "stat", Path: path, Err: unwrapPath(err)}
	}
	if !info.IsDir() {
		return info.ModTime(), true, nil
	}

	result := info.ModTime()
	found := false
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		mt := fi.ModTime()
		switch {
		case !found:
			result, found = mt, true
		case newest && mt.After(result):
			result = mt
		case !newest && mt.Before(result):
			result = mt
		}
		return nil
	})
	if err != nil {
		return time.Time{}, false, &fs.PathError{Op: "walk", Path: path, Err: unwrapPath(err)}
	}
	return result, true, nil
}
