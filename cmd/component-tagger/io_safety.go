package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644

	dependencyDir = "node_modules"
)

var (
	// ErrEmptyPath indicates a path argument was empty.
	ErrEmptyPath = errors.New("path is empty")
	// ErrPathContainsNUL indicates the path contains a NUL byte.
	ErrPathContainsNUL = errors.New("path contains NUL byte")
	// ErrOutsideRoot indicates an output path would escape the output directory.
	ErrOutsideRoot = errors.New("path escapes output directory")
)

func resolveUserPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}

	if strings.ContainsRune(path, '\x00') {
		return "", fmt.Errorf("%w: %q", ErrPathContainsNUL, path)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	return absPath, nil
}

// collectFiles resolves args to absolute file paths. Directories are walked
// for files accepted by eligible, skipping dependency directories.
func collectFiles(args []string, eligible func(string) bool) ([]string, error) {
	var files []string

	for _, arg := range args {
		path, err := resolveUserPath(arg)
		if err != nil {
			return nil, err
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			files = append(files, path)

			continue
		}

		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}

			if d.IsDir() {
				if d.Name() == dependencyDir || (p != path && strings.HasPrefix(d.Name(), ".")) {
					return filepath.SkipDir
				}

				return nil
			}

			if eligible(p) {
				files = append(files, p)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	}

	return files, nil
}

// outputPath mirrors path under outDir, relative to root. Paths outside root
// keep only their base name.
func outputPath(outDir, root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(path)
	}

	target := filepath.Join(outDir, rel)

	check, err := filepath.Rel(outDir, target)
	if err != nil || strings.HasPrefix(check, "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}

	return target, nil
}

func writeFile(path string, data []byte) error {
	err := os.MkdirAll(filepath.Dir(path), dirPerm)
	if err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	//nolint:gosec // path is produced by outputPath and stays under the output directory.
	err = os.WriteFile(path, data, filePerm)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return nil
}

func sanitizeForTerminal(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, input)
}
