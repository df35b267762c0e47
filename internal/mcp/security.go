package mcp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AllowedBasePaths contains directories from which files can be read and to which
// reports can be exported. If empty, defaults to current working directory.
var AllowedBasePaths []string

// InitAllowedPaths replaces AllowedBasePaths, ignoring blank entries
func InitAllowedPaths(paths []string) {
	AllowedBasePaths = AllowedBasePaths[:0:0]
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			AllowedBasePaths = append(AllowedBasePaths, p)
		}
	}
}

// ValidateFilePath ensures the path is safe to access.
func ValidateFilePath(requestedPath string) (string, error) {
	if requestedPath == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}

	absPath, err := filepath.Abs(requestedPath)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	// Resolve symlinks to prevent bypass
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", requestedPath)
		}
		return "", fmt.Errorf("cannot resolve path: %w", err)
	}

	if err := checkAllowed(realPath); err != nil {
		return "", err
	}
	return realPath, nil
}

// ValidateWritePath checks a destination for an exported workbook. The parent directory
// must exist inside an allowed directory; an existing file is only accepted with overwrite.
func ValidateWritePath(requestedPath string, overwrite bool) (string, error) {
	if requestedPath == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}
	if ext := strings.ToLower(filepath.Ext(requestedPath)); ext != ".xlsx" {
		return "", fmt.Errorf("invalid extension %q: exports must be .xlsx", ext)
	}

	absPath, err := filepath.Abs(requestedPath)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	realDir, err := filepath.EvalSymlinks(filepath.Dir(absPath))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("directory not found: %s", filepath.Dir(requestedPath))
		}
		return "", fmt.Errorf("cannot resolve path: %w", err)
	}
	target := filepath.Join(realDir, filepath.Base(absPath))

	info, err := os.Lstat(target)
	switch {
	case err == nil:
		if !overwrite {
			return "", fmt.Errorf("file already exists: %s", requestedPath)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			// an existing link must not point the write outside the allowed directories
			if target, err = filepath.EvalSymlinks(target); err != nil {
				return "", fmt.Errorf("cannot resolve path: %w", err)
			}
		} else if info.IsDir() {
			return "", fmt.Errorf("path is a directory: %s", requestedPath)
		}
	case !os.IsNotExist(err):
		return "", fmt.Errorf("cannot stat path: %w", err)
	}

	if err := checkAllowed(target); err != nil {
		return "", err
	}
	return target, nil
}

// CheckFileSize rejects files larger than maxSize bytes
func CheckFileSize(path string, maxSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat file: %w", err)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return fmt.Errorf("file too large: %d bytes exceeds limit of %d bytes", info.Size(), maxSize)
	}
	return nil
}

func checkAllowed(realPath string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("cannot determine working directory: %w", err)
	}

	basePaths := AllowedBasePaths
	if len(basePaths) == 0 {
		basePaths = []string{cwd}
	}

	for _, base := range basePaths {
		absBase, err := filepath.Abs(base)
		if err != nil {
			continue
		}
		realBase, err := filepath.EvalSymlinks(absBase)
		if err != nil {
			continue
		}
		if strings.HasPrefix(realPath, realBase+string(os.PathSeparator)) || realPath == realBase {
			return nil
		}
	}

	return fmt.Errorf("access denied: path outside allowed directories")
}
