package core

import (
	"os"
	"path/filepath"
	"runtime"
)

// CreateFile creates a file at the specified path, creating parent directories as needed,
// & returns a file handle.
func CreateFile(path string) (*os.File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	absDir := filepath.Dir(absPath)
	err = os.MkdirAll(absDir, 0o755)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(absPath)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// WriteFile writes data to a new file at path in a single pass, & syncs it to disk.
func WriteFile(path string, data []byte) error {
	f, err := CreateFile(path)
	if err != nil {
		return err
	}

	if _, err = f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// FileExists checks if a file exists and is not a directory.
func FileExists(filename string) (bool, error) {
	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// IsExecutable reports whether the file at path has any executable permission bit set.
// Windows has no such bits, so any regular file counts.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
