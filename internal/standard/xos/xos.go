// Copyright 2026 The flexfolio Authors
//
// All rights reserved.

// Package xos provides extensions to the standard os package.
package xos

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome expands a leading ~ in a path to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDirPath, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not get home directory: %w", err)
	}
	return filepath.Join(homeDirPath, strings.TrimPrefix(path, "~")), nil
}

// WriteFileAtomic writes data to filePath via a temporary file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// truncated file at the destination.
func WriteFileAtomic(filePath string, data []byte, perm os.FileMode) error {
	tempFile, err := os.CreateTemp(filepath.Dir(filePath), "."+filepath.Base(filePath)+".tmp*")
	if err != nil {
		return err
	}
	tempFilePath := tempFile.Name()
	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		os.Remove(tempFilePath)
		return err
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempFilePath)
		return err
	}
	if err := os.Chmod(tempFilePath, perm); err != nil {
		os.Remove(tempFilePath)
		return err
	}
	if err := os.Rename(tempFilePath, filePath); err != nil {
		os.Remove(tempFilePath)
		return err
	}
	return nil
}
