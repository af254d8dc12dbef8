package fsys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/tidalwave-it/solidblue/executor"
	"github.com/tidalwave-it/solidblue/types"
)

// compile-time interface check.
var _ FS = (*Local)(nil)

// Local implements FS against the local filesystem, driving the native
// encryption and optical tools through the executor.
type Local struct {
	exec *executor.Executor
}

// New creates a Local filesystem port.
func New(exec *executor.Executor) *Local {
	return &Local{exec: exec}
}

// Enumerate walks folders recursively following symlinks. filepath.WalkDir
// does not follow directory symlinks, so the walk is explicit.
func (l *Local) Enumerate(folders []string, pattern string) ([]types.FileInfo, error) {
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile filter %q: %w", pattern, err)
	}

	var result []types.FileInfo
	for _, folder := range folders {
		if err := l.walk(folder, re, &result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (l *Local) walk(folder string, re *regexp.Regexp, out *[]types.FileInfo) error {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return fmt.Errorf("read %s: %w", folder, err)
	}
	for _, entry := range entries {
		path := filepath.Join(folder, entry.Name())
		// Stat, not the entry's own info: symlinks resolve to their target.
		info, err := os.Stat(path)
		if err != nil {
			continue // dangling symlink or vanished entry
		}
		switch {
		case info.IsDir():
			if err := l.walk(path, re, out); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			if re.MatchString(entry.Name()) {
				*out = append(*out, types.FileInfo{
					Name:   entry.Name(),
					Folder: folder,
					Path:   path,
					Size:   info.Size(),
				})
			}
		}
	}
	return nil
}

func (l *Local) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (l *Local) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (l *Local) MakeDirs(path string) error {
	return os.MkdirAll(path, 0o750)
}

func (l *Local) RemoveTree(path string) error {
	return os.RemoveAll(path)
}

// ListVolumes returns the mount points under volumesDir, sorted by ReadDir.
func (l *Local) ListVolumes(volumesDir string) ([]string, error) {
	entries, err := os.ReadDir(volumesDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", volumesDir, err)
	}
	var mounts []string
	for _, entry := range entries {
		mounts = append(mounts, filepath.Join(volumesDir, entry.Name()))
	}
	return mounts, nil
}

// CopyPreservingXattrs shells out to cp -p: the stdlib copy loses extended
// attributes, and the identity xattr must travel with the file.
func (l *Local) CopyPreservingXattrs(ctx context.Context, src, dst string) error {
	_, err := l.exec.Execute(ctx, []string{"cp", "-p", src, dst}, executor.Options{FailOnExitCode: true})
	return err
}
