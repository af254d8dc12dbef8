package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tidalwave-it/solidblue/catalog"
	"github.com/tidalwave-it/solidblue/config"
	"github.com/tidalwave-it/solidblue/executor"
	"github.com/tidalwave-it/solidblue/fsys"
	"github.com/tidalwave-it/solidblue/types"
)

// fakeFS serves file content from a real temp directory while keeping xattrs
// and volume metadata in memory, so engine tests don't depend on xattr
// support of the test filesystem.
type fakeFS struct {
	mu       sync.Mutex
	xattrs   map[string]map[string]string
	uuids    map[string]string
	ctimes   map[string]time.Time
	mounts   []string
	unmounts []string
}

var _ fsys.FS = (*fakeFS)(nil)

func newFakeFS() *fakeFS {
	return &fakeFS{
		xattrs: map[string]map[string]string{},
		uuids:  map[string]string{},
		ctimes: map[string]time.Time{},
	}
}

func (f *fakeFS) Enumerate(folders []string, pattern string) ([]types.FileInfo, error) {
	if pattern == "" {
		pattern = ".*"
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	var result []types.FileInfo
	for _, folder := range folders {
		err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.Mode().IsRegular() && re.MatchString(info.Name()) {
				result = append(result, types.FileInfo{
					Name:   info.Name(),
					Folder: filepath.Dir(path),
					Path:   path,
					Size:   info.Size(),
				})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (f *fakeFS) GetXattr(path, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.xattrs[path][name], nil
}

func (f *fakeFS) SetXattr(path, name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.xattrs[path] == nil {
		f.xattrs[path] = map[string]string{}
	}
	f.xattrs[path][name] = value
	return nil
}

// moveXattrs simulates a rename on the same filesystem, where extended
// attributes travel with the file.
func (f *fakeFS) moveXattrs(oldPath, newPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if attrs, ok := f.xattrs[oldPath]; ok {
		f.xattrs[newPath] = attrs
		delete(f.xattrs, oldPath)
	}
}

func (f *fakeFS) VolumeUUID(_ context.Context, mountPoint string) (string, error) {
	return f.uuids[mountPoint], nil
}

func (f *fakeFS) Ctime(path string) (time.Time, error) {
	if t, ok := f.ctimes[path]; ok {
		return t, nil
	}
	return time.Date(2020, 1, 1, 0, 0, 0, 0, time.Local), nil
}

func (f *fakeFS) ListVolumes(volumesDir string) ([]string, error) {
	var mounts []string
	for mount := range f.uuids {
		if strings.HasPrefix(mount, volumesDir+"/") {
			mounts = append(mounts, mount)
		}
	}
	sort.Strings(mounts)
	return mounts, nil
}

func (f *fakeFS) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *fakeFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (f *fakeFS) MakeDirs(path string) error   { return os.MkdirAll(path, 0o750) }
func (f *fakeFS) RemoveTree(path string) error { return os.RemoveAll(path) }

func (f *fakeFS) CopyPreservingXattrs(_ context.Context, src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0o600); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if attrs, ok := f.xattrs[src]; ok {
		copied := map[string]string{}
		for k, v := range attrs {
			copied[k] = v
		}
		f.xattrs[dst] = copied
	}
	return nil
}

func (f *fakeFS) MountEncrypted(_ context.Context, _, mountPoint, _ string) error {
	f.mu.Lock()
	f.mounts = append(f.mounts, mountPoint)
	f.mu.Unlock()
	return os.MkdirAll(mountPoint, 0o750)
}

func (f *fakeFS) UnmountEncrypted(_ context.Context, mountPoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmounts = append(f.unmounts, mountPoint)
	return nil
}

func (f *fakeFS) CreateEncryptedImage(_ context.Context, _, _, _ string, sizeBytes int64, imagePath string, output executor.LineFunc) error {
	if output != nil {
		output("Done: 100.0%  Speed: 12 MiB/s  Left: 0 s")
	}
	// A stand-in container: the engine only sizes and mounts it.
	return os.WriteFile(imagePath, []byte(fmt.Sprintf("container %d", sizeBytes)), 0o600)
}

func (f *fakeFS) BuildHybridImage(_ context.Context, _, outImage, _ string) error {
	return os.WriteFile(outImage+".dmg", []byte("hybrid image"), 0o600)
}

func (f *fakeFS) Burn(context.Context, string, executor.LineFunc) error { return nil }
func (f *fakeFS) DetachVolume(context.Context, string) error            { return nil }
func (f *fakeFS) Eject(context.Context, string) error                   { return nil }

// spy records every observer notification in arrival order.
type spy struct {
	mu        sync.Mutex
	messages  []string
	errors    []string
	files     []string // "path|new" / "path|old"
	moves     []string // "old -> new"
	progress  [][2]int64
	secondary []float64
	counted   int
}

func (s *spy) Counting()     {}
func (s *spy) FileCount(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counted = n
}
func (s *spy) Progress(partial, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, [2]int64{partial, total})
}
func (s *spy) SecondaryProgress(fraction float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secondary = append(s.secondary, fraction)
}
func (s *spy) File(path string, isNew bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	suffix := "|old"
	if isNew {
		suffix = "|new"
	}
	s.files = append(s.files, path+suffix)
}
func (s *spy) FileMoved(oldPath, newPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves = append(s.moves, oldPath+" -> "+newPath)
}
func (s *spy) Message(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, text)
}
func (s *spy) Error(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, text)
}

// harness bundles an engine with its fakes and a reusable catalog path.
type harness struct {
	engine  *Engine
	fs      *fakeFS
	obs     *spy
	conf    *config.Config
	dbFile  string
	nowTime time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	base := t.TempDir()
	conf := &config.Config{
		AppDir:     filepath.Join(base, "state"),
		WorkingDir: filepath.Join(base, "work"),
		VolumesDir: filepath.Join(base, "Volumes"),
		KeyFile:    filepath.Join(base, "key"),
	}
	require.NoError(t, os.MkdirAll(conf.DatabaseDir(), 0o750))
	require.NoError(t, os.MkdirAll(conf.VolumesDir, 0o750))

	h := &harness{
		fs:      newFakeFS(),
		obs:     &spy{},
		conf:    conf,
		dbFile:  conf.DatabaseFile(),
		nowTime: time.Date(2021, 6, 15, 12, 0, 0, 0, time.Local),
	}

	var idCounter int
	h.engine = New(conf, Options{
		FS:       h.fs,
		Observer: h.obs,
		Now:      func() time.Time { return h.nowTime },
		NewID: func() string {
			idCounter++
			return fmt.Sprintf("00000000-0000-4000-8000-%012d", idCounter)
		},
		NewCatalog: func() *catalog.Catalog { return catalog.New(h.dbFile) },
	})
	return h
}

// openCatalog opens the catalog for test inspection; the caller must Close.
func (h *harness) openCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New(h.dbFile)
	require.NoError(t, cat.Open(context.Background()))
	return cat
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
