package fsys

import (
	"context"
	"time"

	"github.com/tidalwave-it/solidblue/executor"
	"github.com/tidalwave-it/solidblue/types"
)

// Extended attribute names bound to managed files. These are a wire contract:
// they must match across reinstalls and implementations for the identity
// space to survive.
const (
	XattrID                   = "it.tidalwave.datamanager.id"
	XattrFingerprint          = "it.tidalwave.datamanager.fingerprint.md5"
	XattrFingerprintTimestamp = "it.tidalwave.datamanager.fingerprint.md5.timestamp"
)

// FS is the facade over the local filesystem and the native volume tools.
// The engine depends on this interface only; tests substitute a fake.
type FS interface {
	// Enumerate walks folders recursively, following symlinks, and returns
	// the regular files whose basename matches pattern (a regular expression,
	// case-insensitive, unanchored). Order is unspecified.
	Enumerate(folders []string, pattern string) ([]types.FileInfo, error)

	// GetXattr returns the named attribute as a UTF-8 string, or "" when the
	// attribute is missing (a missing attribute is not an error).
	GetXattr(path, name string) (string, error)
	// SetXattr writes the named attribute as a UTF-8 string.
	SetXattr(path, name, value string) error

	// VolumeUUID returns the filesystem-assigned UUID of the volume mounted
	// at mountPoint, or "" when the tool reports none.
	VolumeUUID(ctx context.Context, mountPoint string) (string, error)
	// Ctime returns the creation timestamp of path.
	Ctime(path string) (time.Time, error)
	// ListVolumes returns the mount points currently present under the
	// volumes folder.
	ListVolumes(volumesDir string) ([]string, error)

	Size(path string) (int64, error)
	Exists(path string) bool
	MakeDirs(path string) error
	RemoveTree(path string) error

	// CopyPreservingXattrs copies src to dst keeping extended attributes, so
	// the identity xattr travels with the copy.
	CopyPreservingXattrs(ctx context.Context, src, dst string) error

	// MountEncrypted mounts an encrypted container image at mountPoint.
	MountEncrypted(ctx context.Context, image, mountPoint, keyFile string) error
	// UnmountEncrypted dismounts the container mounted at mountPoint.
	UnmountEncrypted(ctx context.Context, mountPoint string) error
	// CreateEncryptedImage creates a container of at least sizeBytes using
	// the given encryption and hash algorithm tokens. Tool output lines are
	// streamed to output.
	CreateEncryptedImage(ctx context.Context, algo, hashAlgo, keyFile string, sizeBytes int64, imagePath string, output executor.LineFunc) error

	// BuildHybridImage assembles an optical-disc image from sourceFolder.
	BuildHybridImage(ctx context.Context, label, outImage, sourceFolder string) error
	// Burn writes an image to optical media, streaming tool output to output.
	Burn(ctx context.Context, image string, output executor.LineFunc) error
	// DetachVolume unmounts an optical volume.
	DetachVolume(ctx context.Context, mountPoint string) error
	// Eject opens the optical tray.
	Eject(ctx context.Context, mountPoint string) error
}
