package fsys

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tidalwave-it/solidblue/executor"
)

// VeracryptBin is the path of the veracrypt binary. Overridable for
// installations that keep it elsewhere.
var VeracryptBin = "/Applications/VeraCrypt.app/Contents/MacOS/VeraCrypt"

// ContainerSuffix marks an encrypted container file at a volume root.
const ContainerSuffix = ".veracrypt"

// MountEncrypted mounts an encrypted container image at mountPoint.
func (l *Local) MountEncrypted(ctx context.Context, image, mountPoint, keyFile string) error {
	mountPoint, err := filepath.Abs(mountPoint)
	if err != nil {
		return err
	}
	args := []string{
		VeracryptBin,
		"--text",
		"--non-interactive",
		"--keyfiles", keyFile,
		image,
		mountPoint,
	}
	if _, err := l.exec.Execute(ctx, args, executor.Options{FailOnExitCode: true}); err != nil {
		return fmt.Errorf("mount %s: %w", image, err)
	}
	return nil
}

// UnmountEncrypted dismounts the container mounted at mountPoint.
func (l *Local) UnmountEncrypted(ctx context.Context, mountPoint string) error {
	mountPoint, err := filepath.Abs(mountPoint)
	if err != nil {
		return err
	}
	args := []string{
		VeracryptBin,
		"--text",
		"--non-interactive",
		"--force",
		"--dismount", mountPoint,
	}
	if _, err := l.exec.Execute(ctx, args, executor.Options{FailOnExitCode: true}); err != nil {
		return fmt.Errorf("unmount %s: %w", mountPoint, err)
	}
	return nil
}

// CreateEncryptedImage creates a container of at least sizeBytes. The tool's
// progress output is streamed to output so the caller can surface it.
func (l *Local) CreateEncryptedImage(ctx context.Context, algo, hashAlgo, keyFile string, sizeBytes int64, imagePath string, output executor.LineFunc) error {
	args := []string{
		VeracryptBin,
		"--text",
		"--non-interactive",
		"--create", imagePath,
		"--volume-type=normal",
		fmt.Sprintf("--size=%d", sizeBytes),
		fmt.Sprintf("--encryption=%s", algo),
		fmt.Sprintf("--hash=%s", hashAlgo),
		"--filesystem=hfs",
		"--keyfiles", keyFile,
		"--quick",
		"--random-source=/dev/urandom",
	}
	if _, err := l.exec.Execute(ctx, args, executor.Options{Output: output, FailOnExitCode: true}); err != nil {
		return fmt.Errorf("create container %s: %w", imagePath, err)
	}
	return nil
}
