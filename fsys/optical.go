package fsys

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidalwave-it/solidblue/executor"
)

var volumeUUIDPattern = regexp.MustCompile(`Volume UUID: *([0-9A-F-]+)`)

// VolumeUUID asks diskutil for the UUID of the volume mounted at mountPoint.
// Returns "" when the tool reports none (e.g. FAT media).
func (l *Local) VolumeUUID(ctx context.Context, mountPoint string) (string, error) {
	var lines []string
	_, err := l.exec.Execute(ctx, []string{"diskutil", "info", mountPoint}, executor.Options{
		Output: func(line string) { lines = append(lines, line) },
	})
	if err != nil {
		return "", fmt.Errorf("diskutil info %s: %w", mountPoint, err)
	}
	match := volumeUUIDPattern.FindStringSubmatch(strings.Join(lines, "\n"))
	if match == nil {
		return "", nil
	}
	return match[1], nil
}

// BuildHybridImage assembles an optical-disc image from sourceFolder.
// HFS only: there is no way to retrieve a unique volume id for -udf or -joliet.
func (l *Local) BuildHybridImage(ctx context.Context, label, outImage, sourceFolder string) error {
	args := []string{
		"hdiutil", "makehybrid",
		"-o", outImage,
		sourceFolder,
		"-ov",
		"-hfs",
		"-default-volume-name", label,
	}
	if _, err := l.exec.Execute(ctx, args, executor.Options{FailOnExitCode: true}); err != nil {
		return fmt.Errorf("build image %s: %w", outImage, err)
	}
	return nil
}

// Burn writes an image to optical media. The burner ejects the tray when
// done; there is no way to prevent that.
func (l *Local) Burn(ctx context.Context, image string, output executor.LineFunc) error {
	args := []string{"drutil", "burn", "-noverify", "-speed", "6", image}
	if _, err := l.exec.Execute(ctx, args, executor.Options{Output: output, FailOnExitCode: true}); err != nil {
		return fmt.Errorf("burn %s: %w", image, err)
	}
	return nil
}

// DetachVolume unmounts an optical volume.
func (l *Local) DetachVolume(ctx context.Context, mountPoint string) error {
	if _, err := l.exec.Execute(ctx, []string{"hdiutil", "detach", mountPoint}, executor.Options{FailOnExitCode: true}); err != nil {
		return fmt.Errorf("detach %s: %w", mountPoint, err)
	}
	return nil
}

// Eject opens the optical tray.
func (l *Local) Eject(ctx context.Context, _ string) error {
	_, err := l.exec.Execute(ctx, []string{"drutil", "tray", "eject"}, executor.Options{})
	return err
}
