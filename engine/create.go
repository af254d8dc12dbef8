package engine

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"

	"github.com/tidalwave-it/solidblue/fsys"
	"github.com/tidalwave-it/solidblue/types"
	"github.com/tidalwave-it/solidblue/utils"
)

// perFileOverhead is the filesystem metadata allowance per stored file used
// when sizing the container.
const perFileOverhead = 10 * 1024

// containerSlack is the multiplicative slack on top of the content size.
const containerSlack = 1.02

// opticalPollInterval is how often the burned medium is probed for its mount
// point after the tray closes.
const opticalPollInterval = 5 * time.Second

// opticalPollTimeout bounds the wait for the burned medium.
const opticalPollTimeout = time.Hour

// CreateEncryptedBackup stages the given folders into a fresh encrypted
// container, wraps the container into a hybrid optical image and, when burn
// is set, burns it, then registers and verifies the new medium. Failures are
// reported through the observer; the working area is cleaned on exit only in
// burn mode (the staged image is otherwise left for inspection).
func (e *Engine) CreateEncryptedBackup(ctx context.Context, backupName, algorithm, hashAlgorithm string, folders []string, burn bool) error {
	workingDir := e.conf.WorkingDir
	imageFolder := filepath.Join(workingDir, backupName+"_contents")
	imageFile := filepath.Join(imageFolder, backupName+fsys.ContainerSuffix)
	containerMount := filepath.Join(e.conf.VolumesDir, backupName)
	optImage := filepath.Join(workingDir, backupName)
	optImageExt := optImage + ".dmg"

	err := e.createEncryptedBackup(ctx, backupName, algorithm, hashAlgorithm, folders, burn,
		workingDir, imageFolder, imageFile, containerMount, optImage, optImageExt)
	if err != nil {
		e.observer.Error(fmt.Sprintf("ERROR: Procedure failed: %v", err))
	}
	if burn {
		e.observer.Message(fmt.Sprintf("Cleaning up working area (%s)...", workingDir))
		if rmErr := e.fs.RemoveTree(workingDir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

func (e *Engine) createEncryptedBackup(ctx context.Context, backupName, algorithm, hashAlgorithm string, folders []string, burn bool,
	workingDir, imageFolder, imageFile, containerMount, optImage, optImageExt string) error {
	files, err := e.countFiles(ctx, folders, "")
	if err != nil {
		return err
	}
	total := totalSize(files)
	containerSize := int64(math.Round(float64(total+int64(len(files))*perFileOverhead) * containerSlack))

	e.observer.Message(fmt.Sprintf("Cleaning up working area (%s)...", workingDir))
	if err := e.fs.RemoveTree(workingDir); err != nil {
		return err
	}
	if err := e.fs.MakeDirs(imageFolder); err != nil {
		return err
	}

	if err := e.fs.CreateEncryptedImage(ctx, algorithm, hashAlgorithm, e.conf.KeyFile, containerSize, imageFile, e.veracryptOutput); err != nil {
		return err
	}
	imageSize, err := e.fs.Size(imageFile)
	if err != nil {
		return err
	}
	e.observer.Message(fmt.Sprintf("Veracrypt image size is %s", units.HumanSize(float64(imageSize))))

	e.observer.Message("Mounting encrypted image...")
	if err := e.fs.MountEncrypted(ctx, imageFile, containerMount, e.conf.KeyFile); err != nil {
		return err
	}

	e.observer.Message("Copying files...")
	e.observer.SecondaryProgress(0)
	if err := e.copyToContainer(ctx, files, folders, containerMount, total); err != nil {
		return err
	}

	e.observer.Message("Unmounting encrypted image...")
	if err := e.fs.UnmountEncrypted(ctx, containerMount); err != nil {
		return err
	}

	if err := e.fs.BuildHybridImage(ctx, backupName, optImage, imageFolder); err != nil {
		return err
	}
	burnSize, err := e.fs.Size(optImageExt)
	if err != nil {
		return err
	}
	e.observer.Message(fmt.Sprintf("Burn image size is %s", units.HumanSize(float64(burnSize))))

	if !burn {
		return nil
	}
	return e.burnAndRegister(ctx, backupName, optImageExt)
}

// copyToContainer mirrors each source file under the mount point, rooted at
// the basename of the source folder it belongs to. Copies preserve extended
// attributes so identities travel to the backup.
func (e *Engine) copyToContainer(ctx context.Context, files []types.FileInfo, folders []string, containerMount string, total int64) error {
	var current int64
	for _, file := range files {
		parent := ""
		for _, folder := range folders {
			if strings.HasPrefix(file.Folder, folder) {
				parent = filepath.Base(folder)
				break
			}
		}
		if parent == "" {
			return fmt.Errorf("file %s belongs to no source folder", file.Path)
		}
		targetFolder := filepath.Join(containerMount, parent)
		if err := e.fs.MakeDirs(targetFolder); err != nil {
			return err
		}
		e.observer.File(file.Name, false)
		if err := e.fs.CopyPreservingXattrs(ctx, file.Path, filepath.Join(targetFolder, file.Name)); err != nil {
			return err
		}
		current += file.Size
		e.observer.SecondaryProgress(float64(current) / float64(total))
	}
	return nil
}

// burnAndRegister burns the image, waits for the medium to come back mounted
// (the burner always ejects), then registers and verifies it.
func (e *Engine) burnAndRegister(ctx context.Context, backupName, image string) error {
	opticalMount := filepath.Join(e.conf.VolumesDir, backupName)
	if err := e.fs.Burn(ctx, image, e.drutilOutput); err != nil {
		return err
	}

	err := utils.WaitFor(ctx, opticalPollTimeout, opticalPollInterval, func() (bool, error) {
		if e.fs.Exists(opticalMount) {
			return true, nil
		}
		e.observer.Message("Optical disk not mounted, please close the tray.")
		return false, nil
	})
	if err != nil {
		return err
	}

	if err := e.RegisterBackup(ctx, backupName, opticalMount, false); err != nil {
		return err
	}
	if err := e.VerifyBackup(ctx, opticalMount, false); err != nil {
		return err
	}
	if err := e.fs.DetachVolume(ctx, opticalMount); err != nil {
		return err
	}
	return e.fs.Eject(ctx, opticalMount)
}

var (
	veracryptProgressRe = regexp.MustCompile(`Done: *([0-9.]+)% *Speed: *([0-9].+) *MiB/s *Left: *([0-9]+) *(s|minutes)`)
	veracryptSpuriousRe = regexp.MustCompile(`Done: *([0-9.-]+)% *Speed: *Left:$`)
	drutilProgressRe    = regexp.MustCompile(`^.*\] ([0-9]+)%.*$`)
	drutilDigitsRe      = regexp.MustCompile(`^.*([0-9]+)%.*$`)
)

// veracryptOutput turns the container tool's repainted progress lines into
// secondary progress and routes the rest to messages or errors.
func (e *Engine) veracryptOutput(line string) {
	line = strings.TrimSpace(line)
	if veracryptSpuriousRe.MatchString(line) {
		return
	}
	match := veracryptProgressRe.FindStringSubmatch(line)
	if match != nil {
		if pct, err := strconv.ParseFloat(match[1], 64); err == nil {
			e.observer.SecondaryProgress(pct / 100)
		}
	}
	if line == "" {
		return
	}
	switch {
	case strings.Contains(line, "Error"):
		e.observer.Error(line)
	case match == nil:
		e.observer.Message(line)
	}
}

// drutilOutput interprets the burner's progress bar output.
func (e *Engine) drutilOutput(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if match := drutilProgressRe.FindStringSubmatch(line); match != nil {
		if pct, err := strconv.ParseFloat(match[1], 64); err == nil {
			e.observer.SecondaryProgress(pct / 100)
		}
		return
	}
	if strings.Contains(line, "Closing") {
		e.observer.Message("Finalising...")
		return
	}
	if !drutilDigitsRe.MatchString(line) {
		e.observer.Message(line)
	}
}
