package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
)

const (
	tracePattern = "pw_trace_*.zip"
	videoPrefix  = "pw_video_"

	// defaultVideoPattern matches the files playwright writes into a video directory
	defaultVideoPattern = "*.webm"
)

// Stager allocates temporary locations where capture output is written
// before it is either promoted to an artifact or discarded.
type Stager struct {
	fs          afero.Fs
	dir         string
	videoGlob   glob.Glob
	stepNameRep *strings.Replacer
}

// NewStager creates a stager rooted at dir on fs. An empty dir means os.TempDir().
func NewStager(fs afero.Fs, dir string) *Stager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Stager{
		fs:          fs,
		dir:         dir,
		videoGlob:   glob.MustCompile(defaultVideoPattern),
		stepNameRep: strings.NewReplacer("/", "_", "\\", "_", " ", "_", "*", "_"),
	}
}

// NewOSStager creates a stager on the real filesystem under os.TempDir().
func NewOSStager() *Stager {
	return NewStager(afero.NewOsFs(), "")
}

// Fs returns the filesystem the stager writes to.
func (s *Stager) Fs() afero.Fs {
	return s.fs
}

// NewTraceFile creates an empty file the trace archive will be written to.
func (s *Stager) NewTraceFile() (string, error) {
	f, err := afero.TempFile(s.fs, s.dir, tracePattern)
	if err != nil {
		return "", fmt.Errorf("failed to create trace file: %w", err)
	}
	defer f.Close()
	return f.Name(), nil
}

// NewVideoDir creates an empty directory videos will be recorded into.
func (s *Stager) NewVideoDir() (string, error) {
	dir, err := afero.TempDir(s.fs, s.dir, videoPrefix)
	if err != nil {
		return "", fmt.Errorf("failed to create video directory: %w", err)
	}
	return dir, nil
}

// WriteScreenshot stores a screenshot taken after a step. The file name carries
// the step sequence number and the step name.
func (s *Stager) WriteScreenshot(seq int, stepName string, data []byte) (string, error) {
	pattern := fmt.Sprintf("step%02d_%s_*.png", seq, s.stepNameRep.Replace(stepName))
	f, err := afero.TempFile(s.fs, s.dir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		_ = s.fs.Remove(f.Name())
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close screenshot file: %w", err)
	}
	return f.Name(), nil
}

// FindFirstFile returns the first completed file in dir. Video files are
// finished asynchronously, so an empty directory simply means nothing was recorded.
func (s *Stager) FindFirstFile(dir string) (string, bool) {
	if dir == "" {
		return "", false
	}
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return "", false
	}

	var fallback string
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		if s.videoGlob.Match(info.Name()) {
			return filepath.Join(dir, info.Name()), true
		}
		if fallback == "" {
			fallback = filepath.Join(dir, info.Name())
		}
	}
	return fallback, fallback != ""
}

// Captured reports whether path exists and holds data.
func (s *Stager) Captured(path string) bool {
	if path == "" {
		return false
	}
	info, err := s.fs.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Remove deletes a staged file. A missing file is not an error.
func (s *Stager) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// RemoveAll deletes a staged directory and everything in it.
func (s *Stager) RemoveAll(dir string) error {
	if dir == "" {
		return nil
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	return nil
}
