package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/resinker/resinker/internal/record"
	"github.com/resinker/resinker/internal/spec"
)

// rotationThreshold is how many events one file holds under count-based
// rotation.
const rotationThreshold = 1000

// File appends newline-delimited JSON events to a file, creating parent
// directories as needed. With file_rotation "count" it cuts over to a
// fresh timestamped file every rotationThreshold events.
type File struct {
	format      string
	basePath    string
	rotate      bool
	file        *os.File
	written     int
	rotationSeq int
	now         func() time.Time
}

// NewFile builds a file sink from the output config.
func NewFile(cfg spec.OutputConfig) (*File, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("file sink requires file_path")
	}
	f := &File{
		format:   cfg.Format,
		basePath: cfg.FilePath,
		rotate:   cfg.FileRotation == "count",
		now:      time.Now,
	}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) open() error {
	if f.file != nil {
		if err := f.file.Close(); err != nil {
			return err
		}
		f.file = nil
	}
	path := f.basePath
	if f.rotate {
		ext := filepath.Ext(f.basePath)
		stem := strings.TrimSuffix(f.basePath, ext)
		path = fmt.Sprintf("%s_%s_%d%s", stem, f.now().Format("20060102_150405"), f.rotationSeq, ext)
		f.rotationSeq++
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	f.file = file
	f.written = 0
	return nil
}

func (f *File) Name() string { return "file" }

func (f *File) Emit(ev *record.Event) error {
	if f.rotate && f.written >= rotationThreshold {
		if err := f.open(); err != nil {
			return err
		}
	}
	data, err := encode(ev, f.format)
	if err != nil {
		return err
	}
	if _, err := f.file.Write(append(data, '\n')); err != nil {
		return err
	}
	f.written++
	return nil
}

func (f *File) Flush() error {
	if f.file == nil {
		return nil
	}
	return f.file.Sync()
}

func (f *File) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
