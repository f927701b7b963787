package imgio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/terminus-geospatial/timage"
)

// DriverFactory constructs resources for the file formats it supports.
// Support checks usually filter by extension first and may refine by probing
// file headers.
type DriverFactory interface {
	// Name identifies the driver in logs and errors.
	Name() string

	IsReadSupported(path string) bool
	IsWriteSupported(path string) bool

	CreateReadDriver(path string) (ReadResource, error)
	CreateWriteDriver(path string, format timage.ImageFormat, options map[string]string, blockW, blockH int) (WriteResource, error)
}

// DriverManager holds an ordered list of driver factories. Selection is
// first-match in registration order. The manager is safe for concurrent
// registration and selection.
type DriverManager struct {
	mu      sync.RWMutex
	readers []DriverFactory
	writers []DriverFactory
}

// NewDriverManager creates an empty manager.
func NewDriverManager() *DriverManager { return &DriverManager{} }

// RegisterReadFactory appends a factory to the read driver list.
func (m *DriverManager) RegisterReadFactory(f DriverFactory) {
	m.mu.Lock()
	m.readers = append(m.readers, f)
	m.mu.Unlock()
}

// RegisterWriteFactory appends a factory to the write driver list.
func (m *DriverManager) RegisterWriteFactory(f DriverFactory) {
	m.mu.Lock()
	m.writers = append(m.writers, f)
	m.mu.Unlock()
}

// PickReadDriver selects the first factory supporting the path and opens a
// read resource through it.
func (m *DriverManager) PickReadDriver(path string) (ReadResource, error) {
	m.mu.RLock()
	factories := m.readers
	m.mu.RUnlock()
	for _, f := range factories {
		if f.IsReadSupported(path) {
			timage.Logger().Info("read driver selected",
				slog.String("driver", f.Name()), slog.String("path", path))
			return f.CreateReadDriver(path)
		}
	}
	return nil, fmt.Errorf("%w: no read driver for %q", timage.ErrDriverNotFound, path)
}

// PickWriteDriver selects the first factory supporting the path and opens a
// write resource through it.
func (m *DriverManager) PickWriteDriver(path string, format timage.ImageFormat, options map[string]string, blockW, blockH int) (WriteResource, error) {
	m.mu.RLock()
	factories := m.writers
	m.mu.RUnlock()
	for _, f := range factories {
		if f.IsWriteSupported(path) {
			timage.Logger().Info("write driver selected",
				slog.String("driver", f.Name()), slog.String("path", path))
			return f.CreateWriteDriver(path, format, options, blockW, blockH)
		}
	}
	return nil, fmt.Errorf("%w: no write driver for %q", timage.ErrDriverNotFound, path)
}

// defaultManager is the registry populated by driver sub-packages at import
// time.
var defaultManager = NewDriverManager()

// DefaultManager returns the process-wide driver registry.
func DefaultManager() *DriverManager { return defaultManager }

// Register adds a factory to the default manager for both reading and
// writing. Driver sub-packages call it from their init functions.
func Register(f DriverFactory) {
	defaultManager.RegisterReadFactory(f)
	defaultManager.RegisterWriteFactory(f)
}
