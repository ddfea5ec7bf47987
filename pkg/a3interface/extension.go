package a3interface

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/OCAP2/siegelimit/internal/dispatcher"
)

const defaultVersion = "No version set"

// extension is the state shared by the exported entry points.
type extension struct {
	mu         sync.RWMutex
	version    string
	dispatcher *dispatcher.Dispatcher
}

var ext = &extension{version: defaultVersion}

// SetVersion sets what RVExtensionVersion reports to the host on load.
func SetVersion(version string) {
	ext.mu.Lock()
	ext.version = version
	ext.mu.Unlock()
}

// SetDispatcher routes every command through d. nil detaches it.
func SetDispatcher(d *dispatcher.Dispatcher) {
	ext.mu.Lock()
	ext.dispatcher = d
	ext.mu.Unlock()
}

func (e *extension) current() (string, *dispatcher.Dispatcher) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version, e.dispatcher
}

// GetHostDir returns the directory of the host executable that loaded this library.
func GetHostDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}
