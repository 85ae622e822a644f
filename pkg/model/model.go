// Package model loads the robot's dynamics model library at runtime.
//
// The library is a plain shared object shipped by the controller. It is
// opened without cgo, and its exported functions are bound to Go func
// values:
//
//	lib, err := model.Load("/opt/franka/model")
//	if err != nil {
//		return err
//	}
//	defer lib.Close()
//
//	var mass func(q *float64, out *float64)
//	if err := lib.Bind(&mass, "M_NE"); err != nil {
//		return err
//	}
package model

import (
	"errors"
	"runtime"
	"sync"

	errs "github.com/teslashibe/go-franka/pkg/errors"
)

// Platform hooks. Replaced in tests.
var (
	dlopen   = openLibrary
	dlsym    = lookupSymbol
	dlclose  = closeLibrary
	register = registerFunc
)

// loaded tracks open libraries by path; a path may be open only once.
var (
	loadedMu sync.Mutex
	loaded   = map[string]bool{}
)

// Suffix returns the platform's shared library suffix.
func Suffix() string {
	switch runtime.GOOS {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

// Library is an open model library.
type Library struct {
	path   string
	handle uintptr

	mu     sync.Mutex
	closed bool
}

// Load opens the library at path plus the platform suffix.
func Load(path string) (*Library, error) {
	const op = "load model library"
	full := path + Suffix()

	loadedMu.Lock()
	defer loadedMu.Unlock()
	if loaded[full] {
		return nil, errs.Newf(errs.KindModelLibrary, op, "model library already loaded: %s", full)
	}

	handle, err := dlopen(full)
	if err != nil {
		return nil, errs.Newf(errs.KindModelLibrary, op, "cannot load model library: %w", err)
	}
	loaded[full] = true
	return &Library{path: full, handle: handle}, nil
}

// Path returns the file the library was loaded from.
func (l *Library) Path() string {
	return l.path
}

// Symbol returns the address of an exported symbol.
func (l *Library) Symbol(name string) (uintptr, error) {
	const op = "model library symbol"
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, errs.Newf(errs.KindModelLibrary, op, "library %s is closed", l.path)
	}
	addr, err := dlsym(l.handle, name)
	if err != nil {
		return 0, errs.Newf(errs.KindModelLibrary, op, "symbol cannot be found: %s: %w", name, err)
	}
	if addr == 0 {
		return 0, errs.Newf(errs.KindModelLibrary, op, "symbol cannot be found: %s", name)
	}
	return addr, nil
}

// Bind points fptr, a pointer to a func variable, at the exported function
// name. Argument and return types must match the C signature.
func (l *Library) Bind(fptr any, name string) (err error) {
	addr, err := l.Symbol(name)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = errs.Newf(errs.KindModelLibrary, "bind model function", "%s: %v", name, r)
		}
	}()
	register(fptr, addr)
	return nil
}

// Close unloads the library. Unload errors are ignored; the path may be
// loaded again afterwards.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true

	_ = dlclose(l.handle)

	loadedMu.Lock()
	delete(loaded, l.path)
	loadedMu.Unlock()
}

var errUnsupported = errors.New("dynamic loading not supported on " + runtime.GOOS)

