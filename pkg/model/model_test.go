package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/teslashibe/go-franka/pkg/errors"
)

// fakeDL replaces the platform hooks for one test.
type fakeDL struct {
	open    map[string]uintptr
	symbols map[string]uintptr
	closed  []uintptr
	bound   map[string]uintptr
}

func installFake(t *testing.T) *fakeDL {
	t.Helper()
	f := &fakeDL{
		open:    map[string]uintptr{},
		symbols: map[string]uintptr{},
		bound:   map[string]uintptr{},
	}
	prevOpen, prevSym, prevClose, prevRegister := dlopen, dlsym, dlclose, register
	dlopen = func(path string) (uintptr, error) {
		h, ok := f.open[path]
		if !ok {
			return 0, errors.New(path + ": cannot open shared object file")
		}
		return h, nil
	}
	dlsym = func(_ uintptr, name string) (uintptr, error) {
		addr, ok := f.symbols[name]
		if !ok {
			return 0, errors.New("undefined symbol: " + name)
		}
		return addr, nil
	}
	dlclose = func(h uintptr) error {
		f.closed = append(f.closed, h)
		return errors.New("unload failed")
	}
	register = func(fptr any, addr uintptr) {
		if _, ok := fptr.(*func(*float64)); !ok {
			panic("fptr must be a pointer to a func")
		}
		f.bound["fn"] = addr
	}
	t.Cleanup(func() {
		dlopen, dlsym, dlclose, register = prevOpen, prevSym, prevClose, prevRegister
	})
	return f
}

func TestLoadAppendsSuffix(t *testing.T) {
	f := installFake(t)
	f.open["/opt/model"+Suffix()] = 7

	lib, err := Load("/opt/model")
	require.NoError(t, err)
	defer lib.Close()

	assert.Equal(t, "/opt/model"+Suffix(), lib.Path())
}

func TestLoadMissing(t *testing.T) {
	installFake(t)

	_, err := Load("/nowhere/model")

	assert.Equal(t, errs.KindModelLibrary, errs.KindOf(err))
	assert.ErrorContains(t, err, "cannot load model library")
}

func TestLoadTwice(t *testing.T) {
	f := installFake(t)
	f.open["/opt/twice"+Suffix()] = 3

	lib, err := Load("/opt/twice")
	require.NoError(t, err)

	_, err = Load("/opt/twice")
	assert.ErrorIs(t, err, errs.ErrModelLibrary)
	assert.ErrorContains(t, err, "already loaded")

	lib.Close()
	again, err := Load("/opt/twice")
	require.NoError(t, err, "a closed library may be loaded again")
	again.Close()
}

func TestSymbol(t *testing.T) {
	f := installFake(t)
	f.open["/opt/sym"+Suffix()] = 1
	f.symbols["M_NE"] = 0x1000

	lib, err := Load("/opt/sym")
	require.NoError(t, err)
	defer lib.Close()

	addr, err := lib.Symbol("M_NE")
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x1000), addr)

	_, err = lib.Symbol("c_NE")
	assert.Equal(t, errs.KindModelLibrary, errs.KindOf(err))
	assert.ErrorContains(t, err, "symbol cannot be found")
}

func TestCloseSwallowsErrors(t *testing.T) {
	f := installFake(t)
	f.open["/opt/close"+Suffix()] = 9

	lib, err := Load("/opt/close")
	require.NoError(t, err)

	lib.Close()
	lib.Close()

	assert.Equal(t, []uintptr{9}, f.closed)
	_, err = lib.Symbol("anything")
	assert.ErrorContains(t, err, "closed")
}

func TestBind(t *testing.T) {
	f := installFake(t)
	f.open["/opt/bind"+Suffix()] = 2
	f.symbols["g_NE"] = 0x2000

	lib, err := Load("/opt/bind")
	require.NoError(t, err)
	defer lib.Close()

	var gravity func(*float64)
	require.NoError(t, lib.Bind(&gravity, "g_NE"))
	assert.Equal(t, uintptr(0x2000), f.bound["fn"])

	err = lib.Bind(gravity, "g_NE")
	assert.Equal(t, errs.KindModelLibrary, errs.KindOf(err), "a non-pointer is rejected")

	assert.Error(t, lib.Bind(&gravity, "missing"))
}
