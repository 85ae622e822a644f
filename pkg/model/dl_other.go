//go:build !darwin && !linux

package model

func openLibrary(string) (uintptr, error) {
	return 0, errUnsupported
}

func lookupSymbol(uintptr, string) (uintptr, error) {
	return 0, errUnsupported
}

func closeLibrary(uintptr) error {
	return nil
}

func registerFunc(any, uintptr) {
	panic(errUnsupported)
}
