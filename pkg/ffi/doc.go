// Package ffi provides the cgo-backed inference engine over the compiled
// Edge Impulse model library.
//
// The native engine is only available when the package is built with the
// ei_model tag and a model tree has been built under model/ (see
// cmd/eibuild). Without the tag, NewEngine fails closed with
// ErrNativeUnavailable so callers can fall back to impulse.SimEngine.
package ffi

type ffiError string

func (e ffiError) Error() string { return string(e) }

// ErrNativeUnavailable is returned by NewEngine when the binary was
// built without the ei_model tag.
const ErrNativeUnavailable = ffiError("native inference engine not compiled in (build with -tags ei_model)")
