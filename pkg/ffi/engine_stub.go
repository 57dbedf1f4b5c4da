//go:build !ei_model

package ffi

import (
	"github.com/emergingrobotics/go-edgeimpulse/pkg/impulse"
)

// NewEngine fails closed when no model library is compiled in.
func NewEngine() (impulse.Engine, error) {
	return nil, ErrNativeUnavailable
}
