//go:build netlib

package rnn

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/netlib/blas/netlib"
)

// This file routes the per-step matrix-vector products through a native
// BLAS implementation when you build with `-tags netlib`.
func init() {
	blas64.Use(netlib.Implementation{})
}
