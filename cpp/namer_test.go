// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cpp

import "testing"

func TestNamer_Uniqueness(t *testing.T) {
	n := newNamer(CUDA)

	if got := n.call("x"); got != "x" {
		t.Errorf("first call = %q, want x", got)
	}
	if got := n.call("x"); got != "x_1" {
		t.Errorf("second call = %q, want x_1", got)
	}
	if got := n.call("x"); got != "x_2" {
		t.Errorf("third call = %q, want x_2", got)
	}
	if got := n.call("y"); got != "y" {
		t.Errorf("fresh base = %q, want y", got)
	}
}

func TestNamer_EscapesReserved(t *testing.T) {
	n := newNamer(Metal)
	if got := n.call("kernel"); got != "kernel_" {
		t.Errorf("call(kernel) = %q, want kernel_", got)
	}
	if got := n.call("kernel"); got == "kernel_" {
		t.Errorf("second call(kernel) = %q, want a distinct name", got)
	}
}

// Two fresh namers given the same sequence of bases must produce the same
// sequence of names.
func TestNamer_Deterministic(t *testing.T) {
	bases := []string{"x", "x", "for", "x", "tmp", "for"}

	first := newNamer(CUDA)
	second := newNamer(CUDA)
	for _, base := range bases {
		a := first.call(base)
		b := second.call(base)
		if a != b {
			t.Fatalf("diverged on base %q: %q vs %q", base, a, b)
		}
	}
}
