package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	kernelgen "github.com/gogpu/kernelgen"
)

const saxpyManifest = `
kernels:
  - name: saxpy
    element: f32
    max_threads: 256
    buffers:
      - name: x
        read_only: true
      - name: y
    scalars: [alpha]
    ops:
      - {op: load, from: x, as: xv}
      - {op: load, from: y, as: yv}
      - {op: mul, lhs: alpha, rhs: xv, as: scaled}
      - {op: add, lhs: scaled, rhs: yv, as: sum}
      - {op: store, to: y, value: sum}
`

func writeManifest(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, saxpyManifest))
	require.NoError(t, err)
	require.Len(t, m.Kernels, 1)

	spec := m.Kernels[0]
	require.Equal(t, "saxpy", spec.Name)
	require.Equal(t, uint32(256), spec.MaxThreads)
	require.Len(t, spec.Buffers, 2)
	require.True(t, spec.Buffers[0].ReadOnly)
	require.Len(t, spec.Ops, 5)
}

func TestLoadManifest_Errors(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if _, err := LoadManifest(writeManifest(t, "kernels: []")); err == nil {
		t.Error("empty manifest should fail")
	}
	if _, err := LoadManifest(writeManifest(t, ":\tnot yaml")); err == nil {
		t.Error("malformed yaml should fail")
	}
}

func TestBuildKernel_Saxpy(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, saxpyManifest))
	require.NoError(t, err)

	k, err := BuildKernel(m.Kernels[0])
	require.NoError(t, err)
	require.Empty(t, kernelgen.Validate(k))

	src, info, err := kernelgen.Compile(k, kernelgen.DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "saxpy", info.EntryPoint)
	require.Contains(t, src, "alpha * xv")
	require.Contains(t, src, "y[_kg_global_id] = sum;")
}

func TestBuildKernel_LiteralsAndBuiltins(t *testing.T) {
	spec := KernelSpec{
		Name:       "relu",
		Element:    "f32",
		MaxThreads: 128,
		Buffers:    []BufferSpec{{Name: "x", ReadOnly: true}, {Name: "y"}},
		Ops: []OpSpec{
			{Op: "load", From: "x", As: "xv"},
			{Op: "max", LHS: "xv", RHS: "0.0", As: "r"},
			{Op: "store", To: "y", Value: "r"},
		},
	}
	k, err := BuildKernel(spec)
	require.NoError(t, err)

	src, _, err := kernelgen.Compile(k, kernelgen.DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, src, "fmaxf(xv, 0.0f)")
}

func TestBuildKernel_IntegerElement(t *testing.T) {
	spec := KernelSpec{
		Name:    "shift",
		Element: "u32",
		Buffers: []BufferSpec{{Name: "data"}},
		Ops: []OpSpec{
			{Op: "load", From: "data", As: "v"},
			{Op: "add", LHS: "v", RHS: "7", As: "r"},
			{Op: "store", To: "data", Value: "r"},
		},
	}
	k, err := BuildKernel(spec)
	require.NoError(t, err)

	src, _, err := kernelgen.Compile(k, kernelgen.DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, src, "v + 7u")
}

func TestBuildKernel_Errors(t *testing.T) {
	base := func() KernelSpec {
		return KernelSpec{
			Name:    "k",
			Buffers: []BufferSpec{{Name: "x"}},
			Ops:     []OpSpec{{Op: "load", From: "x", As: "v"}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*KernelSpec)
		wantErr string
	}{
		{
			name:    "UnknownElement",
			mutate:  func(s *KernelSpec) { s.Element = "f8" },
			wantErr: "unknown element type",
		},
		{
			name:    "UnnamedBuffer",
			mutate:  func(s *KernelSpec) { s.Buffers[0].Name = "" },
			wantErr: "has no name",
		},
		{
			name: "DuplicateIdentifier",
			mutate: func(s *KernelSpec) {
				s.Scalars = []string{"x"}
			},
			wantErr: `duplicate identifier "x"`,
		},
		{
			name: "UnknownOp",
			mutate: func(s *KernelSpec) {
				s.Ops = append(s.Ops, OpSpec{Op: "xor", LHS: "v", RHS: "v", As: "r"})
			},
			wantErr: `unknown op "xor"`,
		},
		{
			name: "UnknownIdentifier",
			mutate: func(s *KernelSpec) {
				s.Ops = append(s.Ops, OpSpec{Op: "add", LHS: "nope", RHS: "v", As: "r"})
			},
			wantErr: `unknown identifier "nope"`,
		},
		{
			name: "UnknownBuiltin",
			mutate: func(s *KernelSpec) {
				s.Ops = append(s.Ops, OpSpec{Op: "call", Fn: "sinh", Args: []string{"v"}, As: "r"})
			},
			wantErr: `unknown builtin "sinh"`,
		},
		{
			name: "DuplicateResult",
			mutate: func(s *KernelSpec) {
				s.Ops = append(s.Ops, OpSpec{Op: "add", LHS: "v", RHS: "v", As: "v"})
			},
			wantErr: `duplicate identifier "v"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := base()
			tt.mutate(&spec)
			_, err := BuildKernel(spec)
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
