// Command kernelgen generates GPU C++ kernels from a YAML manifest.
//
// Usage:
//
//	kernelgen build [options] <manifest.yaml>
//
// Examples:
//
//	kernelgen build kernels.yaml                     # CUDA to ./
//	kernelgen build -d metal -o gen kernels.yaml     # Metal to gen/
//	kernelgen build -d cuda -d hip kernels.yaml      # Two dialects
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/kernelgen"
)

const version = "0.1.0-dev"

func main() {
	app := &cli.App{
		Name:    "kernelgen",
		Usage:   "generate GPU C++ kernels from a YAML manifest",
		Version: version,
		Commands: []*cli.Command{
			buildCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "kernelgen: %v\n", err)
		os.Exit(1)
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "compile every kernel in a manifest",
		ArgsUsage: "<manifest.yaml>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "dialect",
				Aliases: []string{"d"},
				Usage:   "target dialect: cuda, hip, metal, or all (repeatable)",
				Value:   cli.NewStringSlice("cuda"),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output directory",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "restrict",
				Usage: "mark buffers non-aliasing",
				Value: true,
			},
			&cli.BoolFlag{
				Name:  "validate",
				Usage: "validate IR before generation",
				Value: true,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose logging",
			},
		},
		Action: runBuild,
	}
}

func parseDialect(name string) (kernelgen.Dialect, error) {
	switch name {
	case "cuda":
		return kernelgen.CUDA, nil
	case "hip":
		return kernelgen.HIP, nil
	case "metal":
		return kernelgen.Metal, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q (want cuda, hip, metal, or all)", name)
	}
}

// sourceExt is the conventional file extension per dialect.
func sourceExt(d kernelgen.Dialect) string {
	switch d {
	case kernelgen.HIP:
		return ".hip.cpp"
	case kernelgen.Metal:
		return ".metal"
	default:
		return ".cu"
	}
}

// buildMetadata is the sidecar file written next to each generated source.
type buildMetadata struct {
	EntryPoint         string `yaml:"entry_point"`
	Dialect            string `yaml:"dialect"`
	SharedMemoryBytes  uint32 `yaml:"shared_memory_bytes"`
	MaxThreadsPerBlock uint32 `yaml:"max_threads_per_block,omitempty"`
}

func runBuild(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one manifest path")
	}

	logger, err := newLogger(c.Bool("verbose"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	dialects := make([]kernelgen.Dialect, 0, len(c.StringSlice("dialect")))
	for _, name := range c.StringSlice("dialect") {
		if name == "all" {
			dialects = append(dialects, kernelgen.CUDA, kernelgen.HIP, kernelgen.Metal)
			continue
		}
		d, err := parseDialect(name)
		if err != nil {
			return err
		}
		dialects = append(dialects, d)
	}

	manifest, err := LoadManifest(c.Args().First())
	if err != nil {
		return err
	}

	outDir := c.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	for _, spec := range manifest.Kernels {
		kernel, err := BuildKernel(spec)
		if err != nil {
			return err
		}

		for _, d := range dialects {
			opts := kernelgen.CompileOptions{
				Dialect:          d,
				RestrictPointers: c.Bool("restrict"),
				Validate:         c.Bool("validate"),
			}
			src, info, err := kernelgen.Compile(kernel, opts)
			if err != nil {
				return fmt.Errorf("kernel %s (%s): %w", spec.Name, d, err)
			}

			srcPath := filepath.Join(outDir, spec.Name+sourceExt(d))
			if err := os.WriteFile(srcPath, []byte(src), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", srcPath, err)
			}
			if err := writeMetadata(srcPath+".yaml", d, info); err != nil {
				return err
			}

			logger.Info("generated kernel",
				zap.String("kernel", spec.Name),
				zap.String("dialect", d.String()),
				zap.String("entry", info.EntryPoint),
				zap.String("path", srcPath),
			)
		}
	}
	return nil
}

func writeMetadata(path string, d kernelgen.Dialect, info kernelgen.Info) error {
	meta := buildMetadata{
		EntryPoint:         info.EntryPoint,
		Dialect:            d.String(),
		SharedMemoryBytes:  info.SharedMemoryBytes,
		MaxThreadsPerBlock: info.MaxThreadsPerBlock,
	}
	data, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}
