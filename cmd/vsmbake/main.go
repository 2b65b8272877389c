// Command vsmbake computes a cascaded variance shadow atlas on the CPU and
// writes each cascade band as a greyscale PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"vsm-engine/config"
	"vsm-engine/internal/softgpu"
	"vsm-engine/internal/softraster"
	"vsm-engine/scene"
	"vsm-engine/vsm"
)

type options struct {
	configPath string
	gltfPath   string
	outDir     string
	stepwise   bool
}

func main() {
	var opts options
	var verbose bool
	var dumpPath string
	flag.StringVar(&opts.configPath, "config", "", "settings file (.toml, .yaml); defaults when empty")
	flag.StringVar(&opts.gltfPath, "gltf", "", "glTF casters to add to the scene")
	flag.StringVar(&opts.outDir, "out", "vsm-out", "output directory")
	flag.BoolVar(&opts.stepwise, "step", false, "compute one cascade per step instead of a full run")
	flag.BoolVar(&verbose, "v", false, "debug logging")
	flag.StringVar(&dumpPath, "dump-config", "", "write the default settings file to this path and exit")
	flag.Parse()

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	vsm.SetLogger(logger)
	config.SetLogger(logger)
	scene.SetLogger(logger)

	if dumpPath != "" {
		if err := config.Save(dumpPath, config.Default()); err != nil {
			logger.Error("failed to write config", "err", err)
			os.Exit(1)
		}
		return
	}

	written, err := bake(opts)
	if err != nil {
		logger.Error("bake failed", "err", err)
		os.Exit(1)
	}
	for _, path := range written {
		fmt.Println(path)
	}
}

// bake runs the pipeline once over the configured scene and returns the
// files it wrote.
func bake(opts options) ([]string, error) {
	file := config.Default()
	baseDir := "."
	if opts.configPath != "" {
		var err error
		if file, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
		baseDir = filepath.Dir(opts.configPath)
	}
	if opts.gltfPath != "" {
		file.Scene.GLTF, _ = filepath.Abs(opts.gltfPath)
	}

	settings, err := file.Settings()
	if err != nil {
		return nil, err
	}
	settings.Mode = vsm.ModeManual

	s, _, err := file.Scene.Build(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to build scene: %w", err)
	}

	dev := softgpu.New()
	p := vsm.New(dev, softraster.New(s), s, vsm.WithSettings(settings), vsm.WithScope(vsm.NewScope()))
	defer p.Destroy()

	if opts.stepwise {
		for done := false; !done; {
			if done, err = p.Step(); err != nil {
				return nil, err
			}
		}
	} else if err := p.RunFull(); err != nil {
		return nil, err
	}
	if !p.Published() {
		return nil, errors.New("pipeline finished without publishing an atlas")
	}

	if err := os.MkdirAll(opts.outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	atlas := p.FrontAtlas()
	mean, ok := atlas.Mean().(*softgpu.Texture)
	if !ok {
		return nil, fmt.Errorf("unexpected atlas texture %T", atlas.Mean())
	}

	var written []string
	band := settings.Resolution
	for level := 0; level < settings.NumCascades; level++ {
		path := filepath.Join(opts.outDir, fmt.Sprintf("cascade_%d.png", level))
		if err := writeBandPNG(path, mean, level*band, (level+1)*band); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	path := filepath.Join(opts.outDir, "atlas.png")
	if err := writeBandPNG(path, mean, 0, mean.Height()); err != nil {
		return written, err
	}
	return append(written, path), nil
}
