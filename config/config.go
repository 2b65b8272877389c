// Package config loads pipeline settings and a demo scene description from
// TOML or YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"vsm-engine/vsm"
)

var ErrUnknownFormat = errors.New("config: unknown file format")

// File is the top-level structure of a settings file.
type File struct {
	Shadow Shadow    `toml:"shadow" yaml:"shadow"`
	Scene  SceneData `toml:"scene" yaml:"scene"`
}

// Shadow mirrors vsm.Settings with enums spelled as names.
type Shadow struct {
	Mode              string  `toml:"mode" yaml:"mode"`
	FollowMainCamera  bool    `toml:"follow_main_camera" yaml:"follow_main_camera"`
	Resolution        int     `toml:"resolution" yaml:"resolution"`
	Cascades          int     `toml:"cascades" yaml:"cascades"`
	FirstCascadeSize  float32 `toml:"first_cascade_size" yaml:"first_cascade_size"`
	DepthRange        float32 `toml:"depth_range" yaml:"depth_range"`
	Filter            string  `toml:"filter" yaml:"filter"`
	DitherTransparent bool    `toml:"dither_transparent" yaml:"dither_transparent"`
	Precision         string  `toml:"precision" yaml:"precision"`
	CullingMask       uint32  `toml:"culling_mask" yaml:"culling_mask"`
	MaterialTag       string  `toml:"material_tag" yaml:"material_tag"`
}

// Default returns the file every decode starts from; keys missing from a
// file keep these values.
func Default() File {
	s := vsm.DefaultSettings()
	return File{
		Shadow: Shadow{
			Mode:              s.Mode.String(),
			FollowMainCamera:  s.CameraFollowsMain,
			Resolution:        s.Resolution,
			Cascades:          s.NumCascades,
			FirstCascadeSize:  s.FirstCascadeLevelSize,
			DepthRange:        s.DepthOfShadowRange,
			Filter:            strings.ToLower(s.Filter.String()),
			DitherTransparent: s.DitherTransparent,
			Precision:         s.Precision.String(),
			CullingMask:       s.CullingMask,
			MaterialTag:       s.MaterialFilterTag,
		},
		Scene: DefaultScene(),
	}
}

type format int

const (
	formatTOML format = iota
	formatYAML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return formatTOML, nil
	case ".yaml", ".yml":
		return formatYAML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Load reads a .toml, .yaml or .yml file on top of Default and checks
// that the shadow settings convert.
func Load(path string) (File, error) {
	fmtKind, err := formatOf(path)
	if err != nil {
		return File{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read config file: %w", err)
	}
	f, err := decode(data, fmtKind)
	if err != nil {
		return File{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
	}
	if _, err := f.Settings(); err != nil {
		return File{}, fmt.Errorf("config file %q: %w", path, err)
	}
	return f, nil
}

// decode starts from Default. Lights and objects are lists, so they are
// only defaulted when the file leaves them out: no lights means the
// default sun, no objects and no glTF means the default blocks.
func decode(data []byte, kind format) (File, error) {
	f := Default()
	f.Scene.Lights, f.Scene.Objects = nil, nil
	switch kind {
	case formatTOML:
		if err := toml.Unmarshal(data, &f); err != nil {
			return File{}, err
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &f); err != nil {
			return File{}, err
		}
	}
	demo := DefaultScene()
	if f.Scene.Lights == nil {
		f.Scene.Lights = demo.Lights
	}
	if f.Scene.Objects == nil && f.Scene.GLTF == "" {
		f.Scene.Objects = demo.Objects
	}
	return f, nil
}

// Save writes f in the format implied by the extension of path.
func Save(path string, f File) error {
	kind, err := formatOf(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	switch kind {
	case formatTOML:
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		err = enc.Encode(f)
	case formatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(f); err == nil {
			err = enc.Close()
		}
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// Settings converts the shadow section, wrapping any problem in
// vsm.ErrConfigInvalid.
func (f File) Settings() (vsm.Settings, error) {
	s := vsm.DefaultSettings()
	var err error
	if s.Mode, err = vsm.ParseComputationMode(f.Shadow.Mode); err != nil {
		return vsm.Settings{}, fmt.Errorf("%w: shadow.mode: %w", vsm.ErrConfigInvalid, err)
	}
	if s.Filter, err = vsm.ParseFilterMode(f.Shadow.Filter); err != nil {
		return vsm.Settings{}, fmt.Errorf("%w: shadow.filter: %w", vsm.ErrConfigInvalid, err)
	}
	if s.Precision, err = vsm.ParsePrecisionMode(f.Shadow.Precision); err != nil {
		return vsm.Settings{}, fmt.Errorf("%w: shadow.precision: %w", vsm.ErrConfigInvalid, err)
	}
	s.CameraFollowsMain = f.Shadow.FollowMainCamera
	s.Resolution = f.Shadow.Resolution
	s.NumCascades = f.Shadow.Cascades
	s.FirstCascadeLevelSize = f.Shadow.FirstCascadeSize
	s.DepthOfShadowRange = f.Shadow.DepthRange
	s.DitherTransparent = f.Shadow.DitherTransparent
	s.CullingMask = f.Shadow.CullingMask
	s.MaterialFilterTag = f.Shadow.MaterialTag
	if err := s.Validate(); err != nil {
		return vsm.Settings{}, err
	}
	return s, nil
}
