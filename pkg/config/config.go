// Package config loads the colour palette and document filters from a config
// file or from the editor's settings.
package config

import (
	"bytes"
	"encoding/json"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"
	"github.com/walteh/versiontags/pkg/highlight"
	"github.com/walteh/versiontags/pkg/message"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// SettingsSection is the key the editor nests our settings under.
const SettingsSection = "versionTags"

type Config struct {
	// Palette is cycled across nesting levels.
	Palette highlight.Palette `json:"colorPairs" yaml:"colorPairs" toml:"colorPairs"`
	// Files restricts the documents that take part, as doublestar patterns.
	// Empty means every document.
	Files []string `json:"files,omitempty" yaml:"files,omitempty" toml:"files,omitempty"`
	// Mode is the presentation used when a client does not pick one.
	Mode string `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
}

// hclConfig is the HCL shape of Config:
//
//	color_pair {
//	  background_color = "red"
//	  color            = "white"
//	}
//	files = ["content/**/*.md"]
type hclConfig struct {
	ColorPairs []highlight.Style `hcl:"color_pair,block"`
	Files      []string          `hcl:"files,optional"`
	Mode       string            `hcl:"mode,optional"`
}

func Default() *Config {
	return &Config{
		Palette: highlight.DefaultPalette(),
		Mode:    message.ModeToast.String(),
	}
}

// Load reads a config file. The format follows the extension: .yaml/.yml,
// .hcl, .toml or .json.
func Load(fs afero.Fs, filename string) (*Config, error) {
	data, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(filename, data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", filename, err)
	}

	return cfg, nil
}

// Parse decodes data in the format given by the extension of filename.
func Parse(filename string, data []byte) (*Config, error) {
	cfg := Default()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil {
			return nil, errors.Errorf("parsing YAML: %w", err)
		}

	case ".toml":
		md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
		if err != nil {
			return nil, errors.Errorf("parsing TOML: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, errors.Errorf("parsing TOML: unknown key %q", undecoded[0].String())
		}

	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, errors.Errorf("parsing JSON: %w", err)
		}

	case ".hcl":
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCL(data, filename)
		if diags.HasErrors() {
			return nil, errors.Errorf("parsing HCL: %s", diags.Error())
		}

		evalCtx := &hcl.EvalContext{
			Variables: map[string]cty.Value{
				"toast": cty.StringVal(message.ModeToast.String()),
				"modal": cty.StringVal(message.ModeModal.String()),
			},
		}

		var raw hclConfig
		if diags := gohcl.DecodeBody(file.Body, evalCtx, &raw); diags.HasErrors() {
			return nil, errors.Errorf("decoding HCL: %s", diags.Error())
		}

		if len(raw.ColorPairs) > 0 {
			cfg.Palette = raw.ColorPairs
		}
		cfg.Files = raw.Files
		if raw.Mode != "" {
			cfg.Mode = raw.Mode
		}

	default:
		return nil, errors.Errorf("unsupported config format %q", filepath.Ext(filename))
	}

	return cfg, nil
}

// Validate reports every problem at once. An empty palette is valid, it
// turns highlighting off.
func (me *Config) Validate() error {
	var err error

	for i, style := range me.Palette {
		if style.IsZero() {
			err = multierr.Append(err, errors.Errorf("colorPairs[%d]: no colours set", i))
		}
	}

	for _, pattern := range me.Files {
		if !doublestar.ValidatePattern(pattern) {
			err = multierr.Append(err, errors.Errorf("files: invalid pattern %q", pattern))
		}
	}

	if _, ok := message.ParseMode(me.Mode); !ok {
		err = multierr.Append(err, errors.Errorf("mode: unknown mode %q", me.Mode))
	}

	return err
}

// PresentationMode is the parsed Mode, toast when unset.
func (me *Config) PresentationMode() message.Mode {
	m, _ := message.ParseMode(me.Mode)
	return m
}

// Matches reports whether a document path takes part. Patterns are tried on
// the slash-separated path and on its base name.
func (me *Config) Matches(filename string) bool {
	if len(me.Files) == 0 {
		return true
	}

	p := strings.TrimPrefix(filepath.ToSlash(filename), "/")
	base := path.Base(p)

	for _, pattern := range me.Files {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// FromSettings builds a config from an editor settings payload, either
// {"versionTags": {...}} or the inner object itself. Missing keys keep their
// defaults.
func FromSettings(raw any) (*Config, error) {
	cfg := Default()
	if raw == nil {
		return cfg, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Errorf("encoding settings: %w", err)
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, errors.Errorf("decoding settings: %w", err)
	}

	if inner, ok := wrapped[SettingsSection]; ok {
		data = inner
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.Errorf("decoding %s settings: %w", SettingsSection, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating settings: %w", err)
	}

	return cfg, nil
}
