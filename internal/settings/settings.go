package settings

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Per-runtime excludes applied when a function declares none of its own.
// Bytecode caches are regenerated at import time and only destabilize
// digests.
var defaultExcludesByRuntime = []struct {
	runtime  *regexp.Regexp
	excludes []string
}{
	{regexp.MustCompile(`^python\d+\.\d+$`), []string{`.*__pycache__.*`}},
}

// Load reads, normalizes, and validates a settings document. Every package
// in the returned settings has passed Validate.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse settings file %q: %w", path, err)
	}
	if len(settings.Packages) == 0 {
		return nil, fmt.Errorf("settings file %q defines no packages", path)
	}
	for name, pkg := range settings.Packages {
		pkg.Normalize()
		if err := pkg.Validate(); err != nil {
			return nil, fmt.Errorf("package %q: %w", name, err)
		}
		settings.Packages[name] = pkg
	}
	return &settings, nil
}

// Package returns the named package definition.
func (s *Settings) Package(name string) (Package, error) {
	pkg, ok := s.Packages[name]
	if !ok {
		return Package{}, fmt.Errorf("package %q is not defined in settings", name)
	}
	return pkg, nil
}

// Normalize applies defaults: the implicit ignore behavior, per-runtime
// default excludes, layer runtimes inherited from the function, and the
// synthetic catch-all layer for map_to_layer packages that declare no
// layers of their own.
func (p *Package) Normalize() {
	if p.UnmappedFileBehavior == "" {
		p.UnmappedFileBehavior = UnmappedIgnore
	}

	if p.UnmappedFileBehavior == UnmappedMapToLayer && p.Function != nil && !p.hasConcreteLayer() {
		p.Layers = append(p.Layers, LayerEntry{Layer: &PackageLayer{
			Name:               p.Function.Name + "-other",
			CompatibleRuntimes: []string{p.Function.CompatibleRuntime},
		}})
	}

	for _, entry := range p.Layers {
		if entry.Layer != nil && len(entry.Layer.CompatibleRuntimes) == 0 && p.Function != nil {
			entry.Layer.CompatibleRuntimes = []string{p.Function.CompatibleRuntime}
		}
	}

	if p.Function != nil && len(p.Function.Excludes) == 0 {
		for _, defaults := range defaultExcludesByRuntime {
			if !defaults.runtime.MatchString(p.Function.CompatibleRuntime) {
				continue
			}
			for _, expr := range defaults.excludes {
				p.Function.Excludes = append(p.Function.Excludes, mustPattern(expr))
			}
		}
	}
}

// Validate checks structural invariants. It is separate from construction:
// a Package can always be built, but only a valid one reaches the planner.
func (p Package) Validate() error {
	if p.RegionName == "" {
		return errors.New("region_name is required")
	}
	if p.Function == nil && len(p.Layers) == 0 {
		return errors.New("at least one layer must be defined if no function is defined")
	}
	if !p.UnmappedFileBehavior.valid() {
		return fmt.Errorf("unknown unmapped_file_behavior %q", p.UnmappedFileBehavior)
	}
	if p.Function != nil {
		if p.Function.Name == "" {
			return errors.New("function name is required")
		}
		if p.Function.CompatibleRuntime == "" {
			return fmt.Errorf("function %q requires a compatible_runtime", p.Function.Name)
		}
	}
	for i, entry := range p.Layers {
		switch {
		case entry.Layer != nil:
			if entry.Layer.Name == "" {
				return fmt.Errorf("layer %d requires a name", i)
			}
			if len(entry.Layer.CompatibleRuntimes) == 0 {
				return fmt.Errorf("layer %q requires compatible_runtimes", entry.Layer.Name)
			}
		case entry.Reference != nil:
			if entry.Reference.ARN == "" {
				return fmt.Errorf("layer %d requires an arn", i)
			}
		default:
			return fmt.Errorf("layer %d is empty", i)
		}
	}
	if p.UploadBucket != nil {
		if p.UploadBucket.BucketName == "" {
			return errors.New("upload_bucket requires a bucket_name")
		}
		if p.UploadBucket.RegionName == "" {
			return errors.New("upload_bucket requires a region_name")
		}
	}
	return nil
}

func (p Package) hasConcreteLayer() bool {
	for _, entry := range p.Layers {
		if entry.Layer != nil {
			return true
		}
	}
	return false
}
