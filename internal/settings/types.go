package settings

import (
	"gopkg.in/yaml.v3"
)

// Settings is the root of the corral.yml document: a mapping of package
// name to deployable package definition.
type Settings struct {
	Packages map[string]Package `yaml:"packages"`
}

// Package is one deployable unit: an optional Lambda function plus an
// ordered sequence of layers, with policy for files its patterns leave
// unclaimed.
type Package struct {
	RegionName           string               `yaml:"region_name"`
	Function             *PackageFunction     `yaml:"function"`
	Layers               []LayerEntry         `yaml:"layers"`
	UnmappedFileBehavior UnmappedFileBehavior `yaml:"unmapped_file_behavior"`
	UploadBucket         *S3BucketPath        `yaml:"upload_bucket"`
	Publish              bool                 `yaml:"publish"`
}

// PackageFunction describes the function archive: which installed files it
// claims and which standalone extra paths are merged in unconditionally.
type PackageFunction struct {
	Name              string    `yaml:"name"`
	CompatibleRuntime string    `yaml:"compatible_runtime"`
	Includes          []Pattern `yaml:"includes"`
	Excludes          []Pattern `yaml:"excludes"`
	ExtraPaths        []string  `yaml:"extra_paths"`
}

// PackageLayer describes one locally built layer archive.
type PackageLayer struct {
	Name               string    `yaml:"name"`
	CompatibleRuntimes []string  `yaml:"compatible_runtimes"`
	Includes           []Pattern `yaml:"includes"`
	Excludes           []Pattern `yaml:"excludes"`
}

// LayerReference names an externally managed layer version by ARN. It
// carries no local content and is excluded from digesting and upload.
type LayerReference struct {
	ARN string `yaml:"arn"`
}

// LayerEntry is the tagged variant of the two layer shapes: exactly one of
// Layer and Reference is set. A YAML mapping with an "arn" key decodes as a
// reference, anything else as a concrete layer.
type LayerEntry struct {
	Layer     *PackageLayer
	Reference *LayerReference
}

func (e *LayerEntry) UnmarshalYAML(node *yaml.Node) error {
	var probe struct {
		ARN string `yaml:"arn"`
	}
	if err := node.Decode(&probe); err != nil {
		return err
	}
	if probe.ARN != "" {
		e.Reference = &LayerReference{ARN: probe.ARN}
		return nil
	}
	var layer PackageLayer
	if err := node.Decode(&layer); err != nil {
		return err
	}
	e.Layer = &layer
	return nil
}

// S3BucketPath locates a bucket prefix used to stage archives during upload.
type S3BucketPath struct {
	RegionName string `yaml:"region_name"`
	BucketName string `yaml:"bucket_name"`
	Prefix     string `yaml:"prefix"`
}

// UnmappedFileBehavior selects what happens to installed files the function
// patterns leave unclaimed.
type UnmappedFileBehavior string

const (
	UnmappedIgnore        UnmappedFileBehavior = "ignore"
	UnmappedError         UnmappedFileBehavior = "error"
	UnmappedMapToFunction UnmappedFileBehavior = "map_to_function"
	UnmappedMapToLayer    UnmappedFileBehavior = "map_to_layer"
)

func (b UnmappedFileBehavior) valid() bool {
	switch b {
	case UnmappedIgnore, UnmappedError, UnmappedMapToFunction, UnmappedMapToLayer:
		return true
	}
	return false
}
