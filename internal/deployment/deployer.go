package deployment

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"corral/internal/fileio"
	"corral/internal/packaging"
	"corral/internal/settings"
)

// Function tags recording the digests behind the deployed artifacts.
const (
	functionDigestTag    = "corral:function-digest"
	layerDigestTagPrefix = "corral:layer-digest:"
)

// Deployer drives one package deployment: plan local archives, reconcile
// against remote state, upload only what is stale, and record the new state.
type Deployer struct {
	Log         zerolog.Logger
	PackageName string
	Package     settings.Package
	Functions   FunctionAPI
	Params      ParameterStore
	Bucket      BucketStore // nil disables staged uploads
	Planner     packaging.Planner
}

// PlanResult reports what a deployment would upload, without mutating
// anything.
type PlanResult struct {
	Local         *packaging.PackageArchiveMetadata
	State         DeploymentState
	FunctionStale bool
	StaleLayers   []string
}

// Plan computes the local archive metadata and compares it against remote
// state. It performs no uploads and writes nothing back.
func (d *Deployer) Plan(ctx context.Context, installPath string) (*PlanResult, error) {
	local, err := d.Planner.Plan(d.Package, installPath)
	if err != nil {
		return nil, err
	}
	state, err := d.reconciler().GetState(ctx, d.PackageName, d.Package.Function)
	if err != nil {
		return nil, err
	}
	return &PlanResult{
		Local:         local,
		State:         state,
		FunctionStale: state.Metadata.IsFunctionStale(local),
		StaleLayers:   state.Metadata.StaleLayerNames(local),
	}, nil
}

// Update deploys the package from installPath: stale layers are published,
// the function configuration is aligned with the desired runtime and layer
// list, stale function code is uploaded, and the new deployment state is
// written back to the parameter store and the function tags.
func (d *Deployer) Update(ctx context.Context, installPath string) error {
	plan, err := d.Plan(ctx, installPath)
	if err != nil {
		return err
	}
	if d.Package.Function != nil && plan.State.Function == nil {
		return fmt.Errorf("function %q does not exist in %s; corral does not create functions", d.Package.Function.Name, d.Package.RegionName)
	}

	layerARNs, err := d.reconcileLayers(ctx, plan)
	if err != nil {
		return err
	}

	if d.Package.Function != nil {
		if err := d.reconcileFunctionConfig(ctx, plan.State.Function, layerARNs); err != nil {
			return err
		}
		if plan.FunctionStale {
			if err := d.uploadFunction(ctx, plan.Local.Function); err != nil {
				return err
			}
		} else {
			d.Log.Info().Str("function", d.Package.Function.Name).Msg("skipping function upload")
		}
	}

	if err := d.writeState(ctx, plan.Local); err != nil {
		return err
	}
	if d.Package.Function != nil {
		if err := d.tagFunction(ctx, plan.State.Function.FunctionARN, plan.Local); err != nil {
			return err
		}
	}
	return nil
}

func (d *Deployer) reconciler() Reconciler {
	return Reconciler{Functions: d.Functions, Params: d.Params}
}

// reconcileLayers publishes stale layers in declaration order and returns
// the desired layer ARN list for the function configuration: fresh ARNs for
// republished layers, attached ARNs for up-to-date ones, and reference ARNs
// verbatim.
func (d *Deployer) reconcileLayers(ctx context.Context, plan *PlanResult) ([]string, error) {
	stale := make(map[string]bool, len(plan.StaleLayers))
	for _, name := range plan.StaleLayers {
		stale[name] = true
	}
	local := make(map[string]packaging.LayerArchiveMetadata, len(plan.Local.Layers))
	for _, layer := range plan.Local.Layers {
		local[layer.Layer.Name] = layer
	}

	var arns []string
	for _, entry := range d.Package.Layers {
		if entry.Reference != nil {
			arns = append(arns, entry.Reference.ARN)
			continue
		}
		layer := entry.Layer
		metadata := local[layer.Name]
		if len(metadata.Archive.FileMappings) == 0 {
			d.Log.Info().Str("layer", layer.Name).Msg("layer has no content; skipping")
			continue
		}
		if !stale[layer.Name] {
			if d.Package.Function == nil {
				d.Log.Info().Str("layer", layer.Name).Msg("skipping layer upload")
				continue
			}
			if arn, ok := attachedLayerARN(plan.State.Function, layer.Name); ok {
				d.Log.Info().Str("layer", layer.Name).Msg("skipping layer upload")
				arns = append(arns, arn)
				continue
			}
			// The recorded digest matches but no version of this layer is
			// attached anymore; republish to recover the ARN.
			d.Log.Warn().Str("layer", layer.Name).Msg("layer version no longer attached; forcing re-upload")
		}
		version, err := d.publishLayer(ctx, layer, metadata)
		if err != nil {
			return nil, err
		}
		arns = append(arns, version.ARN)
	}
	return arns, nil
}

func (d *Deployer) publishLayer(ctx context.Context, layer *settings.PackageLayer, metadata packaging.LayerArchiveMetadata) (*LayerVersion, error) {
	content, cleanup, err := d.stageArchive(ctx, layer.Name, metadata.Archive.FileMappings)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	version, err := d.Functions.PublishLayerVersion(ctx, PublishLayerInput{
		LayerName:          layer.Name,
		Description:        fmt.Sprintf("Layer for %s; digest: %s", d.PackageName, metadata.Archive.Digest),
		CompatibleRuntimes: layer.CompatibleRuntimes,
		Content:            content,
	})
	if err != nil {
		return nil, fmt.Errorf("publish layer %q: %w", layer.Name, err)
	}
	d.Log.Info().
		Str("layer", layer.Name).
		Str("size", fileio.FormatFileSize(float64(version.CodeSize))).
		Str("arn", version.ARN).
		Msg("published layer")
	return version, nil
}

func (d *Deployer) reconcileFunctionConfig(ctx context.Context, remote *FunctionDescriptor, desiredARNs []string) error {
	function := d.Package.Function
	if remote.Runtime == function.CompatibleRuntime && equalStrings(remote.LayerARNs, desiredARNs) {
		return nil
	}
	if err := d.Functions.UpdateFunctionConfiguration(ctx, function.Name, function.CompatibleRuntime, desiredARNs); err != nil {
		return fmt.Errorf("update function configuration for %q: %w", function.Name, err)
	}
	d.Log.Info().
		Str("function", function.Name).
		Str("runtime", function.CompatibleRuntime).
		Strs("layers", desiredARNs).
		Msg("updated function runtime and layers")
	return nil
}

func (d *Deployer) uploadFunction(ctx context.Context, metadata *packaging.FunctionArchiveMetadata) error {
	content, cleanup, err := d.stageArchive(ctx, metadata.Function.Name, metadata.Archive.FileMappings)
	if err != nil {
		return err
	}
	defer cleanup()

	descriptor, err := d.Functions.UpdateFunctionCode(ctx, UpdateFunctionCodeInput{
		FunctionName: metadata.Function.Name,
		Content:      content,
		Publish:      d.Package.Publish,
	})
	if err != nil {
		return fmt.Errorf("update function code for %q: %w", metadata.Function.Name, err)
	}
	d.Log.Info().
		Str("function", metadata.Function.Name).
		Str("size", fileio.FormatFileSize(float64(descriptor.CodeSize))).
		Str("arn", descriptor.FunctionARN).
		Msg("updated function code")
	return nil
}

// stageArchive writes the mappings to a temporary zip and, when an upload
// bucket is configured, stages it in object storage, falling back to direct
// upload bytes if staging fails. The returned cleanup removes the temporary
// file and any staged object.
func (d *Deployer) stageArchive(ctx context.Context, name string, mappings []fileio.ArchiveFileMapping) (ArchiveContent, func(), error) {
	archive, err := os.CreateTemp("", "corral-"+name+"-*.zip")
	if err != nil {
		return ArchiveContent{}, nil, fmt.Errorf("create archive file: %w", err)
	}
	archivePath := archive.Name()
	archive.Close()
	removeArchive := func() { os.Remove(archivePath) }

	if err := fileio.WriteArchive(archivePath, mappings); err != nil {
		removeArchive()
		return ArchiveContent{}, nil, err
	}
	info, err := os.Stat(archivePath)
	if err != nil {
		removeArchive()
		return ArchiveContent{}, nil, fmt.Errorf("stat archive %q: %w", archivePath, err)
	}

	if d.Bucket != nil && d.Package.UploadBucket != nil {
		object, err := d.uploadToBucket(ctx, name, archivePath, info.Size())
		if err == nil {
			cleanup := func() {
				if err := d.Bucket.Delete(ctx, *object); err != nil {
					d.Log.Warn().Err(err).Str("key", object.Key).Msg("delete staged archive")
				}
				removeArchive()
			}
			return ArchiveContent{
				S3Bucket:        object.Bucket,
				S3Key:           object.Key,
				S3ObjectVersion: object.VersionID,
			}, cleanup, nil
		}
		d.Log.Error().Err(err).Msg("failed to stage archive in bucket; falling back to direct upload")
	}

	data, err := os.ReadFile(archivePath)
	if err != nil {
		removeArchive()
		return ArchiveContent{}, nil, fmt.Errorf("read archive %q: %w", archivePath, err)
	}
	return ArchiveContent{ZipFile: data}, removeArchive, nil
}

func (d *Deployer) uploadToBucket(ctx context.Context, name, archivePath string, size int64) (*BucketObject, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", archivePath, err)
	}
	defer file.Close()

	key := d.Package.UploadBucket.Prefix + name + "-" + uuid.NewString() + ".zip"
	return d.Bucket.Upload(ctx, key, file, size)
}

func (d *Deployer) writeState(ctx context.Context, local *packaging.PackageArchiveMetadata) error {
	metadata := DeploymentMetadata{LayerDigests: make(map[string]string)}
	if local.Function != nil {
		digest := local.Function.Archive.Digest
		metadata.FunctionDigest = &digest
	}
	for _, layer := range local.Layers {
		if layer.Archive.Digest != "" {
			metadata.LayerDigests[layer.Layer.Name] = layer.Archive.Digest
		}
	}
	value, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode deployment state: %w", err)
	}
	if err := d.Params.PutParameter(ctx, StateParameterPrefix+"/"+d.PackageName, string(value)); err != nil {
		return fmt.Errorf("store deployment state: %w", err)
	}
	return nil
}

func (d *Deployer) tagFunction(ctx context.Context, functionARN string, local *packaging.PackageArchiveMetadata) error {
	tags := make(map[string]string)
	if digest := local.FunctionDigest(); digest != "" {
		tags[functionDigestTag] = digest
	}
	for _, layer := range local.Layers {
		if layer.Archive.Digest != "" {
			tags[layerDigestTagPrefix+layer.Layer.Name] = layer.Archive.Digest
		}
	}
	if len(tags) == 0 {
		return nil
	}
	if err := d.Functions.TagFunction(ctx, functionARN, tags); err != nil {
		return fmt.Errorf("tag function %q: %w", d.Package.Function.Name, err)
	}
	return nil
}

// attachedLayerARN finds the attached layer version ARN matching a layer
// name. Layer version ARNs have the form
// arn:aws:lambda:region:account:layer:name:version.
func attachedLayerARN(function *FunctionDescriptor, layerName string) (string, bool) {
	if function == nil {
		return "", false
	}
	for _, arn := range function.LayerARNs {
		parts := strings.Split(arn, ":")
		if len(parts) >= 8 && parts[5] == "layer" && parts[6] == layerName {
			return arn, true
		}
	}
	return "", false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
