package deployment

import (
	"context"
	"fmt"
	"io"

	"corral/internal/packaging"
)

type configUpdate struct {
	Name      string
	Runtime   string
	LayerARNs []string
}

type fakeFunctions struct {
	function *FunctionDescriptor
	getErr   error

	published     []PublishLayerInput
	nextVersion   int
	codeUpdates   []UpdateFunctionCodeInput
	configUpdates []configUpdate
	tags          map[string]string
}

func (f *fakeFunctions) GetFunction(_ context.Context, name string) (*FunctionDescriptor, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.function == nil {
		return nil, ErrFunctionNotFound
	}
	return f.function, nil
}

func (f *fakeFunctions) UpdateFunctionCode(_ context.Context, input UpdateFunctionCodeInput) (*FunctionDescriptor, error) {
	f.codeUpdates = append(f.codeUpdates, input)
	return f.function, nil
}

func (f *fakeFunctions) UpdateFunctionConfiguration(_ context.Context, name, runtime string, layerARNs []string) error {
	f.configUpdates = append(f.configUpdates, configUpdate{Name: name, Runtime: runtime, LayerARNs: layerARNs})
	if f.function != nil {
		f.function.Runtime = runtime
		f.function.LayerARNs = layerARNs
	}
	return nil
}

func (f *fakeFunctions) PublishLayerVersion(_ context.Context, input PublishLayerInput) (*LayerVersion, error) {
	f.published = append(f.published, input)
	f.nextVersion++
	return &LayerVersion{
		ARN:      fmt.Sprintf("arn:aws:lambda:us-east-1:123456789012:layer:%s:%d", input.LayerName, f.nextVersion),
		CodeSize: 1024,
	}, nil
}

func (f *fakeFunctions) TagFunction(_ context.Context, functionARN string, tags map[string]string) error {
	if f.tags == nil {
		f.tags = make(map[string]string)
	}
	for key, value := range tags {
		f.tags[key] = value
	}
	return nil
}

type fakeParams struct {
	values map[string]string
	getErr error
}

func (f *fakeParams) GetParameter(_ context.Context, name string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	value, ok := f.values[name]
	if !ok {
		return "", ErrParameterNotFound
	}
	return value, nil
}

func (f *fakeParams) PutParameter(_ context.Context, name, value string) error {
	if f.values == nil {
		f.values = make(map[string]string)
	}
	f.values[name] = value
	return nil
}

type fakeBucket struct {
	uploadErr error
	uploaded  []string
	deleted   []BucketObject
}

func (f *fakeBucket) Upload(_ context.Context, key string, body io.Reader, size int64) (*BucketObject, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return nil, err
	}
	f.uploaded = append(f.uploaded, key)
	return &BucketObject{Bucket: "staging", Key: key, VersionID: "v1"}, nil
}

func (f *fakeBucket) Delete(_ context.Context, object BucketObject) error {
	f.deleted = append(f.deleted, object)
	return nil
}

func localMetadata(functionDigest string, layers map[string]string) *packaging.PackageArchiveMetadata {
	metadata := &packaging.PackageArchiveMetadata{}
	if functionDigest != "" {
		metadata.Function = &packaging.FunctionArchiveMetadata{}
		metadata.Function.Archive.Digest = functionDigest
	}
	for name, digest := range layers {
		layer := packaging.LayerArchiveMetadata{}
		layer.Layer.Name = name
		layer.Archive.Digest = digest
		metadata.Layers = append(metadata.Layers, layer)
	}
	return metadata
}
