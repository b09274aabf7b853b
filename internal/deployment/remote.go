package deployment

import (
	"context"
	"io"
)

// ArchiveContent locates archive bytes for the deployment target: either an
// object staged in a bucket or the raw zip bytes for direct upload.
type ArchiveContent struct {
	S3Bucket        string
	S3Key           string
	S3ObjectVersion string
	ZipFile         []byte
}

// UpdateFunctionCodeInput carries a function code upload.
type UpdateFunctionCodeInput struct {
	FunctionName string
	Content      ArchiveContent
	Publish      bool
}

// PublishLayerInput carries a new layer version.
type PublishLayerInput struct {
	LayerName          string
	Description        string
	CompatibleRuntimes []string
	Content            ArchiveContent
}

// LayerVersion describes a published layer version.
type LayerVersion struct {
	ARN      string
	CodeSize int64
}

// BucketObject identifies an object staged for upload.
type BucketObject struct {
	Bucket    string
	Key       string
	VersionID string
}

// FunctionAPI is the deployment target's function surface. Implementations
// return ErrFunctionNotFound when the named function does not exist.
type FunctionAPI interface {
	GetFunction(ctx context.Context, name string) (*FunctionDescriptor, error)
	UpdateFunctionCode(ctx context.Context, input UpdateFunctionCodeInput) (*FunctionDescriptor, error)
	UpdateFunctionConfiguration(ctx context.Context, name, runtime string, layerARNs []string) error
	PublishLayerVersion(ctx context.Context, input PublishLayerInput) (*LayerVersion, error)
	TagFunction(ctx context.Context, functionARN string, tags map[string]string) error
}

// ParameterStore persists the deployment state record. Implementations
// return ErrParameterNotFound for parameters that do not exist.
type ParameterStore interface {
	GetParameter(ctx context.Context, name string) (string, error)
	PutParameter(ctx context.Context, name, value string) error
}

// BucketStore stages archives in object storage ahead of deployment calls.
type BucketStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) (*BucketObject, error)
	Delete(ctx context.Context, object BucketObject) error
}
