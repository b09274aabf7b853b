package awsclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"corral/internal/deployment"
)

// LambdaClient implements deployment.FunctionAPI against AWS Lambda.
type LambdaClient struct {
	api *lambda.Client
}

func NewLambdaClient(cfg aws.Config) *LambdaClient {
	return &LambdaClient{api: lambda.NewFromConfig(cfg)}
}

func (c *LambdaClient) GetFunction(ctx context.Context, name string) (*deployment.FunctionDescriptor, error) {
	out, err := c.api.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(name)})
	if err != nil {
		var notFound *lambdatypes.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil, deployment.ErrFunctionNotFound
		}
		return nil, fmt.Errorf("get function %q: %w", name, err)
	}
	return descriptorFromConfiguration(out.Configuration), nil
}

func (c *LambdaClient) UpdateFunctionCode(ctx context.Context, input deployment.UpdateFunctionCodeInput) (*deployment.FunctionDescriptor, error) {
	request := &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(input.FunctionName),
		Publish:      input.Publish,
	}
	if len(input.Content.ZipFile) > 0 {
		request.ZipFile = input.Content.ZipFile
	} else {
		request.S3Bucket = aws.String(input.Content.S3Bucket)
		request.S3Key = aws.String(input.Content.S3Key)
		if input.Content.S3ObjectVersion != "" {
			request.S3ObjectVersion = aws.String(input.Content.S3ObjectVersion)
		}
	}
	out, err := c.api.UpdateFunctionCode(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("update function code %q: %w", input.FunctionName, err)
	}
	descriptor := &deployment.FunctionDescriptor{
		FunctionName: aws.ToString(out.FunctionName),
		FunctionARN:  aws.ToString(out.FunctionArn),
		Runtime:      string(out.Runtime),
		RevisionID:   aws.ToString(out.RevisionId),
		CodeSHA256:   aws.ToString(out.CodeSha256),
		CodeSize:     out.CodeSize,
		Version:      aws.ToString(out.Version),
		Description:  aws.ToString(out.Description),
	}
	for _, layer := range out.Layers {
		descriptor.LayerARNs = append(descriptor.LayerARNs, aws.ToString(layer.Arn))
	}
	return descriptor, nil
}

func (c *LambdaClient) UpdateFunctionConfiguration(ctx context.Context, name, runtime string, layerARNs []string) error {
	_, err := c.api.UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName: aws.String(name),
		Runtime:      lambdatypes.Runtime(runtime),
		Layers:       layerARNs,
	})
	if err != nil {
		return fmt.Errorf("update function configuration %q: %w", name, err)
	}
	return nil
}

func (c *LambdaClient) PublishLayerVersion(ctx context.Context, input deployment.PublishLayerInput) (*deployment.LayerVersion, error) {
	content := &lambdatypes.LayerVersionContentInput{}
	if len(input.Content.ZipFile) > 0 {
		content.ZipFile = input.Content.ZipFile
	} else {
		content.S3Bucket = aws.String(input.Content.S3Bucket)
		content.S3Key = aws.String(input.Content.S3Key)
		if input.Content.S3ObjectVersion != "" {
			content.S3ObjectVersion = aws.String(input.Content.S3ObjectVersion)
		}
	}
	runtimes := make([]lambdatypes.Runtime, 0, len(input.CompatibleRuntimes))
	for _, runtime := range input.CompatibleRuntimes {
		runtimes = append(runtimes, lambdatypes.Runtime(runtime))
	}
	out, err := c.api.PublishLayerVersion(ctx, &lambda.PublishLayerVersionInput{
		LayerName:          aws.String(input.LayerName),
		Description:        aws.String(input.Description),
		CompatibleRuntimes: runtimes,
		Content:            content,
	})
	if err != nil {
		return nil, fmt.Errorf("publish layer version %q: %w", input.LayerName, err)
	}
	version := &deployment.LayerVersion{ARN: aws.ToString(out.LayerVersionArn)}
	if out.Content != nil {
		version.CodeSize = out.Content.CodeSize
	}
	return version, nil
}

func (c *LambdaClient) TagFunction(ctx context.Context, functionARN string, tags map[string]string) error {
	_, err := c.api.TagResource(ctx, &lambda.TagResourceInput{
		Resource: aws.String(functionARN),
		Tags:     tags,
	})
	if err != nil {
		return fmt.Errorf("tag resource %q: %w", functionARN, err)
	}
	return nil
}

func descriptorFromConfiguration(cfg *lambdatypes.FunctionConfiguration) *deployment.FunctionDescriptor {
	if cfg == nil {
		return nil
	}
	descriptor := &deployment.FunctionDescriptor{
		FunctionName: aws.ToString(cfg.FunctionName),
		FunctionARN:  aws.ToString(cfg.FunctionArn),
		Runtime:      string(cfg.Runtime),
		RevisionID:   aws.ToString(cfg.RevisionId),
		CodeSHA256:   aws.ToString(cfg.CodeSha256),
		CodeSize:     cfg.CodeSize,
		Version:      aws.ToString(cfg.Version),
		Description:  aws.ToString(cfg.Description),
	}
	for _, layer := range cfg.Layers {
		descriptor.LayerARNs = append(descriptor.LayerARNs, aws.ToString(layer.Arn))
	}
	return descriptor
}
