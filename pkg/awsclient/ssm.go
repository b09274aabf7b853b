package awsclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"corral/internal/deployment"
)

// ParameterClient implements deployment.ParameterStore against SSM Parameter
// Store.
type ParameterClient struct {
	api *ssm.Client
}

func NewParameterClient(cfg aws.Config) *ParameterClient {
	return &ParameterClient{api: ssm.NewFromConfig(cfg)}
}

func (c *ParameterClient) GetParameter(ctx context.Context, name string) (string, error) {
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(name)})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", deployment.ErrParameterNotFound
		}
		return "", fmt.Errorf("get parameter %q: %w", name, err)
	}
	if out.Parameter == nil {
		return "", deployment.ErrParameterNotFound
	}
	return aws.ToString(out.Parameter.Value), nil
}

func (c *ParameterClient) PutParameter(ctx context.Context, name, value string) error {
	_, err := c.api.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("put parameter %q: %w", name, err)
	}
	return nil
}
