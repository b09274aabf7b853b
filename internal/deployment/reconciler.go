package deployment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"corral/internal/settings"
)

// Reconciler fetches remote deployment state: the stored digest record and
// the live function descriptor, which can drift independently.
type Reconciler struct {
	Functions FunctionAPI
	Params    ParameterStore
}

// GetState retrieves the deployment state for a package. Missing state and a
// missing remote function are valid (first deployment); transport failures
// and malformed stored state surface as StateRetrievalError.
func (r Reconciler) GetState(ctx context.Context, packageName string, function *settings.PackageFunction) (DeploymentState, error) {
	metadata, err := r.getMetadata(ctx, packageName)
	if err != nil {
		return DeploymentState{}, err
	}
	var descriptor *FunctionDescriptor
	if function != nil {
		descriptor, err = r.getFunction(ctx, function.Name)
		if err != nil {
			return DeploymentState{}, err
		}
	}
	return DeploymentState{Metadata: metadata, Function: descriptor}, nil
}

func (r Reconciler) getMetadata(ctx context.Context, packageName string) (*DeploymentMetadata, error) {
	value, err := r.Params.GetParameter(ctx, StateParameterPrefix+"/"+packageName)
	if errors.Is(err, ErrParameterNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StateRetrievalError{Op: "get state parameter", Err: err}
	}
	var metadata DeploymentMetadata
	if err := json.Unmarshal([]byte(value), &metadata); err != nil {
		return nil, &StateRetrievalError{Op: "parse stored state", Err: err}
	}
	return &metadata, nil
}

func (r Reconciler) getFunction(ctx context.Context, name string) (*FunctionDescriptor, error) {
	descriptor, err := r.Functions.GetFunction(ctx, name)
	if errors.Is(err, ErrFunctionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &StateRetrievalError{Op: fmt.Sprintf("retrieve function %q", name), Err: err}
	}
	return descriptor, nil
}
