package deployment

import (
	"errors"
	"fmt"

	"corral/internal/packaging"
)

// StateParameterPrefix namespaces the per-package deployment state
// parameters in the remote parameter store.
const StateParameterPrefix = "/corral"

// Sentinel errors the remote adapters translate provider-specific "does not
// exist" responses into. Absence is a valid state, not a failure.
var (
	ErrFunctionNotFound  = errors.New("function not found")
	ErrParameterNotFound = errors.New("parameter not found")
)

// StateRetrievalError reports a failure to fetch or decode remote deployment
// state, as distinct from the state simply not existing yet.
type StateRetrievalError struct {
	Op  string
	Err error
}

func (e *StateRetrievalError) Error() string {
	return fmt.Sprintf("retrieve deployment state: %s: %v", e.Op, e.Err)
}

func (e *StateRetrievalError) Unwrap() error { return e.Err }

// DeploymentMetadata is the last-known-deployed truth: the digests recorded
// after the previous successful upload. It is stored remotely as a JSON
// parameter and never mutated locally; a fresh value is written back after a
// successful deployment.
type DeploymentMetadata struct {
	FunctionDigest *string           `json:"function_digest"`
	LayerDigests   map[string]string `json:"layer_digests"`
}

// IsFunctionStale reports whether the function archive needs re-upload:
// the recorded digest is absent or differs from the freshly computed local
// digest. A nil receiver (no prior deployment) makes everything stale.
func (m *DeploymentMetadata) IsFunctionStale(local *packaging.PackageArchiveMetadata) bool {
	if local.Function == nil {
		return false
	}
	if m == nil || m.FunctionDigest == nil {
		return true
	}
	return *m.FunctionDigest != local.Function.Archive.Digest
}

// StaleLayerNames returns the local layers whose recorded digest is absent
// or differs from the local digest. Layers recorded remotely but no longer
// defined locally are not reported; pruning them is the orchestrator's call.
func (m *DeploymentMetadata) StaleLayerNames(local *packaging.PackageArchiveMetadata) []string {
	var stale []string
	for _, layer := range local.Layers {
		name := layer.Layer.Name
		if m == nil {
			stale = append(stale, name)
			continue
		}
		if recorded, ok := m.LayerDigests[name]; !ok || recorded != layer.Archive.Digest {
			stale = append(stale, name)
		}
	}
	return stale
}

// FunctionDescriptor is the live remote function resource, fetched directly
// from the deployment target. It can drift independently of the recorded
// metadata (manual console edits), so the two are reconciled separately.
type FunctionDescriptor struct {
	FunctionName string
	FunctionARN  string
	Runtime      string
	LayerARNs    []string
	RevisionID   string
	CodeSHA256   string
	CodeSize     int64
	Version      string
	Description  string
}

// DeploymentState combines the stored metadata record with the live function
// descriptor. Either half may be nil: no prior deployment, or no remote
// function resource.
type DeploymentState struct {
	Metadata *DeploymentMetadata
	Function *FunctionDescriptor
}
