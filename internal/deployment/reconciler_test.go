package deployment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"corral/internal/settings"
)

func TestGetStateFirstDeployment(t *testing.T) {
	reconciler := Reconciler{
		Functions: &fakeFunctions{},
		Params:    &fakeParams{},
	}
	state, err := reconciler.GetState(context.Background(), "api", &settings.PackageFunction{Name: "app"})
	require.NoError(t, err)
	require.Nil(t, state.Metadata)
	require.Nil(t, state.Function)
}

func TestGetStateExisting(t *testing.T) {
	functions := &fakeFunctions{function: &FunctionDescriptor{FunctionName: "app", Runtime: "python3.12"}}
	params := &fakeParams{values: map[string]string{
		"/corral/api": `{"function_digest":"abc","layer_digests":{"deps":"def"}}`,
	}}
	reconciler := Reconciler{Functions: functions, Params: params}

	state, err := reconciler.GetState(context.Background(), "api", &settings.PackageFunction{Name: "app"})
	require.NoError(t, err)
	require.NotNil(t, state.Metadata)
	require.Equal(t, "abc", *state.Metadata.FunctionDigest)
	require.Equal(t, map[string]string{"deps": "def"}, state.Metadata.LayerDigests)
	require.Equal(t, "app", state.Function.FunctionName)
}

func TestGetStateSkipsFunctionLookupWithoutFunction(t *testing.T) {
	functions := &fakeFunctions{getErr: errors.New("should not be called")}
	reconciler := Reconciler{Functions: functions, Params: &fakeParams{}}

	state, err := reconciler.GetState(context.Background(), "api", nil)
	require.NoError(t, err)
	require.Nil(t, state.Function)
}

func TestGetStateParameterTransportError(t *testing.T) {
	reconciler := Reconciler{
		Functions: &fakeFunctions{},
		Params:    &fakeParams{getErr: errors.New("throttled")},
	}
	_, err := reconciler.GetState(context.Background(), "api", nil)
	var retrieval *StateRetrievalError
	require.ErrorAs(t, err, &retrieval)
	require.ErrorContains(t, err, "throttled")
}

func TestGetStateMalformedStoredState(t *testing.T) {
	params := &fakeParams{values: map[string]string{"/corral/api": "not json"}}
	reconciler := Reconciler{Functions: &fakeFunctions{}, Params: params}

	_, err := reconciler.GetState(context.Background(), "api", nil)
	var retrieval *StateRetrievalError
	require.ErrorAs(t, err, &retrieval)
	require.Equal(t, "parse stored state", retrieval.Op)
}

func TestGetStateFunctionTransportError(t *testing.T) {
	functions := &fakeFunctions{getErr: errors.New("access denied")}
	reconciler := Reconciler{Functions: functions, Params: &fakeParams{}}

	_, err := reconciler.GetState(context.Background(), "api", &settings.PackageFunction{Name: "app"})
	var retrieval *StateRetrievalError
	require.ErrorAs(t, err, &retrieval)
	require.ErrorContains(t, err, "access denied")
}
