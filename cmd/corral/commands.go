package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"corral/internal/deployment"
	"corral/internal/packaging"
	"corral/internal/settings"
	"corral/pkg/awsclient"
)

func newDeployCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy <package>",
		Short: "Package and upload stale artifacts for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deployer, err := newDeployer(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			return deployer.Update(cmd.Context(), opts.installPath)
		},
	}
}

func newPlanCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <package>",
		Short: "Show which artifacts a deploy would upload, without uploading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deployer, err := newDeployer(cmd.Context(), opts, args[0])
			if err != nil {
				return err
			}
			plan, err := deployer.Plan(cmd.Context(), opts.installPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plan.State.Metadata == nil {
				fmt.Fprintln(out, "no deployment state recorded; everything is stale")
			}
			if plan.Local.Function != nil {
				fmt.Fprintf(out, "function %s: %s (%s)\n",
					plan.Local.Function.Function.Name,
					staleness(plan.FunctionStale),
					plan.Local.Function.Archive.Digest)
			}
			stale := make(map[string]bool, len(plan.StaleLayers))
			for _, name := range plan.StaleLayers {
				stale[name] = true
			}
			for _, layer := range plan.Local.Layers {
				fmt.Fprintf(out, "layer %s: %s (%s)\n",
					layer.Layer.Name,
					staleness(stale[layer.Layer.Name]),
					layer.Archive.Digest)
			}
			return nil
		},
	}
}

func newStateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state <package>",
		Short: "Print the stored deployment state for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packageName := args[0]
			pkg, err := loadPackage(opts, packageName)
			if err != nil {
				return err
			}
			cfg, err := awsclient.NewConfig(cmd.Context(), pkg.RegionName)
			if err != nil {
				return err
			}
			reconciler := deployment.Reconciler{
				Functions: awsclient.NewLambdaClient(cfg),
				Params:    awsclient.NewParameterClient(cfg),
			}
			state, err := reconciler.GetState(cmd.Context(), packageName, pkg.Function)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if state.Metadata == nil {
				fmt.Fprintln(out, "no deployment state recorded")
			} else {
				encoded, err := json.MarshalIndent(state.Metadata, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(encoded))
			}
			if state.Function != nil {
				fmt.Fprintf(out, "function: %s runtime=%s revision=%s layers=%v\n",
					state.Function.FunctionARN,
					state.Function.Runtime,
					state.Function.RevisionID,
					state.Function.LayerARNs)
			}
			return nil
		},
	}
}

func staleness(stale bool) string {
	if stale {
		return "stale, would upload"
	}
	return "up to date"
}

func loadPackage(opts *rootOptions, packageName string) (settings.Package, error) {
	loaded, err := settings.Load(opts.settingsFile)
	if err != nil {
		return settings.Package{}, err
	}
	return loaded.Package(packageName)
}

func newDeployer(ctx context.Context, opts *rootOptions, packageName string) (*deployment.Deployer, error) {
	pkg, err := loadPackage(opts, packageName)
	if err != nil {
		return nil, err
	}
	cfg, err := awsclient.NewConfig(ctx, pkg.RegionName)
	if err != nil {
		return nil, err
	}

	log := opts.logger()
	deployer := &deployment.Deployer{
		Log:         log,
		PackageName: packageName,
		Package:     pkg,
		Functions:   awsclient.NewLambdaClient(cfg),
		Params:      awsclient.NewParameterClient(cfg),
		Planner:     packaging.Planner{Log: log},
	}
	if pkg.UploadBucket != nil {
		bucketCfg := cfg
		if pkg.UploadBucket.RegionName != pkg.RegionName {
			bucketCfg, err = awsclient.NewConfig(ctx, pkg.UploadBucket.RegionName)
			if err != nil {
				return nil, err
			}
		}
		deployer.Bucket = awsclient.NewBucketClient(bucketCfg, pkg.UploadBucket.BucketName)
	}
	return deployer, nil
}
