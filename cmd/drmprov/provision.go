package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/config"
	"github.com/axent-pl/drmkit/provision"
	"github.com/spf13/cobra"
)

const assetFlag = "asset"

func addProvisionFlags(root *cobra.Command, a *app) {
	pf := root.PersistentFlags()
	pf.BoolVar(&a.flags.NoWait, noWaitFlag, false, "do not wait for enter after printing the result")
	pf.BoolVar(&a.flags.Cleanup, cleanupFlag, false, "delete the created locator and policy before exiting")
	pf.String(assetFlag, "", "name of the encoded asset to publish")
	_ = a.v.BindPFlag(config.KeyAssetName, pf.Lookup(assetFlag))
}

func newProvisionCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Run the full provisioning workflow (default command)",
		Args:  cobra.NoArgs,
		RunE:  a.runProvision,
	}
}

func (a *app) runProvision(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	builder, err := a.policyBuilder()
	if err != nil {
		return err
	}
	tokens, err := a.minter(builder)
	if err != nil {
		return err
	}
	client, auth, err := a.mediaClient(ctx)
	if err != nil {
		return err
	}

	wf := &provision.Workflow{
		Client:        client,
		Authenticator: auth,
		Policy:        builder,
		Tokens:        tokens,
		Settings: provision.Settings{
			AssetName:             a.cfg.AssetName,
			StreamingPolicyName:   a.cfg.StreamingPolicyName,
			StreamingEndpointName: a.cfg.StreamingEndpointName,
			PolicyNamePrefix:      a.cfg.PolicyNamePrefix,
			EndpointStartTimeout:  a.cfg.EndpointStartTimeout,
			EndpointPollInterval:  a.cfg.EndpointPollInterval,
			RequirePlaybackURL:    a.cfg.RequirePlaybackURL,
		},
	}
	res, runErr := wf.Run(ctx)
	if runErr != nil {
		logx.L().Error("provisioning stopped", "state", res.State.String(), "error", runErr)
		if a.flags.Cleanup {
			return errors.Join(runErr, wf.Cleanup(ctx, res))
		}
		return runErr
	}

	if err := a.render(res); err != nil {
		return err
	}
	if !a.flags.NoWait {
		if err := a.waitForEnter(); err != nil {
			return err
		}
	}
	if a.flags.Cleanup {
		return wf.Cleanup(ctx, res)
	}
	return nil
}

func (a *app) waitForEnter() error {
	fmt.Fprintln(a.stderr, "Press enter to continue.")
	if _, err := bufio.NewReader(a.stdin).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
