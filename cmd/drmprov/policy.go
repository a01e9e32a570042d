package main

import (
	"fmt"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/config"
	"github.com/axent-pl/drmkit/mapx"
	"github.com/axent-pl/drmkit/policy"
	"github.com/spf13/cobra"
)

func newPolicyCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect content key policies",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [NAME]",
		Short: "Print the policy options built from the configuration, or a registered policy with its secrets",
		Long: `Without NAME, print the policy options built from the configuration.
With NAME, read the registered policy with its secrets from the management API.
Reading by NAME needs the arm platform; the memory platform keeps nothing between runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 0 {
				builder, err := a.policyBuilder()
				if err != nil {
					return err
				}
				options, err := builder.Options(ctx)
				if err != nil {
					return err
				}
				models, err := policy.Models(options)
				if err != nil {
					return err
				}
				return a.renderJSON(models)
			}

			if a.newMediaClient == nil && a.cfg.Platform == config.PlatformMemory {
				return fmt.Errorf("%w: policy show %s needs the %s platform; the %s platform keeps nothing between runs",
					common.ErrInvalidInput, args[0], config.PlatformARM, config.PlatformMemory)
			}
			client, auth, err := a.mediaClient(ctx)
			if err != nil {
				return err
			}
			if auth != nil {
				if err := auth.Authenticate(ctx); err != nil {
					return err
				}
			}
			raw, err := client.GetPolicyPropertiesWithSecrets(ctx, args[0])
			if err != nil {
				return err
			}
			return a.renderJSON(raw)
		},
	})
	return cmd
}

// renderJSON renders the JSON form of v so every output format shows the
// wire field names.
func (a *app) renderJSON(v any) error {
	doc, err := mapx.Normalize(v)
	if err != nil {
		return err
	}
	return a.render(doc)
}
