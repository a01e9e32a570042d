// Package arm implements media.Client with the Azure SDK clients for a
// Media Services account.
package arm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azarm "github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/cloud"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/mediaservices/armmediaservices/v3"
	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/media"
	"github.com/axent-pl/drmkit/policy"
)

const DefaultAudience = "https://management.core.windows.net/"

// minPollFrequency is the shortest interval the SDK poller accepts.
const minPollFrequency = time.Second

type Account struct {
	// ArmEndpoint is the management base URL, e.g. https://management.azure.com/
	ArmEndpoint string
	// ArmAudience is the resource management tokens are issued for.
	ArmAudience    string
	SubscriptionID string
	ResourceGroup  string
	AccountName    string
}

type Client struct {
	account   Account
	policies  *armmediaservices.ContentKeyPoliciesClient
	locators  *armmediaservices.StreamingLocatorsClient
	endpoints *armmediaservices.StreamingEndpointsClient
}

var (
	_ media.Client          = &Client{}
	_ media.EndpointStarter = &Client{}
)

// New builds the SDK clients for one account. options may carry a transport
// or retry settings; its cloud configuration is replaced with the account
// endpoint and audience.
func New(cred azcore.TokenCredential, account Account, options *azarm.ClientOptions) (*Client, error) {
	if cred == nil {
		return nil, fmt.Errorf("%w: a token credential is required", common.ErrInvalidInput)
	}
	u, err := url.Parse(account.ArmEndpoint)
	if err != nil || !u.IsAbs() {
		return nil, fmt.Errorf("%w: ArmEndpoint must be an absolute URL", common.ErrInvalidInput)
	}
	if account.SubscriptionID == "" || account.ResourceGroup == "" || account.AccountName == "" {
		return nil, fmt.Errorf("%w: subscription, resource group and account are required", common.ErrInvalidInput)
	}
	if account.ArmAudience == "" {
		account.ArmAudience = DefaultAudience
	}

	var opts azarm.ClientOptions
	if options != nil {
		opts = *options
	}
	opts.Cloud = cloud.Configuration{
		ActiveDirectoryAuthorityHost: opts.Cloud.ActiveDirectoryAuthorityHost,
		Services: map[cloud.ServiceName]cloud.ServiceConfiguration{
			cloud.ResourceManager: {Endpoint: account.ArmEndpoint, Audience: account.ArmAudience},
		},
	}
	factory, err := armmediaservices.NewClientFactory(account.SubscriptionID, cred, &opts)
	if err != nil {
		return nil, fmt.Errorf("%w: could not create media services clients: %v", common.ErrInvalidInput, err)
	}
	return &Client{
		account:   account,
		policies:  factory.NewContentKeyPoliciesClient(),
		locators:  factory.NewStreamingLocatorsClient(),
		endpoints: factory.NewStreamingEndpointsClient(),
	}, nil
}

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ---------- content key policies ----------

func (c *Client) CreateOrUpdateContentKeyPolicy(ctx context.Context, name string, options []policy.Option) (media.ContentKeyPolicy, error) {
	models, err := policy.Models(options)
	if err != nil {
		return media.ContentKeyPolicy{}, err
	}
	resp, err := c.policies.CreateOrUpdate(ctx, c.account.ResourceGroup, c.account.AccountName, name,
		armmediaservices.ContentKeyPolicy{Properties: &armmediaservices.ContentKeyPolicyProperties{Options: models}}, nil)
	if err != nil {
		logx.L().Debug("could not register content key policy", "context", ctx, "name", name, "error", err)
		if statusCode(err) == http.StatusConflict {
			return media.ContentKeyPolicy{}, fmt.Errorf("%w: %s: %w", common.ErrPolicyNameConflict, name, err)
		}
		return media.ContentKeyPolicy{}, fmt.Errorf("could not create content key policy %s: %w", name, err)
	}

	p := media.ContentKeyPolicy{Name: name, Options: options}
	if props := resp.Properties; props != nil {
		p.PolicyID = deref(props.PolicyID)
		p.Description = deref(props.Description)
	}
	return p, nil
}

func (c *Client) GetPolicyPropertiesWithSecrets(ctx context.Context, name string) (json.RawMessage, error) {
	resp, err := c.policies.GetPolicyPropertiesWithSecrets(ctx, c.account.ResourceGroup, c.account.AccountName, name, nil)
	if err != nil {
		return nil, fmt.Errorf("could not read content key policy %s: %w", name, err)
	}
	raw, err := json.Marshal(resp.ContentKeyPolicyProperties)
	if err != nil {
		return nil, fmt.Errorf("%w: could not render content key policy %s: %v", common.ErrInternal, name, err)
	}
	return raw, nil
}

func (c *Client) DeleteContentKeyPolicy(ctx context.Context, name string) error {
	if _, err := c.policies.Delete(ctx, c.account.ResourceGroup, c.account.AccountName, name, nil); err != nil {
		return fmt.Errorf("could not delete content key policy %s: %w", name, err)
	}
	return nil
}

// ---------- streaming locators ----------

func (c *Client) CreateStreamingLocator(ctx context.Context, name string, locator media.StreamingLocator) (media.StreamingLocator, error) {
	props := &armmediaservices.StreamingLocatorProperties{
		AssetName:                   to.Ptr(locator.AssetName),
		StreamingPolicyName:         to.Ptr(locator.StreamingPolicyName),
		DefaultContentKeyPolicyName: optional(locator.DefaultContentKeyPolicyName),
		StreamingLocatorID:          optional(locator.StreamingLocatorID),
	}
	for _, k := range locator.ContentKeys {
		props.ContentKeys = append(props.ContentKeys, &armmediaservices.StreamingLocatorContentKey{
			ID:                              to.Ptr(k.ID),
			LabelReferenceInStreamingPolicy: optional(k.LabelReferenceInStreamingPolicy),
		})
	}

	resp, err := c.locators.Create(ctx, c.account.ResourceGroup, c.account.AccountName, name,
		armmediaservices.StreamingLocator{Properties: props}, nil)
	if err != nil {
		return media.StreamingLocator{}, fmt.Errorf("%w: %s: %w", common.ErrLocatorCreation, name, err)
	}
	if resp.Properties == nil {
		return media.StreamingLocator{}, fmt.Errorf("%w: %s: response has no properties", common.ErrLocatorCreation, name)
	}

	got := resp.Properties
	out := media.StreamingLocator{
		Name:                        name,
		StreamingLocatorID:          deref(got.StreamingLocatorID),
		AssetName:                   deref(got.AssetName),
		StreamingPolicyName:         deref(got.StreamingPolicyName),
		DefaultContentKeyPolicyName: deref(got.DefaultContentKeyPolicyName),
	}
	for _, k := range got.ContentKeys {
		if k == nil {
			continue
		}
		out.ContentKeys = append(out.ContentKeys, media.StreamingLocatorContentKey{
			ID:                              deref(k.ID),
			Type:                            media.ContentKeyType(deref(k.Type)),
			LabelReferenceInStreamingPolicy: deref(k.LabelReferenceInStreamingPolicy),
			PolicyName:                      deref(k.PolicyName),
		})
	}
	return out, nil
}

func (c *Client) DeleteStreamingLocator(ctx context.Context, name string) error {
	if _, err := c.locators.Delete(ctx, c.account.ResourceGroup, c.account.AccountName, name, nil); err != nil {
		return fmt.Errorf("could not delete streaming locator %s: %w", name, err)
	}
	return nil
}

func (c *Client) ListPaths(ctx context.Context, locatorName string) ([]media.StreamingPath, error) {
	resp, err := c.locators.ListPaths(ctx, c.account.ResourceGroup, c.account.AccountName, locatorName, nil)
	if err != nil {
		return nil, fmt.Errorf("could not list paths of %s: %w", locatorName, err)
	}
	paths := make([]media.StreamingPath, 0, len(resp.StreamingPaths))
	for _, p := range resp.StreamingPaths {
		if p == nil {
			continue
		}
		sp := media.StreamingPath{
			StreamingProtocol: media.StreamingProtocol(deref(p.StreamingProtocol)),
			EncryptionScheme:  string(deref(p.EncryptionScheme)),
		}
		for _, path := range p.Paths {
			sp.Paths = append(sp.Paths, deref(path))
		}
		paths = append(paths, sp)
	}
	return paths, nil
}

// ---------- streaming endpoints ----------

func (c *Client) GetStreamingEndpoint(ctx context.Context, name string) (media.StreamingEndpoint, error) {
	resp, err := c.endpoints.Get(ctx, c.account.ResourceGroup, c.account.AccountName, name, nil)
	if err != nil {
		return media.StreamingEndpoint{}, fmt.Errorf("could not get streaming endpoint %s: %w", name, err)
	}
	ep := media.StreamingEndpoint{Name: name}
	if props := resp.Properties; props != nil {
		ep.HostName = deref(props.HostName)
		ep.ResourceState = media.EndpointState(deref(props.ResourceState))
	}
	return ep, nil
}

// StartStreamingEndpoint only submits the start operation.
func (c *Client) StartStreamingEndpoint(ctx context.Context, name string) error {
	if _, err := c.endpoints.BeginStart(ctx, c.account.ResourceGroup, c.account.AccountName, name, nil); err != nil {
		return fmt.Errorf("could not start streaming endpoint %s: %w", name, err)
	}
	return nil
}

// StartStreamingEndpointAndWait submits the start operation and polls it
// until it completes or ctx ends. frequency is raised to the SDK minimum.
func (c *Client) StartStreamingEndpointAndWait(ctx context.Context, name string, frequency time.Duration) error {
	poller, err := c.endpoints.BeginStart(ctx, c.account.ResourceGroup, c.account.AccountName, name, nil)
	if err != nil {
		return fmt.Errorf("could not start streaming endpoint %s: %w", name, err)
	}
	if frequency < minPollFrequency {
		frequency = minPollFrequency
	}
	if _, err := poller.PollUntilDone(ctx, &runtime.PollUntilDoneOptions{Frequency: frequency}); err != nil {
		logx.L().Debug("streaming endpoint start did not complete", "context", ctx, "endpoint", name, "error", err)
		return fmt.Errorf("streaming endpoint %s did not start: %w", name, err)
	}
	return nil
}
