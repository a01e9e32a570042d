// Package memory is an in-process media.Client for dry runs and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/mediaservices/armmediaservices/v3"
	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/media"
	"github.com/axent-pl/drmkit/policy"
	"github.com/google/uuid"
)

const DefaultHostName = "localhost.streaming.media.example"

type endpoint struct {
	media.StreamingEndpoint
	pollsLeft int
}

// Backend keeps all resources in maps guarded by one mutex.
type Backend struct {
	// PollsUntilRunning is how many reads of a starting endpoint report
	// Starting before it turns Running. A negative value never starts.
	PollsUntilRunning int
	// Protocols listed by ListPaths, in order. Defaults to Hls, Dash,
	// SmoothStreaming.
	Protocols []media.StreamingProtocol

	mu        sync.Mutex
	policies  map[string]media.ContentKeyPolicy
	locators  map[string]media.StreamingLocator
	endpoints map[string]*endpoint
}

var _ media.Client = &Backend{}

func New() *Backend {
	return &Backend{
		policies:  map[string]media.ContentKeyPolicy{},
		locators:  map[string]media.StreamingLocator{},
		endpoints: map[string]*endpoint{},
	}
}

// AddStreamingEndpoint registers an endpoint in the given state. Unknown
// endpoints are created Stopped on first read.
func (b *Backend) AddStreamingEndpoint(name, hostName string, state media.EndpointState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[name] = &endpoint{StreamingEndpoint: media.StreamingEndpoint{Name: name, HostName: hostName, ResourceState: state}}
}

func (b *Backend) CreateOrUpdateContentKeyPolicy(ctx context.Context, name string, options []policy.Option) (media.ContentKeyPolicy, error) {
	if err := ctx.Err(); err != nil {
		return media.ContentKeyPolicy{}, err
	}
	if name == "" || len(options) == 0 {
		return media.ContentKeyPolicy{}, fmt.Errorf("%w: policy name and options are required", common.ErrInvalidInput)
	}
	if _, err := policy.Models(options); err != nil {
		return media.ContentKeyPolicy{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.policies[name]
	if !ok {
		p = media.ContentKeyPolicy{Name: name, PolicyID: uuid.NewString()}
	}
	p.Options = options
	b.policies[name] = p
	logx.L().Debug("stored content key policy", "context", ctx, "name", name, "options", len(options))
	return p, nil
}

func (b *Backend) GetPolicyPropertiesWithSecrets(ctx context.Context, name string) (json.RawMessage, error) {
	b.mu.Lock()
	p, ok := b.policies[name]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: content key policy %s not found", common.ErrInvalidInput, name)
	}
	options, err := policy.Models(p.Options)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(armmediaservices.ContentKeyPolicyProperties{
		PolicyID:    to.Ptr(p.PolicyID),
		Description: optional(p.Description),
		Options:     options,
	})
	if err != nil {
		logx.L().Debug("could not render policy", "context", ctx, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	return raw, nil
}

func (b *Backend) DeleteContentKeyPolicy(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.policies, name)
	return nil
}

func (b *Backend) CreateStreamingLocator(ctx context.Context, name string, locator media.StreamingLocator) (media.StreamingLocator, error) {
	if err := ctx.Err(); err != nil {
		return media.StreamingLocator{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.locators[name]; exists {
		return media.StreamingLocator{}, fmt.Errorf("%w: %s already exists", common.ErrLocatorCreation, name)
	}
	if locator.AssetName == "" || locator.StreamingPolicyName == "" {
		return media.StreamingLocator{}, fmt.Errorf("%w: asset and streaming policy are required", common.ErrLocatorCreation)
	}
	if locator.DefaultContentKeyPolicyName != "" {
		if _, ok := b.policies[locator.DefaultContentKeyPolicyName]; !ok {
			return media.StreamingLocator{}, fmt.Errorf("%w: content key policy %s not found", common.ErrLocatorCreation, locator.DefaultContentKeyPolicyName)
		}
	}

	locator.Name = name
	if locator.StreamingLocatorID == "" {
		locator.StreamingLocatorID = uuid.NewString()
	}
	if len(locator.ContentKeys) == 0 {
		locator.ContentKeys = []media.StreamingLocatorContentKey{
			{ID: uuid.NewString(), Type: media.ContentKeyCommonEncryptionCenc, LabelReferenceInStreamingPolicy: "cencDefaultKey", PolicyName: locator.DefaultContentKeyPolicyName},
			{ID: uuid.NewString(), Type: media.ContentKeyCommonEncryptionCbcs, LabelReferenceInStreamingPolicy: "cbcsDefaultKey", PolicyName: locator.DefaultContentKeyPolicyName},
		}
	}
	b.locators[name] = locator
	return locator, nil
}

func (b *Backend) DeleteStreamingLocator(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.locators, name)
	return nil
}

func (b *Backend) ListPaths(ctx context.Context, locatorName string) ([]media.StreamingPath, error) {
	b.mu.Lock()
	locator, ok := b.locators[locatorName]
	b.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: streaming locator %s not found", common.ErrInvalidInput, locatorName)
	}

	protocols := b.Protocols
	if protocols == nil {
		protocols = []media.StreamingProtocol{media.ProtocolHls, media.ProtocolDash, media.ProtocolSmoothStreaming}
	}
	base := "/" + locator.StreamingLocatorID + "/" + locator.AssetName + ".ism/manifest"
	paths := make([]media.StreamingPath, 0, len(protocols))
	for _, p := range protocols {
		var suffix, scheme string
		switch p {
		case media.ProtocolHls:
			suffix, scheme = "(format=m3u8-cmaf,encryption=cbcs-aapl)", "CommonEncryptionCbcs"
		case media.ProtocolDash:
			suffix, scheme = "(format=mpd-time-cmaf,encryption=cenc)", "CommonEncryptionCenc"
		default:
			suffix, scheme = "(encryption=cenc)", "CommonEncryptionCenc"
		}
		paths = append(paths, media.StreamingPath{StreamingProtocol: p, EncryptionScheme: scheme, Paths: []string{base + suffix}})
	}
	return paths, nil
}

func (b *Backend) GetStreamingEndpoint(ctx context.Context, name string) (media.StreamingEndpoint, error) {
	if err := ctx.Err(); err != nil {
		return media.StreamingEndpoint{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	ep, ok := b.endpoints[name]
	if !ok {
		ep = &endpoint{StreamingEndpoint: media.StreamingEndpoint{Name: name, HostName: DefaultHostName, ResourceState: media.EndpointStopped}}
		b.endpoints[name] = ep
	}
	if ep.ResourceState == media.EndpointStarting && ep.pollsLeft >= 0 {
		if ep.pollsLeft == 0 {
			ep.ResourceState = media.EndpointRunning
		} else {
			ep.pollsLeft--
		}
	}
	return ep.StreamingEndpoint, nil
}

func (b *Backend) StartStreamingEndpoint(ctx context.Context, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ep, ok := b.endpoints[name]
	if !ok {
		return fmt.Errorf("%w: streaming endpoint %s not found", common.ErrInvalidInput, name)
	}
	if ep.ResourceState == media.EndpointRunning || ep.ResourceState == media.EndpointStarting {
		return nil
	}
	ep.ResourceState = media.EndpointStarting
	ep.pollsLeft = b.PollsUntilRunning
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
