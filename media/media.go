// Package media describes the media-services management capabilities the
// provisioning run depends on. media/arm talks to the management API through
// the Azure SDK; media/memory is an in-process stand-in.
package media

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/policy"
)

type ContentKeyType string

const (
	ContentKeyCommonEncryptionCenc ContentKeyType = "CommonEncryptionCenc"
	ContentKeyCommonEncryptionCbcs ContentKeyType = "CommonEncryptionCbcs"
	ContentKeyEnvelopeEncryption   ContentKeyType = "EnvelopeEncryption"
)

type EndpointState string

const (
	EndpointStopped  EndpointState = "Stopped"
	EndpointStarting EndpointState = "Starting"
	EndpointRunning  EndpointState = "Running"
	EndpointStopping EndpointState = "Stopping"
	EndpointDeleting EndpointState = "Deleting"
	EndpointScaling  EndpointState = "Scaling"
)

type StreamingProtocol string

const (
	ProtocolHls             StreamingProtocol = "Hls"
	ProtocolDash            StreamingProtocol = "Dash"
	ProtocolSmoothStreaming StreamingProtocol = "SmoothStreaming"
	ProtocolDownload        StreamingProtocol = "Download"
)

type ContentKeyPolicy struct {
	Name        string
	PolicyID    string
	Description string
	Options     []policy.Option
}

type StreamingLocatorContentKey struct {
	ID                              string         `json:"id"`
	Type                            ContentKeyType `json:"type"`
	LabelReferenceInStreamingPolicy string         `json:"labelReferenceInStreamingPolicy,omitempty"`
	PolicyName                      string         `json:"policyName,omitempty"`
}

type StreamingLocator struct {
	Name                        string
	StreamingLocatorID          string
	AssetName                   string
	StreamingPolicyName         string
	DefaultContentKeyPolicyName string
	ContentKeys                 []StreamingLocatorContentKey
}

// KeyIdentifier returns the id of the first CommonEncryptionCenc content key.
func (l StreamingLocator) KeyIdentifier() (string, error) {
	for _, k := range l.ContentKeys {
		if k.Type == ContentKeyCommonEncryptionCenc {
			return k.ID, nil
		}
	}
	return "", fmt.Errorf("%w: locator %s has no %s content key", common.ErrLocatorCreation, l.Name, ContentKeyCommonEncryptionCenc)
}

type StreamingEndpoint struct {
	Name          string
	HostName      string
	ResourceState EndpointState
}

type StreamingPath struct {
	StreamingProtocol StreamingProtocol `json:"streamingProtocol"`
	EncryptionScheme  string            `json:"encryptionScheme"`
	Paths             []string          `json:"paths"`
}

// Client is the management surface used by a provisioning run. Every call
// is a single request; callers decide about polling.
type Client interface {
	CreateOrUpdateContentKeyPolicy(ctx context.Context, name string, options []policy.Option) (ContentKeyPolicy, error)
	// GetPolicyPropertiesWithSecrets returns the stored policy properties,
	// including key material, as the platform renders them.
	GetPolicyPropertiesWithSecrets(ctx context.Context, name string) (json.RawMessage, error)
	DeleteContentKeyPolicy(ctx context.Context, name string) error

	CreateStreamingLocator(ctx context.Context, name string, locator StreamingLocator) (StreamingLocator, error)
	DeleteStreamingLocator(ctx context.Context, name string) error
	ListPaths(ctx context.Context, locatorName string) ([]StreamingPath, error)

	GetStreamingEndpoint(ctx context.Context, name string) (StreamingEndpoint, error)
	StartStreamingEndpoint(ctx context.Context, name string) error
}

// EndpointStarter is implemented by clients whose platform exposes the start
// as a long-running operation that can be waited on.
type EndpointStarter interface {
	StartStreamingEndpointAndWait(ctx context.Context, name string, frequency time.Duration) error
}
