package provision_test

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/sig/sigtest"
	"github.com/axent-pl/drmkit/jwt"
	"github.com/axent-pl/drmkit/media"
	"github.com/axent-pl/drmkit/media/memory"
	"github.com/axent-pl/drmkit/policy"
	"github.com/axent-pl/drmkit/provision"
	"github.com/axent-pl/drmkit/swt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var symmetricKey = []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

func newWorkflow(t *testing.T, backend *memory.Backend) *provision.Workflow {
	t.Helper()
	cert := sigtest.NewCertificate(t)
	minter, err := jwt.NewMinter("iss", "aud", cert, symmetricKey)
	require.NoError(t, err)
	return &provision.Workflow{
		Client: backend,
		Policy: &policy.Builder{Issuer: "iss", Audience: "aud", Certificate: cert, SymmetricKey: symmetricKey},
		Tokens: minter,
		Settings: provision.Settings{
			AssetName:             "asset-53249-outputs",
			StreamingPolicyName:   "Predefined_MultiDrmCencStreaming",
			StreamingEndpointName: "default",
			PolicyNamePrefix:      "drm-policy",
			EndpointStartTimeout:  time.Second,
			EndpointPollInterval:  time.Millisecond,
		},
		NewNonce: func() (string, error) { return "ab12", nil },
	}
}

func TestWorkflow_Run(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	backend.PollsUntilRunning = 2
	wf := newWorkflow(t, backend)

	res, err := wf.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, provision.StateDone, res.State)
	assert.Equal(t, "drm-policy-ab12", res.PolicyName)
	assert.Equal(t, "asset-53249-outputs-locator-ab12", res.LocatorName)
	assert.True(t, res.Playback.Resolved)
	assert.Contains(t, res.Playback.URL, "https://"+memory.DefaultHostName+"/")
	assert.Contains(t, res.Playback.URL, "format=mpd-time-cmaf")
	assert.Equal(t, "https://ampdemo.azureedge.net/?url="+res.Playback.URL+"&playready=true&widevine=true", res.Playback.PlayerURL)

	restriction, err := wf.Policy.Restriction()
	require.NoError(t, err)
	verifier := &jwt.ContentKeyTokenVerifier{}
	primary, err := verifier.Verify(ctx, jwt.JWTCredentials{Token: res.PrimaryToken}, restriction)
	require.NoError(t, err)
	assert.Equal(t, res.KeyIdentifier, primary.KeyIdentifier)
	assert.Equal(t, 65*time.Minute, primary.ExpiresAt.Sub(primary.NotBefore))

	secondary, err := verifier.Verify(ctx, jwt.JWTCredentials{Token: res.SecondaryToken}, restriction)
	require.NoError(t, err)
	assert.Equal(t, 0, secondary.KeyIndex)

	ep, err := backend.GetStreamingEndpoint(ctx, "default")
	require.NoError(t, err)
	assert.Equal(t, media.EndpointRunning, ep.ResourceState)

	require.NoError(t, wf.Cleanup(ctx, res))
	_, err = backend.ListPaths(ctx, res.LocatorName)
	assert.Error(t, err, "locator removed")
	_, err = backend.GetPolicyPropertiesWithSecrets(ctx, res.PolicyName)
	assert.Error(t, err, "policy removed")
}

func TestWorkflow_RunSWT(t *testing.T) {
	ctx := context.Background()
	wf := newWorkflow(t, memory.New())
	wf.Policy = &policy.Builder{Issuer: "iss", Audience: "aud", SymmetricKey: symmetricKey, TokenType: policy.TokenTypeSWT}
	wf.Tokens = &swt.Minter{Issuer: "iss", Audience: "aud", Key: symmetricKey, Lifetime: time.Hour}

	res, err := wf.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, provision.StateDone, res.State)
	assert.Empty(t, res.SecondaryToken)

	restriction, err := wf.Policy.Restriction()
	require.NoError(t, err)
	claims, err := swt.Verify(ctx, res.PrimaryToken, restriction, time.Now())
	require.NoError(t, err)
	assert.Equal(t, res.KeyIdentifier, claims.KeyIdentifier)
}

func TestWorkflow_EndpointTimeout(t *testing.T) {
	backend := memory.New()
	backend.PollsUntilRunning = -1
	wf := newWorkflow(t, backend)
	wf.Settings.EndpointStartTimeout = 50 * time.Millisecond
	wf.Settings.EndpointPollInterval = 5 * time.Millisecond

	res, err := wf.Run(context.Background())
	require.ErrorIs(t, err, common.ErrEndpointStartTimeout)
	assert.Equal(t, provision.StateLocatorCreated, res.State)
	assert.Empty(t, res.PrimaryToken)
}

// startOperationBackend finishes the endpoint start inside the wait call.
type startOperationBackend struct {
	*memory.Backend
	waits     int
	frequency time.Duration
	hang      bool
}

func (b *startOperationBackend) StartStreamingEndpointAndWait(ctx context.Context, name string, frequency time.Duration) error {
	b.waits++
	b.frequency = frequency
	if b.hang {
		<-ctx.Done()
		return fmt.Errorf("polling %s: %w", name, ctx.Err())
	}
	b.AddStreamingEndpoint(name, "acct-euwe.streaming.media.azure.net", media.EndpointRunning)
	return nil
}

func TestEnsureEndpointRunning_StartOperation(t *testing.T) {
	backend := &startOperationBackend{Backend: memory.New()}
	backend.AddStreamingEndpoint("default", "acct-euwe.streaming.media.azure.net", media.EndpointStopped)

	ep, err := provision.EnsureEndpointRunning(context.Background(), backend, "default", time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, media.EndpointRunning, ep.ResourceState)
	assert.Equal(t, 1, backend.waits)
	assert.Equal(t, 2*time.Second, backend.frequency)

	_, err = provision.EnsureEndpointRunning(context.Background(), backend, "default", time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.waits, "running endpoint is not started again")
}

func TestEnsureEndpointRunning_StartOperationTimeout(t *testing.T) {
	backend := &startOperationBackend{Backend: memory.New(), hang: true}
	backend.AddStreamingEndpoint("default", "acct-euwe.streaming.media.azure.net", media.EndpointStopped)

	_, err := provision.EnsureEndpointRunning(context.Background(), backend, "default", 20*time.Millisecond, time.Second)
	require.ErrorIs(t, err, common.ErrEndpointStartTimeout)
}

func TestWorkflow_MissingDASHPath(t *testing.T) {
	tests := []struct {
		name      string
		require   bool
		wantErr   error
		wantState provision.State
	}{
		{name: "warn and continue", wantState: provision.StateDone},
		{name: "required", require: true, wantErr: common.ErrPathNotFound, wantState: provision.StateEndpointEnsuredRunning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := memory.New()
			backend.Protocols = []media.StreamingProtocol{media.ProtocolHls, media.ProtocolSmoothStreaming}
			wf := newWorkflow(t, backend)
			wf.Settings.RequirePlaybackURL = tt.require

			res, err := wf.Run(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantState, res.State)
			assert.False(t, res.Playback.Resolved)
			assert.Empty(t, res.Playback.URL)
		})
	}
}

func TestWorkflow_AuthenticationFailure(t *testing.T) {
	wf := newWorkflow(t, memory.New())
	wf.Authenticator = provision.AuthenticatorFunc(func(ctx context.Context) error {
		return fmt.Errorf("%w: invalid_client", common.ErrAuthentication)
	})

	res, err := wf.Run(context.Background())
	require.ErrorIs(t, err, common.ErrAuthentication)
	assert.Equal(t, provision.StateConfigured, res.State)
	assert.Empty(t, res.PolicyName)
}

func TestWorkflow_MissingSettings(t *testing.T) {
	wf := newWorkflow(t, memory.New())
	wf.Settings.AssetName = ""
	_, err := wf.Run(context.Background())
	assert.ErrorIs(t, err, common.ErrConfigMissing)
}

func TestSelectDASHPath(t *testing.T) {
	tests := []struct {
		name   string
		paths  []media.StreamingPath
		want   string
		wantOK bool
	}{
		{
			name: "dash among others",
			paths: []media.StreamingPath{
				{StreamingProtocol: media.ProtocolHls, Paths: []string{"/l/a.ism/manifest(format=m3u8-cmaf)"}},
				{StreamingProtocol: media.ProtocolDash, Paths: []string{"/l/a.ism/manifest(format=mpd-time-cmaf)"}},
				{StreamingProtocol: media.ProtocolSmoothStreaming, Paths: []string{"/l/a.ism/manifest"}},
			},
			want:   "https://host.example/l/a.ism/manifest(format=mpd-time-cmaf)",
			wantOK: true,
		},
		{
			name: "no dash",
			paths: []media.StreamingPath{
				{StreamingProtocol: media.ProtocolHls, Paths: []string{"/l/a.ism/manifest(format=m3u8-cmaf)"}},
				{StreamingProtocol: media.ProtocolSmoothStreaming, Paths: []string{"/l/a.ism/manifest"}},
			},
		},
		{
			name:  "dash without paths",
			paths: []media.StreamingPath{{StreamingProtocol: media.ProtocolDash}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := provision.SelectDASHPath("host.example", tt.paths)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewNonce(t *testing.T) {
	format := regexp.MustCompile(`^[a-z0-9]{4}$`)
	seen := map[string]struct{}{}
	const runs = 200
	for i := 0; i < runs; i++ {
		nonce, err := provision.NewNonce()
		require.NoError(t, err)
		require.Regexp(t, format, nonce)
		seen[nonce] = struct{}{}
	}
	// uniqueness is probabilistic, 1/36^4 per pair
	assert.GreaterOrEqual(t, len(seen), runs-2)
}

func TestLocatorName(t *testing.T) {
	assert.Equal(t, "asset-53249-outputs-locator-ab12", provision.LocatorName("asset-53249-outputs", "ab12"))
	assert.Equal(t, "myvideo-locator-ab12", provision.LocatorName("myvideo", "ab12"))
	assert.Equal(t, "drm-policy-ab12", provision.PolicyName("drm-policy", "ab12"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "EndpointEnsuredRunning", provision.StateEndpointEnsuredRunning.String())
	assert.Equal(t, "Unknown", provision.State(99).String())
}
