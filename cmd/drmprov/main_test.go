package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/sig/sigtest"
	"github.com/axent-pl/drmkit/media"
	"github.com/axent-pl/drmkit/media/memory"
	"github.com/axent-pl/drmkit/policy"
	"github.com/axent-pl/drmkit/provision"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyID = "11111111-2222-4333-8444-555555555555"

func writeConfig(t *testing.T, tokenType string) string {
	t.Helper()
	dir := t.TempDir()
	certPath := sigtest.WritePEM(t, dir, "cert.pem", sigtest.NewCertificate(t))
	body := strings.Join([]string{
		"Platform: memory",
		"AssetName: asset-1-outputs",
		"SymmetricKey: c2VjcmV0LXN5bW1ldHJpYy1rZXktZm9yLXRlc3Rz",
		"CertificatePath: " + certPath,
		"TokenType: " + tokenType,
		"TokenIssuer: https://issuer.example",
		"TokenAudience: urn:drmkit-test",
		"EndpointPollInterval: 5ms",
		"EndpointStartTimeout: 5s",
		"LogLevel: error",
	}, "\n")
	path := filepath.Join(dir, "appsettings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, a *app, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a.stdin = strings.NewReader(stdin)
	a.stdout = &out
	a.stderr = &bytes.Buffer{}
	cmd := a.command()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProvision_Memory(t *testing.T) {
	cfg := writeConfig(t, "Jwt")
	out, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "--no-wait", "-o", "json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Done", res["state"])
	assert.NotEmpty(t, res["keyIdentifier"])
	assert.NotEmpty(t, res["primaryToken"])
	assert.NotEmpty(t, res["secondaryToken"])
	playback := res["playback"].(map[string]any)
	assert.Equal(t, true, playback["resolved"])
	assert.Contains(t, playback["playerUrl"], "https://ampdemo.azureedge.net/?url=https://"+memory.DefaultHostName)
}

func TestProvision_QueryAndCleanup(t *testing.T) {
	cfg := writeConfig(t, "Jwt")
	backend := memory.New()
	a := newApp(nil, nil, nil)
	a.newMediaClient = func(context.Context) (media.Client, provision.Authenticator, error) {
		return backend, nil, nil
	}

	out, err := execute(t, a, "\n", "--config", cfg, "--cleanup", "-q", ".policyName")
	require.NoError(t, err)
	policyName := strings.TrimSpace(out)
	require.True(t, strings.HasPrefix(policyName, "drm-policy-"), policyName)

	_, err = backend.GetPolicyPropertiesWithSecrets(context.Background(), policyName)
	assert.Error(t, err)
}

func TestToken_PrimaryThenVerify(t *testing.T) {
	cfg := writeConfig(t, "Jwt")
	token, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "token", "primary", "--key-id", testKeyID)
	require.NoError(t, err)
	token = strings.TrimSpace(token)
	require.Equal(t, 2, strings.Count(token, "."))

	out, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "-o", "json", "token", "verify", "Bearer="+token)
	require.NoError(t, err)
	var got VerifiedToken
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, testKeyID, got.KeyIdentifier)
	assert.Equal(t, "primary", got.SignedWith)
}

func TestToken_SecondaryVerifiesUnderAlternateKey(t *testing.T) {
	cfg := writeConfig(t, "Jwt")
	token, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "token", "secondary")
	require.NoError(t, err)

	out, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "-q", ".signedWith", "token", "verify", strings.TrimSpace(token))
	require.NoError(t, err)
	assert.Equal(t, "alternate[0]\n", out)
}

func TestToken_SWT(t *testing.T) {
	cfg := writeConfig(t, "Swt")
	token, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "token", "primary", "--key-id", testKeyID)
	require.NoError(t, err)
	assert.Contains(t, token, "HMACSHA256=")

	out, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "-q", ".keyIdentifier", "token", "verify", strings.TrimSpace(token))
	require.NoError(t, err)
	assert.Equal(t, testKeyID+"\n", out)

	_, err = execute(t, newApp(nil, nil, nil), "", "--config", cfg, "token", "secondary")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestToken_PrimaryRejectsBadKeyID(t *testing.T) {
	cfg := writeConfig(t, "Jwt")
	_, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "token", "primary", "--key-id", "not-a-guid")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestPolicyShow_Local(t *testing.T) {
	cfg := writeConfig(t, "Jwt")
	out, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "-q", `.[*].configuration["@odata.type"]`, "policy", "show")
	require.NoError(t, err)
	assert.Equal(t,
		"#Microsoft.Media.ContentKeyPolicyPlayReadyConfiguration\n#Microsoft.Media.ContentKeyPolicyWidevineConfiguration\n",
		out)
}

func TestPolicyShow_NameNeedsARMPlatform(t *testing.T) {
	cfg := writeConfig(t, "Jwt")
	_, err := execute(t, newApp(nil, nil, nil), "", "--config", cfg, "policy", "show", "drm-policy-ab12")
	require.ErrorIs(t, err, common.ErrInvalidInput)
	assert.Contains(t, err.Error(), "needs the arm platform")
}

func TestPolicyShow_Registered(t *testing.T) {
	cfg := writeConfig(t, "Swt")
	backend := memory.New()
	_, err := backend.CreateOrUpdateContentKeyPolicy(context.Background(), "drm-policy-ab12", []policy.Option{
		{Name: "playready", Configuration: policy.PlayReadyLicenseConfiguration()},
	})
	require.NoError(t, err)
	a := newApp(nil, nil, nil)
	a.newMediaClient = func(context.Context) (media.Client, provision.Authenticator, error) {
		return backend, nil, nil
	}

	out, err := execute(t, a, "", "--config", cfg, "-q", `.options[0].configuration["@odata.type"]`, "policy", "show", "drm-policy-ab12")
	require.NoError(t, err)
	assert.Equal(t, "#Microsoft.Media.ContentKeyPolicyPlayReadyConfiguration\n", out)
}

func TestProvision_MissingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Platform: memory\n"), 0o600))
	_, err := execute(t, newApp(nil, nil, nil), "", "--config", path, "--no-wait")
	assert.ErrorIs(t, err, common.ErrConfigMissing)
}
