package arm

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	azlog "github.com/Azure/azure-sdk-for-go/sdk/azcore/log"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"golang.org/x/oauth2"
)

// TokenCredential serves SDK token requests from a token source that is
// already scoped to the management audience. The requested scopes are only
// logged.
type TokenCredential struct {
	Source oauth2.TokenSource
}

var _ azcore.TokenCredential = TokenCredential{}

func (c TokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := common.Acquire(ctx, c.Source)
	if err != nil {
		return azcore.AccessToken{}, err
	}
	logx.L().Debug("served management token", "context", ctx, "scopes", opts.Scopes, "expiry", tok.Expiry)
	return azcore.AccessToken{Token: tok.AccessToken, ExpiresOn: tok.Expiry}, nil
}

// ForwardSDKLog sends the SDK request, retry and long-running operation
// events to the debug log.
func ForwardSDKLog() {
	azlog.SetEvents(azlog.EventRequest, azlog.EventResponse, azlog.EventRetryPolicy, azlog.EventLRO)
	azlog.SetListener(func(event azlog.Event, msg string) {
		logx.L().Debug(msg, "event", event)
	})
}
