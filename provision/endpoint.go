package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/axent-pl/drmkit/common"
	"github.com/axent-pl/drmkit/common/logx"
	"github.com/axent-pl/drmkit/media"
)

// maxPollInterval caps the exponential backoff between endpoint reads.
const maxPollInterval = 30 * time.Second

// EnsureEndpointRunning starts the endpoint when it is not running and
// polls it, doubling the wait each time, until it reports Running or the
// timeout expires. Clients implementing media.EndpointStarter wait on the
// start operation instead.
func EnsureEndpointRunning(ctx context.Context, client media.Client, name string, timeout, interval time.Duration) (media.StreamingEndpoint, error) {
	ep, err := client.GetStreamingEndpoint(ctx, name)
	if err != nil {
		return media.StreamingEndpoint{}, err
	}
	if ep.ResourceState == media.EndpointRunning {
		return ep, nil
	}
	if ep.ResourceState != media.EndpointStarting {
		logx.L().Info("starting streaming endpoint", "endpoint", name, "state", ep.ResourceState)
		if starter, ok := client.(media.EndpointStarter); ok {
			return startAndWait(ctx, client, starter, name, timeout, interval)
		}
		if err := client.StartStreamingEndpoint(ctx, name); err != nil {
			return media.StreamingEndpoint{}, err
		}
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := interval
	for {
		timer := time.NewTimer(wait)
		select {
		case <-pollCtx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return media.StreamingEndpoint{}, ctx.Err()
			}
			return media.StreamingEndpoint{}, fmt.Errorf("%w: %s still %s after %v", common.ErrEndpointStartTimeout, name, ep.ResourceState, timeout)
		case <-timer.C:
		}

		ep, err = client.GetStreamingEndpoint(pollCtx, name)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return media.StreamingEndpoint{}, fmt.Errorf("%w: %s: %v", common.ErrEndpointStartTimeout, name, err)
			}
			return media.StreamingEndpoint{}, err
		}
		logx.L().Debug("polled streaming endpoint", "context", ctx, "endpoint", name, "state", ep.ResourceState, "wait", wait)
		if ep.ResourceState == media.EndpointRunning {
			return ep, nil
		}

		wait *= 2
		if wait > maxPollInterval {
			wait = maxPollInterval
		}
	}
}

func startAndWait(ctx context.Context, client media.Client, starter media.EndpointStarter, name string, timeout, interval time.Duration) (media.StreamingEndpoint, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := starter.StartStreamingEndpointAndWait(waitCtx, name, interval); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return media.StreamingEndpoint{}, fmt.Errorf("%w: %s: %v", common.ErrEndpointStartTimeout, name, err)
		}
		return media.StreamingEndpoint{}, err
	}
	ep, err := client.GetStreamingEndpoint(ctx, name)
	if err != nil {
		return media.StreamingEndpoint{}, err
	}
	if ep.ResourceState != media.EndpointRunning {
		return media.StreamingEndpoint{}, fmt.Errorf("%w: %s is %s after its start completed", common.ErrEndpointStartTimeout, name, ep.ResourceState)
	}
	return ep, nil
}
