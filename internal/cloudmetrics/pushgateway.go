package cloudmetrics

import (
	"context"
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushgatewayPusher sends metrics to a Prometheus Pushgateway. Each push
// replaces the whole group, so gauges of a store that was removed disappear
// on the next cycle. Only basic auth is supported.
type PushgatewayPusher struct {
	endpoint string
	job      string
	creds    Credentials
	grouping map[string]string
}

func NewPushgatewayPusher(endpoint, job string, creds Credentials, grouping map[string]string) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: strings.TrimSpace(endpoint),
		job:      strings.TrimSpace(job),
		creds:    creds,
		grouping: grouping,
	}
}

func (p *PushgatewayPusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}
	switch {
	case p.endpoint == "":
		return errEndpointRequired
	case p.job == "":
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(registry)
	if p.creds.User != "" {
		pusher = pusher.BasicAuth(p.creds.User, p.creds.Token)
	}
	for key, value := range p.grouping {
		if key, value = strings.TrimSpace(key), strings.TrimSpace(value); key != "" && value != "" {
			pusher = pusher.Grouping(key, value)
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return pusher.PushContext(ctx)
}
