package cloudmetrics

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/trashforcoin/internal/config"
	"go.uber.org/zap"
)

const (
	ModeRemoteWrite = "remote_write"
	ModePushgateway = "pushgateway"
	ModeOTLP        = "otlp"

	defaultPushTimeout = 5 * time.Second
)

var errEndpointRequired = errors.New("cloud metrics endpoint is required")

// Pusher ships the gathered store gauges to a remote collector.
// Implementations must not start background goroutines or expose /metrics.
type Pusher interface {
	Push(ctx context.Context, registry *prometheus.Registry) error
}

// Credentials authenticate pushes. User set means HTTP basic auth, a bare token
// means a bearer token.
type Credentials struct {
	User  string
	Token string
}

func (c Credentials) header() string {
	switch {
	case c.User != "":
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.User+":"+c.Token))
	case c.Token != "":
		return "Bearer " + c.Token
	default:
		return ""
	}
}

// NewPusher builds the pusher selected by CLOUD_METRICS_MODE. A bad setup is
// logged and yields nil, which leaves the exporter unregistered.
func NewPusher(cfg config.Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.CloudMetrics.Enabled {
		return nil
	}

	pusher, err := newPusher(cfg)
	if err != nil {
		logger.Warn("cloud metrics disabled", zap.String("mode", cfg.CloudMetrics.Mode), zap.Error(err))
		return nil
	}
	return pusher
}

func newPusher(cfg config.Config) (Pusher, error) {
	endpoint := strings.TrimSpace(cfg.CloudMetrics.Endpoint)
	if endpoint == "" {
		return nil, errEndpointRequired
	}
	creds := Credentials{
		User:  strings.TrimSpace(cfg.CloudMetrics.BasicAuthUser),
		Token: strings.TrimSpace(cfg.CloudMetrics.BasicAuthToken),
	}
	deployment := deploymentLabels(cfg)

	switch mode := strings.ToLower(strings.TrimSpace(cfg.CloudMetrics.Mode)); mode {
	case ModeRemoteWrite, "":
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return nil, fmt.Errorf("invalid cloud metrics endpoint: %w", err)
		}
		return NewRemoteWritePusher(endpoint, creds).WithExternalLabels(deployment), nil
	case ModePushgateway:
		return NewPushgatewayPusher(endpoint, cfg.AppName, creds, deployment), nil
	case ModeOTLP:
		return NewOTLPPusher(endpoint, creds, cfg.AppName, cfg.AppVersion, cfg.Environment)
	default:
		return nil, fmt.Errorf("unknown cloud metrics mode %q", mode)
	}
}

// deploymentLabels tell the stores of one installation apart from another
// pushing to the same collector.
func deploymentLabels(cfg config.Config) map[string]string {
	labels := map[string]string{}
	if env := strings.TrimSpace(cfg.Environment); env != "" {
		labels["environment"] = env
	}
	return labels
}
