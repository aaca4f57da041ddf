package cloudmetrics

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/protoadapt"
)

const remoteWriteErrorBody = 512

// RemoteWritePusher sends metrics to a Prometheus remote_write endpoint.
type RemoteWritePusher struct {
	endpoint       string
	creds          Credentials
	externalLabels map[string]string
	httpClient     *http.Client
	now            func() time.Time
}

func NewRemoteWritePusher(endpoint string, creds Credentials) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:   endpoint,
		creds:      creds,
		httpClient: &http.Client{Timeout: defaultPushTimeout},
		now:        time.Now,
	}
}

// WithExternalLabels stamps labels on every series unless the metric already
// carries a label of the same name.
func (p *RemoteWritePusher) WithExternalLabels(labels map[string]string) *RemoteWritePusher {
	p.externalLabels = labels
	return p
}

// Push sends the current registry as one snappy-compressed WriteRequest.
func (p *RemoteWritePusher) Push(ctx context.Context, registry *prometheus.Registry) error {
	if p == nil || registry == nil {
		return nil
	}

	families, err := registry.Gather()
	if err != nil {
		return err
	}
	series := buildRemoteWriteSeries(families, p.now().UnixMilli(), p.externalLabels)
	if len(series) == 0 {
		return nil
	}

	payload, err := proto.Marshal(protoadapt.MessageV2Of(&prompb.WriteRequest{Timeseries: series}))
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(snappy.Encode(nil, payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Content-Encoding", "snappy")
	req.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if auth := p.creds.header(); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, remoteWriteErrorBody))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return fmt.Errorf("remote write returned %s: %s", resp.Status, msg)
		}
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// buildRemoteWriteSeries turns counters and gauges into one-sample series with
// labels sorted by name, as remote_write receivers require.
func buildRemoteWriteSeries(families []*dto.MetricFamily, timestampMs int64, external map[string]string) []prompb.TimeSeries {
	var series []prompb.TimeSeries
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			value, ok := sampleValue(family.GetType(), metric)
			if !ok {
				continue
			}
			series = append(series, prompb.TimeSeries{
				Labels:  seriesLabels(family.GetName(), metric.GetLabel(), external),
				Samples: []prompb.Sample{{Value: value, Timestamp: timestampMs}},
			})
		}
	}
	return series
}

func seriesLabels(name string, pairs []*dto.LabelPair, external map[string]string) []prompb.Label {
	labels := make([]prompb.Label, 0, len(pairs)+len(external)+1)
	labels = append(labels, prompb.Label{Name: "__name__", Value: name})
	seen := make(map[string]struct{}, len(pairs))
	for _, pair := range pairs {
		seen[pair.GetName()] = struct{}{}
		labels = append(labels, prompb.Label{Name: pair.GetName(), Value: pair.GetValue()})
	}
	for key, value := range external {
		if _, ok := seen[key]; ok || key == "" || value == "" {
			continue
		}
		labels = append(labels, prompb.Label{Name: key, Value: value})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels
}

func sampleValue(metricType dto.MetricType, metric *dto.Metric) (float64, bool) {
	if metric == nil {
		return 0, false
	}
	switch metricType {
	case dto.MetricType_COUNTER:
		if metric.GetCounter() == nil {
			return 0, false
		}
		return metric.GetCounter().GetValue(), true
	case dto.MetricType_GAUGE:
		if metric.GetGauge() == nil {
			return 0, false
		}
		return metric.GetGauge().GetValue(), true
	default:
		return 0, false
	}
}
