package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestFulfillmentMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewFulfillmentMetrics(reg)

	metrics.IncTransition("pick", "success")
	metrics.ObserveTransition("pick", 120*time.Millisecond)
	metrics.IncStockAdjustment("pick")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "order_transitions_total", map[string]string{"action": "pick", "outcome": "success"}); err != nil {
		t.Fatalf("fetch transitions: %v", err)
	} else if got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "stock_adjustments_total", map[string]string{"type": "pick"}); err != nil {
		t.Fatalf("fetch adjustments: %v", err)
	} else if got != 1 {
		t.Fatalf("expected adjustments=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "order_transition_duration_seconds", map[string]string{"action": "pick"}); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestNilRegistererYieldsNoopMetrics(t *testing.T) {
	metrics := NewFulfillmentMetrics(nil)
	metrics.IncTransition("ship", "rejected")
	metrics.ObserveTransition("ship", time.Second)
	metrics.IncStockAdjustment("manual_adjustment")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchLabels(metric, labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("no series of %q matches %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchLabels(metric, labels) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("no series of %q matches %v", name, labels)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	found := map[string]string{}
	for _, pair := range metric.GetLabel() {
		found[pair.GetName()] = pair.GetValue()
	}
	for k, v := range labels {
		if found[k] != v {
			return false
		}
	}
	return true
}
