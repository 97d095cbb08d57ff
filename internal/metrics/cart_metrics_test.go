package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestNewCartMetricsWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCartMetricsWithRegisterer(reg)

	if m == nil {
		t.Fatal("NewCartMetricsWithRegisterer should not return nil")
	}
	if m.itemsAdded == nil || m.itemsRemoved == nil || m.quantityUpdates == nil {
		t.Error("operation counters should not be nil")
	}
	if m.checkoutsSent == nil || m.checkoutsEmpty == nil || m.checkoutsFailed == nil {
		t.Error("checkout counters should not be nil")
	}
	if m.checkoutDuration == nil || m.checkoutValue == nil {
		t.Error("histograms should not be nil")
	}
}

func TestCartMetrics_ReuseAlreadyRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewCartMetricsWithRegisterer(reg)
	second := NewCartMetricsWithRegisterer(reg)

	first.RecordItemAdded()
	second.RecordItemAdded()

	if got := testutil.ToFloat64(first.itemsAdded); got != 2 {
		t.Errorf("expected shared counter value 2, got %v", got)
	}
}

func TestCartMetrics_Counters(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordItemAdded()
	m.RecordItemAdded()
	m.RecordItemRemoved()
	m.RecordQuantityUpdated()
	m.RecordCleared()
	m.RecordCheckoutEmpty()
	m.RecordNotification("warning")
	m.RecordNotification("warning")
	m.RecordNotification("success")

	checks := map[string]struct {
		c    prometheus.Collector
		want float64
	}{
		"added":    {m.itemsAdded, 2},
		"removed":  {m.itemsRemoved, 1},
		"updates":  {m.quantityUpdates, 1},
		"cleared":  {m.cartsCleared, 1},
		"empty":    {m.checkoutsEmpty, 1},
		"warnings": {m.notificationsOut.WithLabelValues("warning"), 2},
		"success":  {m.notificationsOut.WithLabelValues("success"), 1},
	}
	for name, check := range checks {
		if got := testutil.ToFloat64(check.c); got != check.want {
			t.Errorf("%s: expected %v, got %v", name, check.want, got)
		}
	}
}

func TestCartMetrics_CheckoutHistograms(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordCheckoutSent(25.5, 3, 10*time.Millisecond)
	m.RecordCheckoutFailed(20 * time.Millisecond)

	if got := testutil.ToFloat64(m.checkoutsSent); got != 1 {
		t.Errorf("expected 1 sent checkout, got %v", got)
	}
	if got := testutil.ToFloat64(m.checkoutsFailed); got != 1 {
		t.Errorf("expected 1 failed checkout, got %v", got)
	}

	metric := &dto.Metric{}
	if err := m.checkoutDuration.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Errorf("expected 2 duration samples, got %d", metric.Histogram.GetSampleCount())
	}

	value := &dto.Metric{}
	if err := m.checkoutValue.Write(value); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if value.Histogram.GetSampleSum() != 25.5 {
		t.Errorf("expected checkout value sum 25.5, got %v", value.Histogram.GetSampleSum())
	}

	items := &dto.Metric{}
	if err := m.checkoutItems.Write(items); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if items.Histogram.GetSampleCount() != 1 || items.Histogram.GetSampleSum() != 3 {
		t.Errorf("expected one checkout with 3 items, got count=%d sum=%v",
			items.Histogram.GetSampleCount(), items.Histogram.GetSampleSum())
	}
}

func TestCartMetrics_Gauges(t *testing.T) {
	m := NewCartMetricsWithRegisterer(prometheus.NewRegistry())

	m.SetActiveCarts(3)

	if got := testutil.ToFloat64(m.activeCarts); got != 3 {
		t.Errorf("expected active carts 3, got %v", got)
	}
}

func TestCartMetrics_NilReceiver(t *testing.T) {
	var m *CartMetrics

	// Не должно паниковать.
	m.RecordItemAdded()
	m.RecordItemRemoved()
	m.RecordQuantityUpdated()
	m.RecordCleared()
	m.RecordCheckoutSent(1, 1, time.Millisecond)
	m.RecordCheckoutEmpty()
	m.RecordCheckoutFailed(time.Millisecond)
	m.RecordNotification("success")
	m.SetActiveCarts(1)
}
