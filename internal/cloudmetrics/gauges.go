package cloudmetrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	reportdomain "github.com/smallbiznis/trashforcoin/internal/report/domain"
)

const namespace = "trashforcoin"

var storeLabels = []string{"store_id", "store"}

// storeGauges mirrors the latest per-store snapshot. Every observation replaces the
// previous one so deleted stores drop out of the next push.
type storeGauges struct {
	products      *prometheus.GaugeVec
	stockUnits    *prometheus.GaugeVec
	lowStock      *prometheus.GaugeVec
	flaggedBins   *prometheus.GaugeVec
	openCartLines *prometheus.GaugeVec
}

func newStoreGauges(registerer prometheus.Registerer) *storeGauges {
	gauge := func(name, help string) *prometheus.GaugeVec {
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, storeLabels)
		registerer.MustRegister(vec)
		return vec
	}
	return &storeGauges{
		products:      gauge("store_products", "Products owned by the store."),
		stockUnits:    gauge("store_stock_units", "Units on hand across the store's products."),
		lowStock:      gauge("store_low_stock_products", "Store products at or below the low stock threshold."),
		flaggedBins:   gauge("store_flagged_bins", "Bins flagged for collection."),
		openCartLines: gauge("store_open_cart_lines", "Order lines still sitting in a cart."),
	}
}

func (g *storeGauges) Observe(snapshots []reportdomain.StoreSnapshot) {
	if g == nil {
		return
	}
	for _, vec := range []*prometheus.GaugeVec{g.products, g.stockUnits, g.lowStock, g.flaggedBins, g.openCartLines} {
		vec.Reset()
	}
	for _, s := range snapshots {
		labels := []string{strconv.FormatInt(s.StoreID, 10), normalizeLabel(s.Slug)}
		g.products.WithLabelValues(labels...).Set(float64(s.Products))
		g.stockUnits.WithLabelValues(labels...).Set(float64(s.StockUnits))
		g.lowStock.WithLabelValues(labels...).Set(float64(s.LowStock))
		g.flaggedBins.WithLabelValues(labels...).Set(float64(s.FlaggedBins))
		g.openCartLines.WithLabelValues(labels...).Set(float64(s.OpenCartLines))
	}
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return value
}
