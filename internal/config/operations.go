package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// OperationsConfig holds store-floor rules that operators tune without a redeploy.
type OperationsConfig struct {
	// ReceiptBarcodeAttempts bounds the random receipt barcode collision retries at checkout.
	ReceiptBarcodeAttempts int `mapstructure:"receiptBarcodeAttempts"`
	// FirstOrderID is the cart order id handed out in a store with no numeric order ids yet.
	FirstOrderID int64 `mapstructure:"firstOrderId"`
	// ScanBarcodeLength is the exact digit count accepted from cart scanners.
	ScanBarcodeLength int `mapstructure:"scanBarcodeLength"`
	// LowStockThreshold marks products as low on the dashboard.
	LowStockThreshold int `mapstructure:"lowStockThreshold"`
}

func DefaultOperationsConfig() OperationsConfig {
	return OperationsConfig{
		ReceiptBarcodeAttempts: 5,
		FirstOrderID:           100001,
		ScanBarcodeLength:      13,
		LowStockThreshold:      5,
	}
}

type OperationsConfigHolder struct {
	current atomic.Value // holds OperationsConfig
}

// NewStaticOperationsConfigHolder returns a holder pinned to cfg. Used by tests and tools.
func NewStaticOperationsConfigHolder(cfg OperationsConfig) *OperationsConfigHolder {
	holder := &OperationsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewOperationsConfigHolder() (*OperationsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("operations")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/trashforcoin/config")
	v.AddConfigPath("/etc/trashforcoin")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TRASHFORCOIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultOperationsConfig()
	v.SetDefault("operations.receiptBarcodeAttempts", defaults.ReceiptBarcodeAttempts)
	v.SetDefault("operations.firstOrderId", defaults.FirstOrderID)
	v.SetDefault("operations.scanBarcodeLength", defaults.ScanBarcodeLength)
	v.SetDefault("operations.lowStockThreshold", defaults.LowStockThreshold)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg OperationsConfig
	if err := v.UnmarshalKey("operations", &cfg); err != nil {
		return nil, err
	}
	if err := validateOperationsConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticOperationsConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated OperationsConfig
		if err := v.UnmarshalKey("operations", &updated); err != nil {
			log.Printf("[operations-config] reload failed: %v", err)
			return
		}
		if err := validateOperationsConfig(updated); err != nil {
			log.Printf("[operations-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[operations-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *OperationsConfigHolder) Get() OperationsConfig {
	if h == nil {
		return DefaultOperationsConfig()
	}
	cfg, ok := h.current.Load().(OperationsConfig)
	if !ok {
		return DefaultOperationsConfig()
	}
	return cfg
}

func validateOperationsConfig(cfg OperationsConfig) error {
	if cfg.ReceiptBarcodeAttempts <= 0 {
		return errors.New("operations.receiptBarcodeAttempts must be positive")
	}
	if cfg.FirstOrderID <= 0 {
		return errors.New("operations.firstOrderId must be positive")
	}
	if cfg.ScanBarcodeLength <= 0 {
		return errors.New("operations.scanBarcodeLength must be positive")
	}
	if cfg.LowStockThreshold < 0 {
		return errors.New("operations.lowStockThreshold cannot be negative")
	}
	return nil
}
