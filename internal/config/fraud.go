package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FraudRule blocks a transaction when its amount reaches MaxAmount in the
// rule's currency. Action is one of "hold", "refuse" or "paid".
type FraudRule struct {
	Label     string `mapstructure:"label"`
	Currency  string `mapstructure:"currency"`
	MaxAmount int64  `mapstructure:"maxAmount"`
	Action    string `mapstructure:"action"`
}

// FraudConfig is the rule set evaluated before a transaction is approved.
type FraudConfig struct {
	Rules []FraudRule `mapstructure:"rules"`
}

func DefaultFraudConfig() FraudConfig {
	return FraudConfig{}
}

// FraudConfigHolder exposes the current fraud rule set and hot-reloads it
// when the underlying file changes.
type FraudConfigHolder struct {
	current atomic.Value // holds FraudConfig
}

func NewFraudConfigHolder() (*FraudConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("fraud")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/hookbill/config")
	v.AddConfigPath("/etc/hookbill")
	v.AddConfigPath(".")

	v.SetEnvPrefix("HOOKBILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg FraudConfig
	if err := v.UnmarshalKey("fraud", &cfg); err != nil {
		return nil, err
	}
	if err := validateFraudConfig(cfg); err != nil {
		return nil, err
	}

	holder := &FraudConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FraudConfig
		if err := v.UnmarshalKey("fraud", &updated); err != nil {
			log.Printf("[fraud-config] reload failed: %v", err)
			return
		}
		if err := validateFraudConfig(updated); err != nil {
			log.Printf("[fraud-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fraud-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FraudConfigHolder) Get() FraudConfig {
	return h.current.Load().(FraudConfig)
}

// NewStaticFraudConfigHolder builds a holder around a fixed rule set. Tests
// and embedded callers use this instead of the file-backed constructor.
func NewStaticFraudConfigHolder(cfg FraudConfig) *FraudConfigHolder {
	holder := &FraudConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateFraudConfig(cfg FraudConfig) error {
	for _, rule := range cfg.Rules {
		switch rule.Action {
		case "hold", "refuse", "paid":
		default:
			return errors.New("fraud.rules action must be hold, refuse or paid")
		}
		if rule.MaxAmount <= 0 {
			return errors.New("fraud.rules maxAmount must be positive")
		}
	}
	return nil
}
