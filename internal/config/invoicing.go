package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// IssuerConfig is the seller block printed on partner commission invoices.
// Keys match the company_settings table so stored rows can override them.
type IssuerConfig struct {
	CompanyName  string `mapstructure:"company_name"`
	Address      string `mapstructure:"company_address"`
	Email        string `mapstructure:"company_email"`
	Phone        string `mapstructure:"company_phone"`
	SIRET        string `mapstructure:"company_siret"`
	VAT          string `mapstructure:"company_vat"`
	LegalForm    string `mapstructure:"legal_form"`
	Capital      string `mapstructure:"capital"`
	RCS          string `mapstructure:"rcs"`
	PaymentTerms string `mapstructure:"payment_terms"`
	BankIBAN     string `mapstructure:"bank_iban"`
	BankBIC      string `mapstructure:"bank_bic"`
	BankHolder   string `mapstructure:"bank_holder"`
	LatePenalty  string `mapstructure:"late_penalty"`
}

func DefaultIssuerConfig() IssuerConfig {
	return IssuerConfig{
		CompanyName:  "Formalités & Co",
		PaymentTerms: "Paiement à réception",
		LatePenalty:  "Pénalités de retard : 3 fois le taux d'intérêt légal",
	}
}

// Overlay returns a copy with every non-empty setting applied on top.
func (c IssuerConfig) Overlay(settings map[string]string) IssuerConfig {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(settings[key]); v != "" {
			*dst = v
		}
	}
	set(&c.CompanyName, "company_name")
	set(&c.Address, "company_address")
	set(&c.Email, "company_email")
	set(&c.Phone, "company_phone")
	set(&c.SIRET, "company_siret")
	set(&c.VAT, "company_vat")
	set(&c.LegalForm, "legal_form")
	set(&c.Capital, "capital")
	set(&c.RCS, "rcs")
	set(&c.PaymentTerms, "payment_terms")
	set(&c.BankIBAN, "bank_iban")
	set(&c.BankBIC, "bank_bic")
	set(&c.BankHolder, "bank_holder")
	set(&c.LatePenalty, "late_penalty")
	return c
}

type IssuerConfigHolder struct {
	current atomic.Value // holds IssuerConfig
}

// NewStaticIssuerConfigHolder returns a holder that never reloads.
func NewStaticIssuerConfigHolder(cfg IssuerConfig) *IssuerConfigHolder {
	holder := &IssuerConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewIssuerConfigHolder() (*IssuerConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("invoicing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/partnerdesk/config")
	v.AddConfigPath("/etc/partnerdesk")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PARTNERDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIssuerConfig()
	v.SetDefault("issuer.company_name", defaults.CompanyName)
	v.SetDefault("issuer.payment_terms", defaults.PaymentTerms)
	v.SetDefault("issuer.late_penalty", defaults.LatePenalty)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var cfg IssuerConfig
	if err := v.UnmarshalKey("issuer", &cfg); err != nil {
		return nil, err
	}
	if err := validateIssuerConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticIssuerConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IssuerConfig
		if err := v.UnmarshalKey("issuer", &updated); err != nil {
			log.Printf("[invoicing-config] reload failed: %v", err)
			return
		}
		if err := validateIssuerConfig(updated); err != nil {
			log.Printf("[invoicing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[invoicing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *IssuerConfigHolder) Get() IssuerConfig {
	return h.current.Load().(IssuerConfig)
}

func validateIssuerConfig(cfg IssuerConfig) error {
	if strings.TrimSpace(cfg.CompanyName) == "" {
		return errors.New("issuer.company_name cannot be empty")
	}
	return nil
}
