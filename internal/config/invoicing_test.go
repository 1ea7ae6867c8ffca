package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIssuerConfigOverlayKeepsDefaultsForBlankSettings(t *testing.T) {
	base := DefaultIssuerConfig()

	got := base.Overlay(map[string]string{
		"company_name": "Acme Formalités",
		"bank_iban":    "FR76 3000 6000 0112 3456 7890 189",
		"company_vat":  "   ",
	})

	assert.Equal(t, "Acme Formalités", got.CompanyName)
	assert.Equal(t, "FR76 3000 6000 0112 3456 7890 189", got.BankIBAN)
	assert.Equal(t, base.PaymentTerms, got.PaymentTerms)
	assert.Empty(t, got.VAT)
	assert.Equal(t, DefaultIssuerConfig().CompanyName, base.CompanyName, "overlay must not mutate the receiver")
}

func TestStaticIssuerConfigHolder(t *testing.T) {
	holder := NewStaticIssuerConfigHolder(IssuerConfig{CompanyName: "X"})
	assert.Equal(t, "X", holder.Get().CompanyName)
}

func TestValidateIssuerConfigRequiresName(t *testing.T) {
	assert.Error(t, validateIssuerConfig(IssuerConfig{}))
	assert.NoError(t, validateIssuerConfig(DefaultIssuerConfig()))
}
