package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPricingConfigDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	cfg, err := PricingConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"firstPARK"}, cfg.CouponCodes)
	assert.Equal(t, "1.66", cfg.DiscountDivisor.String())
	assert.Equal(t, "73.6", cfg.ConversionRate.String())
	assert.Equal(t, 15*time.Second, CommandTimeout())
	assert.Equal(t, 30*time.Second, CacheTTL())
}

func TestPricingConfigRejectsGarbage(t *testing.T) {
	viper.Reset()
	setDefaults()
	viper.Set("pricing.payment_conversion_rate", "seventy")

	_, err := PricingConfig()
	assert.ErrorContains(t, err, "pricing.payment_conversion_rate")
}

func TestMustInitWithoutConfigFile(t *testing.T) {
	viper.Reset()
	chdir(t, t.TempDir())

	assert.NotPanics(t, MustInit)
	assert.Equal(t, "8080", viper.GetString("server.http.port"))
	assert.Equal(t, "orders", viper.GetString("rabbitmq.exchange"))
}

func TestMustInitRejectsMalformedConfig(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))
	chdir(t, dir)

	assert.Panics(t, MustInit)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir on older toolchains).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
