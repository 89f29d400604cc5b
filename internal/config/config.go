package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/orderview/internal/service/pricing"
	"github.com/corray333/backend-labs/orderview/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

func MustInit() {
	// The .env file is optional; in containers the variables come from the environment.
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}
	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/orderview")
	viper.AddConfigPath(".")
	// Without a config file the defaults apply; a malformed one is fatal.
	var notFound viper.ConfigFileNotFoundError
	if err := viper.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

func SetupLogger() {
	handler := logger.NewHandler(&slog.HandlerOptions{
		Level: logger.ParseLevel(viper.GetString("log.level")),
	})
	log := slog.New(handler).With("service", "orderview")
	slog.SetDefault(log)
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.grpc.port", "9090")
	viper.SetDefault("pricing.coupon_codes", []string{pricing.DefaultCouponCode})
	viper.SetDefault("pricing.discount_divisor", "1.66")
	viper.SetDefault("pricing.payment_conversion_rate", "73.6")
	viper.SetDefault("dispatcher.command_timeout_seconds", 15)
	viper.SetDefault("redis.ttl_seconds", 30)
	viper.SetDefault("rabbitmq.exchange", "orders")
	viper.SetDefault("rabbitmq.outbox.max_retries", 5)
	viper.SetDefault("postgres.migrations_path", "./migrations")
}

// PricingConfig reads the pricing constants.
func PricingConfig() (pricing.Config, error) {
	divisor, err := decimal.NewFromString(viper.GetString("pricing.discount_divisor"))
	if err != nil {
		return pricing.Config{}, fmt.Errorf("failed to parse pricing.discount_divisor: %w", err)
	}
	rate, err := decimal.NewFromString(viper.GetString("pricing.payment_conversion_rate"))
	if err != nil {
		return pricing.Config{}, fmt.Errorf("failed to parse pricing.payment_conversion_rate: %w", err)
	}

	return pricing.Config{
		CouponCodes:     viper.GetStringSlice("pricing.coupon_codes"),
		DiscountDivisor: divisor,
		ConversionRate:  rate,
	}, nil
}

// CommandTimeout bounds every call the dispatcher makes to the order store.
func CommandTimeout() time.Duration {
	return time.Duration(viper.GetInt("dispatcher.command_timeout_seconds")) * time.Second
}

// CacheTTL is how long a loaded order may be served from Redis.
func CacheTTL() time.Duration {
	return time.Duration(viper.GetInt("redis.ttl_seconds")) * time.Second
}
