package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Config struct {
	DataDir           string
	ServerAddress     string
	AuditDBPath       string
	EnergyRate        decimal.Decimal
	SecondFloorOffset float64
	FirstMonth        string
	LastMonth         string
	PayeeName         string
	PayeeUPIID        string
	Currency          string
	CORSOrigins       []string
}

func Load() *Config {
	return &Config{
		DataDir:           getEnv("DATA_DIR", "./data"),
		ServerAddress:     getEnv("SERVER_ADDRESS", ":8081"),
		AuditDBPath:       getEnv("AUDIT_DB_PATH", "./rent-ledger.db"),
		EnergyRate:        getEnvDecimal("ENERGY_RATE", decimal.NewFromInt(8)),
		SecondFloorOffset: getEnvFloat("B_SECOND_FLOOR_OFFSET", 200),
		FirstMonth:        getEnv("CATALOG_FIRST_MONTH", "August 24"),
		LastMonth:         getEnv("CATALOG_LAST_MONTH", "December 27"),
		PayeeName:         getEnv("PAYEE_NAME", ""),
		PayeeUPIID:        getEnv("PAYEE_UPI_ID", ""),
		Currency:          getEnv("CURRENCY", "INR"),
		CORSOrigins:       getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:4173"}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 {
		log.Printf("[CONFIG] Ignoring invalid %s=%q, using %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		log.Printf("[CONFIG] Ignoring invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
