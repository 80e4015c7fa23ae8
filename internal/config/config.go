// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds all runtime configuration values.  Each field
// corresponds to an environment variable.  Required variables are
// enforced by must(); optional ones carry defaults.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	JWTSecret  string // secret used to sign JWTs
	AccessTTL  int    // access token time-to-live in minutes
	BcryptCost int    // bcrypt cost for password hashing

	HoldTTLMin int // minutes an unpaid online booking keeps its seats

	RazorpayBaseURL   string // gateway API base URL
	RazorpayKeyID     string // gateway key id (also served to clients)
	RazorpayKeySecret string // gateway secret for auth and signature checks
	Currency          string // ISO currency code for gateway orders

	RabbitURL string // AMQP broker URL; empty disables eventing

	SMTPHost string // SMTP relay host; empty disables email
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

// Load reads configuration from the environment.  Missing required
// variables abort startup with a fatal log message.
func Load() Config {
	return Config{
		Env:        must("APP_ENV"),
		Port:       must("APP_PORT"),
		DBUser:     must("DB_USER"),
		DBPass:     os.Getenv("DB_PASS"),
		DBHost:     must("DB_HOST"),
		DBPort:     must("DB_PORT"),
		DBName:     must("DB_NAME"),
		JWTSecret:  must("JWT_SECRET"),
		AccessTTL:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost: mustInt("BCRYPT_COST"),

		HoldTTLMin: envInt("BOOKING_HOLD_TTL_MIN", 10),

		RazorpayBaseURL:   envStr("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		RazorpayKeyID:     must("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: must("RAZORPAY_KEY_SECRET"),
		Currency:          envStr("PAYMENT_CURRENCY", "INR"),

		RabbitURL: envStr("RABBITMQ_URL", ""),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: envStr("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: envStr("SMTP_FROM", "noreply@busbooking.local"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
