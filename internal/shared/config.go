package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	MongoURI string
	MongoDB  string

	RedisAddr string
	RedisDB   int
	RedisPass string
	CacheTTL  time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	StripeBase string
	StripeKey  string

	MpesaBase        string
	MpesaKey         string
	MpesaSecret      string
	MpesaShortcode   string
	MpesaPasskey     string
	MpesaCallbackURL string

	CloudinaryBase   string
	CloudinaryCloud  string
	CloudinaryPreset string

	// How long a created payment attempt stays redeemable, and how the
	// status poll behaves while waiting for the user to approve the prompt.
	AttemptTTL        time.Duration
	StatusPollTries   int
	StatusPollBackoff time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),

		MongoURI: env("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  env("MONGO_DB", "bookstay"),

		RedisAddr: env("REDIS_ADDR", "localhost:6379"),
		RedisPass: env("REDIS_PASSWORD", ""),
		RedisDB:   atoi("REDIS_DB", 0),
		CacheTTL:  time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		JWTSecret: env("JWT_SECRET", ""),
		JWTTTL:    time.Duration(atoi("JWT_TTL_HOURS", 24)) * time.Hour,

		StripeBase: env("STRIPE_BASE_URL", "https://api.stripe.com"),
		StripeKey:  env("STRIPE_API_KEY", ""),

		MpesaBase:        env("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
		MpesaKey:         env("MPESA_CONSUMER_KEY", ""),
		MpesaSecret:      env("MPESA_CONSUMER_SECRET", ""),
		MpesaShortcode:   env("MPESA_SHORTCODE", ""),
		MpesaPasskey:     env("MPESA_PASSKEY", ""),
		MpesaCallbackURL: env("MPESA_CALLBACK_URL", ""),

		CloudinaryBase:   env("CLOUDINARY_BASE_URL", "https://api.cloudinary.com"),
		CloudinaryCloud:  env("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryPreset: env("CLOUDINARY_UPLOAD_PRESET", ""),

		AttemptTTL:        time.Duration(atoi("PAYMENT_ATTEMPT_TTL_SECONDS", 1800)) * time.Second,
		StatusPollTries:   atoi("STATUS_POLL_ATTEMPTS", 3),
		StatusPollBackoff: time.Duration(atoi("STATUS_POLL_BACKOFF_MS", 2000)) * time.Millisecond,
	}
	if c.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty")
	}
	if c.StripeKey == "" {
		log.Warn().Msg("STRIPE_API_KEY is empty")
	}
	if c.MpesaKey == "" || c.MpesaSecret == "" {
		log.Warn().Msg("M-Pesa consumer credentials are empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
