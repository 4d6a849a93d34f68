package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	RedisHost     string
	RedisPassword string

	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaUsername string
	ScyllaPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	JWTSecret     string
	SessionSecret string

	RazorpayKeyID       string
	RazorpayKeySecret   string
	StripeSecretKey     string
	StripeWebhookSecret string

	Currency              string
	FreeShippingThreshold float64
	ShippingFlatFee       float64
	PendingOrderTTL       time.Duration
	PendingSweepInterval  time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	StoreUPIVPA string
	StoreName   string
	BaseURL     string
	FrontendURL string
	CORSOrigins []string

	OAuth OAuthConfig
}

// Load charge .env (s'il existe) puis lit la configuration depuis l'environnement.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
	return FromEnv()
}

// FromEnv construit la configuration sans toucher au fichier .env.
func FromEnv() (*Config, error) {
	r := &reader{}
	cfg := &Config{
		Port: r.str("PORT", "8080"),

		MongoURI: r.str("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  r.str("MONGO_DB", "vastra"),

		RedisHost:     r.str("REDIS_HOST", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ScyllaHosts:    r.list("SCYLLA_HOSTS"),
		ScyllaKeyspace: r.str("SCYLLA_KEYSPACE", "vastra"),
		ScyllaUsername: os.Getenv("SCYLLA_USERNAME"),
		ScyllaPassword: os.Getenv("SCYLLA_PASSWORD"),

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),

		MinioEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    r.str("MINIO_BUCKET", "vastra-images"),
		MinioUseSSL:    r.boolean("MINIO_USE_SSL", false),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		SessionSecret: os.Getenv("SESSION_SECRET"),

		RazorpayKeyID:       os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:   os.Getenv("RAZORPAY_KEY_SECRET"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		Currency:              strings.ToUpper(r.str("CURRENCY", "INR")),
		FreeShippingThreshold: r.float("FREE_SHIPPING_THRESHOLD", 999),
		ShippingFlatFee:       r.float("SHIPPING_FLAT_FEE", 79),
		PendingOrderTTL:       r.duration("PENDING_ORDER_TTL", 24*time.Hour),
		PendingSweepInterval:  r.duration("PENDING_SWEEP_INTERVAL", 10*time.Minute),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     r.integer("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     r.str("MAIL_FROM", "noreply@vastra.in"),

		StoreUPIVPA: os.Getenv("STORE_UPI_VPA"),
		StoreName:   r.str("STORE_NAME", "Vastra"),
		BaseURL:     r.str("BASE_URL", "http://localhost:8080"),
		FrontendURL: r.str("FRONTEND_URL", "http://localhost:3000"),
		CORSOrigins: r.list("CORS_ORIGINS"),
	}
	cfg.OAuth = loadOAuth(cfg.BaseURL)

	if cfg.JWTSecret == "" {
		r.fail("JWT_SECRET", "required")
	}
	if cfg.ShippingFlatFee < 0 {
		r.fail("SHIPPING_FLAT_FEE", "must be >= 0")
	}
	if r.err != nil {
		return nil, r.err
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{cfg.FrontendURL}
	}
	return cfg, nil
}

// reader garde la première erreur de parsing rencontrée.
type reader struct {
	err error
}

func (r *reader) fail(key, msg string) {
	if r.err == nil {
		r.err = fmt.Errorf("config %s: %s", key, msg)
	}
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *reader) float(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid number %q", v))
		return def
	}
	return f
}

func (r *reader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid integer %q", v))
		return def
	}
	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid bool %q", v))
		return def
	}
	return b
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, fmt.Sprintf("invalid duration %q", v))
		return def
	}
	return d
}
