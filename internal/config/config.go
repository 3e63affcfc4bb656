package config // package config loads application configuration from environment variables

import (
    "log"     // log reports configuration errors and halts execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "strings" // strings splits list-valued variables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets (JWT signing key, Stripe key, object
// store credentials) are kept as plain strings and must never be logged.
type Config struct {
    Env            string   // application environment (e.g. "dev", "prod")
    Port           string   // HTTP port to listen on
    DBUser         string   // database username
    DBPass         string   // database password (optional)
    DBHost         string   // database host address
    DBPort         string   // database port number
    DBName         string   // database name
    JWTSecret      string   // secret used to sign JWTs
    AccessTTLMin   int      // access token time-to-live in minutes
    RefreshTTLDays int      // refresh token time-to-live in days
    BcryptCost     int      // bcrypt cost for password hashing
    StripeSecret   string   // Stripe secret API key for payment intents
    AllowedOrigins []string // origins allowed by the CORS middleware
    MediaEndpoint  string   // object store endpoint (host:port)
    MediaAccessKey string   // object store access key
    MediaSecretKey string   // object store secret key
    MediaBucket    string   // bucket holding film assets and thumbnails
    MediaUseSSL    bool     // whether to reach the object store over TLS
    MediaRegion    string   // optional object store region
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message, so a misconfigured
// process never reaches the listen loop.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        StripeSecret:   must("STRIPE_SECRET_KEY"),
        AllowedOrigins: splitList(must("CORS_ALLOWED_ORIGINS")),
        MediaEndpoint:  must("MEDIA_ENDPOINT"),
        MediaAccessKey: must("MEDIA_ACCESS_KEY"),
        MediaSecretKey: must("MEDIA_SECRET_KEY"),
        MediaBucket:    must("MEDIA_BUCKET"),
        MediaUseSSL:    envBool("MEDIA_USE_SSL", false),
        MediaRegion:    os.Getenv("MEDIA_REGION"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

// splitList parses a comma-separated variable into trimmed, non-empty parts.
func splitList(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
