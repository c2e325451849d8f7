package config

import "os"

// Config holds runtime settings, all sourced from the environment.
type Config struct {
	Port         string
	MongoURI     string
	MongoDB      string
	RedisAddr    string
	JWTSecret    string
	HostUsername string
	HostPassword string
}

// Load reads configuration from environment variables with local
// development defaults.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:      getEnv("MONGO_DB", "pollgen"),
		RedisAddr:    stripRedisScheme(getEnv("REDIS_URI", "localhost:6379")),
		JWTSecret:    getEnv("JWT_SECRET", "dev-secret-change-me"),
		HostUsername: getEnv("HOST_USERNAME", "host"),
		HostPassword: getEnv("HOST_PASSWORD", "host"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func stripRedisScheme(addr string) string {
	const scheme = "redis://"
	if len(addr) > len(scheme) && addr[:len(scheme)] == scheme {
		return addr[len(scheme):]
	}
	return addr
}
