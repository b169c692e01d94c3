package config

import "os"

// Config carries the process configuration, loaded from environment
// variables with development defaults.
type Config struct {
	MongoURI  string
	RedisAddr string
	Port      string
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017"),
		RedisAddr: getEnv("REDIS_URI", "localhost:6379"),
		Port:      getEnv("PORT", "8080"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
