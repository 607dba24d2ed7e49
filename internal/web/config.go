package web

import "os"

// Config is the environment driven configuration of the web server
type Config struct {
	Addr      string
	StaticDir string
	LogLevel  string
}

// LoadConfig reads the server configuration from the environment. Callers
// load any .env file first.
func LoadConfig() Config {
	return Config{
		Addr:      getEnv("VESSEL_WEB_ADDR", ":8080"),
		StaticDir: getEnv("VESSEL_STATIC_DIR", "static"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}
