package logger

import (
	"os"
	"strings"
)

func InitFromEnv() {
	Init(Config{
		Level:   getenvDefault("LOG_LEVEL", "info"),
		Format:  getenvDefault("LOG_FORMAT", "json"),
		Service: os.Getenv("LOG_SERVICE"),
		Env:     getenvDefault("LOG_ENV", os.Getenv("ENV")),
		Output:  getenvDefault("LOG_OUTPUT", "stdout"),
	})
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
