package env

import (
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"
)

// Env holds the key/value pairs loaded from the .env file. Keys absent from
// the file fall back to the process environment, so containerized deployments
// can skip the file entirely and pass everything through the environment.
var Env map[string]string

func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// GetEnvInt reads an integer key. Missing or unparseable values fall back
// to def.
func GetEnvInt(key string, def int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return def
	}
	return v
}

// GetEnvInt64 reads a 64-bit integer key. Missing or unparseable values fall
// back to def.
func GetEnvInt64(key string, def int64) int64 {
	v, err := strconv.ParseInt(GetEnv(key, ""), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// SetupEnvFile loads the first .env file it finds. Not finding one is fine:
// GetEnv then reads the process environment only.
func SetupEnvFile() {
	envFiles := []string{
		".env",
		"../../.env", // from cmd/* during local development
	}

	var err error
	for _, envFile := range envFiles {
		Env, err = godotenv.Read(envFile)
		if err == nil {
			return
		}
	}

	log.Warn("[Env] No .env file found, using process environment only")
}

func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
