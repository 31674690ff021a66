package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all environment-sourced settings. Load builds one at startup
// and it is passed by value to the components that need it; there is no
// package-level instance.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	Host   string
	Port   string
	Reload bool

	// LLMProvider selects the gateway backend ("groq" or "gemini"). An
	// empty credential for the selected provider puts the gateway in stub
	// mode rather than failing startup.
	LLMProvider  string
	GroqAPIKey   string
	GeminiAPIKey string

	DataDir     string
	DatabaseURL string

	// VectorStorePath is reserved for a future retrieval layer. Nothing
	// reads it yet.
	VectorStorePath string
}

func Load() Config {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dataDir := getEnv("DATA_DIR", "data")

	return Config{
		AppName:         getEnv("APP_NAME", "AI Character Backend"),
		AppVersion:      getEnv("APP_VERSION", "0.1.0"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		Host:            getEnv("HOST", "0.0.0.0"),
		Port:            getEnv("PORT", "8000"),
		Reload:          getEnvAsBool("RELOAD", true),
		LLMProvider:     getEnv("LLM_PROVIDER", "groq"),
		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		DataDir:         dataDir,
		DatabaseURL:     getEnv("DATABASE_URL", filepath.Join(dataDir, "users.db")),
		VectorStorePath: getEnv("VECTOR_STORE_PATH", filepath.Join(dataDir, "vectorstore")),
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
