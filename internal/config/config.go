package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// EscalationCron is the schedule for the escalation scanner.
	EscalationCron string

	// DirectoryDriver/DirectoryDSN point at the external HR directory used
	// to resolve managers and department heads. Empty DSN disables it and
	// resolution falls back to the local user collection.
	DirectoryDriver string
	DirectoryDSN    string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", "secret"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:          getEnv("DB_NAME", "go-approvals"),
		SkipAuth:        getEnv("SKIP_AUTH", "false") == "true",
		Environment:     getEnv("ENVIRONMENT", "development"),
		AppId:           getEnv("APP_ID", "go-approvals"),
		EscalationCron:  getEnv("ESCALATION_CRON", "@every 1m"),
		DirectoryDriver: getEnv("DIRECTORY_DRIVER", "postgres"),
		DirectoryDSN:    getEnv("DIRECTORY_DSN", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
