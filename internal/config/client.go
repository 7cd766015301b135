package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Client holds the settings of the todo command-line client.
type Client struct {
	APIURL      string
	SessionFile string
	LogLevel    string
}

// LoadClient reads .env (if any) and the process environment. An empty
// SessionFile means the default location under the user config dir.
func LoadClient() Client {
	_ = godotenv.Load()
	return ClientFromEnv()
}

func ClientFromEnv() Client {
	return Client{
		APIURL:      getenv("TODO_API_URL", "http://localhost:8080"),
		SessionFile: os.Getenv("TODO_SESSION_FILE"),
		LogLevel:    getenv("LOG_LEVEL", "warn"),
	}
}
