package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

const (
	defaultListenAddr         = ":8080"
	defaultLogLevel           = "INFO"
	defaultRateLimitPerMinute = 30
	defaultDispatchTimeoutSec = 30
)

// Config holds everything the relay needs at runtime. It is loaded once in
// main and injected; nothing in the request pipeline reads the environment.
type Config struct {
	ListenAddr string
	LogLevel   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string

	// FromEmail defaults to SMTPUser when SMTP_FROM is not set.
	FromEmail string
	ToEmail   string

	RateLimitPerMinute int
	DispatchTimeoutSec int
	AllowedOrigins     []string
}

// LoadConfig retrieves all required environment variables concurrently.
func LoadConfig() (Config, error) {
	var configuration Config

	var waitGroup sync.WaitGroup

	taskFunctions := []func() error{
		loadEnvString("SMTP_HOST", &configuration.SMTPHost),
		loadEnvInt("SMTP_PORT", &configuration.SMTPPort),
		loadEnvString("SMTP_USER", &configuration.SMTPUser),
		loadEnvString("SMTP_PASS", &configuration.SMTPPass),
		loadEnvString("MAIL_TO", &configuration.ToEmail),
	}

	errorChannel := make(chan error, len(taskFunctions))
	for _, taskFunction := range taskFunctions {
		waitGroup.Add(1)
		go func(task func() error) {
			defer waitGroup.Done()
			if taskError := task(); taskError != nil {
				errorChannel <- taskError
			}
		}(taskFunction)
	}

	waitGroup.Wait()
	close(errorChannel)

	var errorMessages []string
	for errorValue := range errorChannel {
		errorMessages = append(errorMessages, errorValue.Error())
	}
	if len(errorMessages) > 0 {
		return Config{}, fmt.Errorf("configuration errors: %s", strings.Join(errorMessages, ", "))
	}

	configuration.FromEmail = strings.TrimSpace(os.Getenv("SMTP_FROM"))
	if configuration.FromEmail == "" {
		configuration.FromEmail = configuration.SMTPUser
	}

	configuration.ListenAddr = envStringOr("LISTEN_ADDR", defaultListenAddr)
	configuration.LogLevel = envStringOr("LOG_LEVEL", defaultLogLevel)
	configuration.RateLimitPerMinute = envIntOr("RATE_LIMIT_PER_MIN", defaultRateLimitPerMinute)
	configuration.DispatchTimeoutSec = envIntOr("DISPATCH_TIMEOUT_SEC", defaultDispatchTimeoutSec)
	configuration.AllowedOrigins = parseCSV(os.Getenv("HTTP_ALLOWED_ORIGINS"))

	return configuration, nil
}

func loadEnvString(environmentKey string, destination *string) func() error {
	const missingEnvFormat = "missing environment variable %s"
	return func() error {
		environmentValue := strings.TrimSpace(os.Getenv(environmentKey))
		if environmentValue == "" {
			return fmt.Errorf(missingEnvFormat, environmentKey)
		}
		*destination = environmentValue
		return nil
	}
}

func loadEnvInt(environmentKey string, destination *int) func() error {
	const missingEnvFormat = "missing environment variable %s"
	const invalidIntFormat = "invalid integer for %s: %v"
	return func() error {
		environmentValue := os.Getenv(environmentKey)
		if environmentValue == "" {
			return fmt.Errorf(missingEnvFormat, environmentKey)
		}
		parsedInteger, conversionError := strconv.Atoi(environmentValue)
		if conversionError != nil {
			return fmt.Errorf(invalidIntFormat, environmentKey, conversionError)
		}
		*destination = parsedInteger
		return nil
	}
}

func envStringOr(environmentKey string, fallback string) string {
	environmentValue := strings.TrimSpace(os.Getenv(environmentKey))
	if environmentValue == "" {
		return fallback
	}
	return environmentValue
}

func envIntOr(environmentKey string, fallback int) int {
	environmentValue := os.Getenv(environmentKey)
	if environmentValue == "" {
		return fallback
	}
	parsedInteger, conversionError := strconv.Atoi(environmentValue)
	if conversionError != nil {
		return fallback
	}
	return parsedInteger
}

func parseCSV(value string) []string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	rawParts := strings.Split(trimmed, ",")
	var normalized []string
	for _, part := range rawParts {
		candidate := strings.TrimSpace(part)
		if candidate == "" {
			continue
		}
		normalized = append(normalized, candidate)
	}
	return normalized
}
