package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/nl2sql"
	"github.com/vitebski/mysql-nl-query/pkg/models"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests
	return logger
}

func TestSetupLogging(t *testing.T) {
	t.Setenv("NLQ_LOG_LEVEL", "")

	// Test with default log level
	logger := SetupLogging("")
	if logger == nil {
		t.Fatal("Expected logger to be created, got nil")
	}
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected default log level to be info, got %s", logger.Level)
	}

	logger = SetupLogging("debug")
	if logger.Level != logrus.DebugLevel {
		t.Errorf("Expected log level to be debug, got %s", logger.Level)
	}

	logger = SetupLogging("warn")
	if logger.Level != logrus.WarnLevel {
		t.Errorf("Expected log level to be warn, got %s", logger.Level)
	}

	// Test with invalid log level (should default to info)
	logger = SetupLogging("invalid")
	if logger.Level != logrus.InfoLevel {
		t.Errorf("Expected log level to be info for invalid input, got %s", logger.Level)
	}

	t.Setenv("NLQ_LOG_LEVEL", "error")
	logger = SetupLogging("")
	if logger.Level != logrus.ErrorLevel {
		t.Errorf("Expected log level from NLQ_LOG_LEVEL to be error, got %s", logger.Level)
	}
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "42")
	if value := GetEnvInt("TEST_ENV_INT", 10); value != 42 {
		t.Errorf("Expected value to be 42, got %d", value)
	}

	t.Setenv("TEST_ENV_INT", "")
	if value := GetEnvInt("TEST_ENV_INT", 10); value != 10 {
		t.Errorf("Expected value to be 10 (default), got %d", value)
	}

	t.Setenv("TEST_ENV_INT", "not-an-int")
	if value := GetEnvInt("TEST_ENV_INT", 10); value != 10 {
		t.Errorf("Expected value to be 10 (default) for invalid input, got %d", value)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_ENV_DURATION", "90")
	if d := GetEnvDuration("TEST_ENV_DURATION", time.Second); d != 90*time.Second {
		t.Errorf("Expected 90s, got %s", d)
	}

	t.Setenv("TEST_ENV_DURATION", "2m")
	if d := GetEnvDuration("TEST_ENV_DURATION", time.Second); d != 2*time.Minute {
		t.Errorf("Expected 2m, got %s", d)
	}

	t.Setenv("TEST_ENV_DURATION", "soon")
	if d := GetEnvDuration("TEST_ENV_DURATION", time.Second); d != time.Second {
		t.Errorf("Expected default for invalid input, got %s", d)
	}
}

func TestValidateConnectionParams(t *testing.T) {
	logger := createTestLogger()

	if !ValidateConnectionParams("localhost", "user", "password", "3306", logger) {
		t.Error("Expected validation to pass with valid parameters")
	}
	if ValidateConnectionParams("", "user", "password", "3306", logger) {
		t.Error("Expected validation to fail with missing host")
	}
	if ValidateConnectionParams("localhost", "", "password", "3306", logger) {
		t.Error("Expected validation to fail with missing user")
	}
	if ValidateConnectionParams("localhost", "user", "password", "not-a-port", logger) {
		t.Error("Expected validation to fail with invalid port")
	}
	// Empty password is allowed
	if !ValidateConnectionParams("localhost", "user", "", "3306", logger) {
		t.Error("Expected validation to pass with empty password")
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	logger := createTestLogger()
	t.Setenv("MYSQL_HOST", "")
	t.Setenv("MYSQL_USER", "")

	envFile := filepath.Join(t.TempDir(), ".env")
	if LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected missing connection variables to be reported")
	}

	content := "MYSQL_HOST=db.internal\nMYSQL_USER=reporter\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	// godotenv does not override variables that are already set, even when empty
	os.Unsetenv("MYSQL_HOST")
	os.Unsetenv("MYSQL_USER")

	if !LoadEnvironmentVariables(envFile, logger) {
		t.Error("Expected connection variables to be loaded from the env file")
	}
	if host := os.Getenv("MYSQL_HOST"); host != "db.internal" {
		t.Errorf("Expected MYSQL_HOST=db.internal, got %s", host)
	}
}

func TestLoadModelSettings(t *testing.T) {
	logger := createTestLogger()
	t.Setenv("NLQ_MODEL_PROVIDER", "")
	t.Setenv("NLQ_MODEL", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434")
	t.Setenv("NLQ_MODEL_TIMEOUT", "")

	cfg := LoadModelSettings("", "", nil, logger)
	if cfg.Provider != nl2sql.ProviderGemini {
		t.Errorf("Expected default provider gemini, got %s", cfg.Provider)
	}
	if cfg.APIKey != "" {
		t.Errorf("Expected no API key, got %s", cfg.APIKey)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("Expected 60s timeout, got %s", cfg.Timeout)
	}
	if cfg.BaseURL != "" {
		t.Errorf("Expected no base URL for gemini, got %s", cfg.BaseURL)
	}

	store := NewKeyringStore(keyring.NewArrayKeyring(nil))
	if err := store.Set("OPENAI_API_KEY", "from-keyring"); err != nil {
		t.Fatalf("store.Set() error = %v", err)
	}

	t.Setenv("NLQ_MODEL_PROVIDER", "OpenAI")
	cfg = LoadModelSettings("", "gpt-4o", store, logger)
	if cfg.Provider != nl2sql.ProviderOpenAI || cfg.Model != "gpt-4o" {
		t.Errorf("Expected openai/gpt-4o, got %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.APIKey != "from-keyring" {
		t.Errorf("Expected API key from keyring, got %q", cfg.APIKey)
	}
	if cfg.BaseURL != "http://localhost:11434" {
		t.Errorf("Expected base URL from environment, got %s", cfg.BaseURL)
	}

	t.Setenv("OPENAI_API_KEY", "from-env")
	cfg = LoadModelSettings("openai", "", store, logger)
	if cfg.APIKey != "from-env" {
		t.Errorf("Expected environment to win over keyring, got %q", cfg.APIKey)
	}

	if err := store.Delete("OPENAI_API_KEY"); err != nil {
		t.Errorf("store.Delete() error = %v", err)
	}
	if _, err := store.Get("OPENAI_API_KEY"); err == nil {
		t.Error("Expected deleted key to be gone")
	}
}

func TestRenderResult(t *testing.T) {
	out, err := RenderResult(models.Rows([]string{"name"}, nil))
	if err != nil || out != "no rows" {
		t.Errorf("Expected \"no rows\", got %q (%v)", out, err)
	}

	out, _ = RenderResult(models.Ack(3))
	if !strings.Contains(out, "3 rows affected") {
		t.Errorf("Expected rows affected in ack, got %q", out)
	}

	out, _ = RenderResult(models.Failure("Table 'hr.x' doesn't exist"))
	if !strings.Contains(out, "doesn't exist") {
		t.Errorf("Expected failure message, got %q", out)
	}

	out, err = RenderResult(models.Rows([]string{"id", "name"}, [][]interface{}{{int64(1), "John Doe"}, {int64(2), nil}}))
	if err != nil {
		t.Fatalf("RenderResult() error = %v", err)
	}
	for _, want := range []string{"id", "name", "John Doe", NullText} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected rendered rows to contain %q, got %q", want, out)
		}
	}
}

func TestRenderSchema(t *testing.T) {
	def := "0"
	out, err := RenderSchema(models.SchemaDescriptor{
		{Name: "id", Type: "int", Null: "NO", Key: "PRI", Extra: "auto_increment"},
		{Name: "stock", Type: "int", Null: "YES", Default: &def},
	})
	if err != nil {
		t.Fatalf("RenderSchema() error = %v", err)
	}
	for _, want := range []string{"Field", "auto_increment", "stock", NullText} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected schema table to contain %q, got %q", want, out)
		}
	}

	if out, _ := RenderSchema(nil); out != "" {
		t.Errorf("Expected empty output for empty schema, got %q", out)
	}
}
