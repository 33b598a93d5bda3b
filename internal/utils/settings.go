package utils

import (
	"os"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/mysql-nl-query/internal/nl2sql"
)

// KeyringService is the OS credential store namespace for API keys
const KeyringService = "mysql-nl-query"

// SecretStore keeps model API keys between runs
type SecretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// KeyringStore is a SecretStore backed by the OS keychain
type KeyringStore struct {
	ring keyring.Keyring
}

// OpenKeyring opens the platform credential store. The encrypted file backend is
// left out because it prompts for a passphrase on every run.
func OpenKeyring() (*KeyringStore, error) {
	var backends []keyring.BackendType
	for _, backend := range keyring.AvailableBackends() {
		if backend != keyring.FileBackend {
			backends = append(backends, backend)
		}
	}
	if len(backends) == 0 {
		return nil, errors.New("no OS credential store available")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName:     KeyringService,
		AllowedBackends: backends,
		PassPrefix:      KeyringService,
		WinCredPrefix:   KeyringService,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open keyring")
	}
	return NewKeyringStore(ring), nil
}

// NewKeyringStore wraps an opened keyring
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

func (k *KeyringStore) Get(key string) (string, error) {
	item, err := k.ring.Get(key)
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

func (k *KeyringStore) Set(key, value string) error {
	return k.ring.Set(keyring.Item{Key: key, Data: []byte(value), Label: KeyringService + " " + key})
}

func (k *KeyringStore) Delete(key string) error {
	return k.ring.Remove(key)
}

// APIKeyName returns the environment variable, and keyring entry, holding the key for provider
func APIKeyName(provider string) string {
	if strings.EqualFold(provider, nl2sql.ProviderOpenAI) {
		return "OPENAI_API_KEY"
	}
	return "GOOGLE_API_KEY"
}

// LoadModelSettings resolves the model configuration: flags first, then the
// environment, then the keyring for the API key. store may be nil.
func LoadModelSettings(provider, model string, store SecretStore, logger *logrus.Logger) nl2sql.Config {
	if provider == "" {
		provider = os.Getenv("NLQ_MODEL_PROVIDER")
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		provider = nl2sql.ProviderGemini
	}
	if model == "" {
		model = os.Getenv("NLQ_MODEL")
	}

	cfg := nl2sql.Config{
		Provider: provider,
		Model:    model,
		Timeout:  GetEnvDuration("NLQ_MODEL_TIMEOUT", 60*time.Second),
	}
	if provider == nl2sql.ProviderOpenAI {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	keyName := APIKeyName(provider)
	cfg.APIKey = os.Getenv(keyName)
	if cfg.APIKey == "" && store != nil {
		key, err := store.Get(keyName)
		if err != nil {
			logger.Debugf("No %s in keyring: %v", keyName, err)
		} else {
			cfg.APIKey = key
			logger.Debugf("Using %s from keyring", keyName)
		}
	}
	return cfg
}
