package config

import (
	"fmt"
	"os"

	"github.com/treehouse/treehouse/internal/cryptoutil"
)

// EncryptConfigFile encrypts a config file with the provided key.
// The output keeps the input's format; name it <file>.enc so Load can detect it.
func EncryptConfigFile(inputPath, outputPath, key string) error {
	plain, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return err
	}
	ciphertext, err := cryptoutil.EncryptConfig(plain, parsed)
	if err != nil {
		return fmt.Errorf("encrypt config: %w", err)
	}
	return os.WriteFile(outputPath, ciphertext, 0o600)
}
