// Package credentials issues and persists the registry credentials used to
// pull service images.
package credentials

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"go.uber.org/zap"
)

// FileName is the credentials file kept in the managed root.
const FileName = ".credentials"

// ServerAddress is attached to every prompted credential set.
const ServerAddress = "https://index.docker.io/v1"

// ErrNotFound is returned by a Store when no credentials are persisted.
var ErrNotFound = errors.New("credentials not found")

// Answers is the credential set serialized into the auth token.
type Answers struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	ServerAddress string `json:"serveraddress"`
}

// Prompter asks the user for registry credentials.
type Prompter interface {
	Prompt() (Answers, error)
}

// Store reads and writes the opaque encoded token.
type Store interface {
	Read(path string) (string, error)
	Write(path, token string) error
}

// FileStore keeps the token in a plain file.
type FileStore struct{}

// Read implements Store. Any failure to read is reported as ErrNotFound.
func (FileStore) Read(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return string(data), nil
}

// Write implements Store.
func (FileStore) Write(path, token string) error {
	if err := os.WriteFile(path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// FormPrompter prompts on the terminal.
type FormPrompter struct{}

// Prompt implements Prompter.
func (FormPrompter) Prompt() (Answers, error) {
	var a Answers
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Docker Username").
				Value(&a.Username),
			huh.NewInput().
				Title("Docker Email").
				Value(&a.Email),
			huh.NewInput().
				Title("Docker Password").
				EchoMode(huh.EchoModePassword).
				Value(&a.Password),
		),
	)
	if err := form.Run(); err != nil {
		return Answers{}, fmt.Errorf("failed to prompt for credentials: %w", err)
	}
	return a, nil
}

// Broker returns the persisted auth token, prompting once when none exists.
type Broker struct {
	Store    Store
	Prompter Prompter
	Logger   *zap.Logger
}

// NewBroker returns a Broker backed by the credentials file and a terminal
// prompt.
func NewBroker(logger *zap.Logger) *Broker {
	return &Broker{Store: FileStore{}, Prompter: FormPrompter{}, Logger: logger}
}

// Get returns the auth token stored under rootDir. When it cannot be read
// the user is prompted and the encoded answers are persisted.
func (b *Broker) Get(rootDir string) (string, error) {
	path := filepath.Join(rootDir, FileName)
	token, err := b.Store.Read(path)
	if err == nil {
		return token, nil
	}
	b.logger().Debug("prompting for registry credentials", zap.String("path", path), zap.Error(err))

	answers, err := b.Prompter.Prompt()
	if err != nil {
		return "", err
	}
	answers.ServerAddress = ServerAddress

	token, err = Encode(answers)
	if err != nil {
		return "", err
	}
	if err := b.Store.Write(path, token); err != nil {
		return "", err
	}
	return token, nil
}

func (b *Broker) logger() *zap.Logger {
	if b.Logger == nil {
		return zap.NewNop()
	}
	return b.Logger
}

// Encode serializes answers into the base64 form the engine accepts as
// registry auth.
func Encode(a Answers) (string, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode credentials: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode reverses Encode.
func Decode(token string) (Answers, error) {
	var a Answers
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return a, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return a, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return a, nil
}
