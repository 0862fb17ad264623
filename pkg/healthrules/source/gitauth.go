package source

import (
	"fmt"
	"os"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// GitAuth selects how the Git source authenticates to its remote.
type GitAuth struct {
	// Type is "token", "ssh" or "none" (empty means none).
	Type             string
	Token            string
	SSHKeyPath       string
	SSHKeyPassphrase string
}

// AuthProvider produces transport credentials for clone and pull.
type AuthProvider interface {
	// GetAuth returns the transport auth method, or nil for anonymous access.
	GetAuth() (transport.AuthMethod, error)

	// Type returns the auth type for logging.
	Type() string
}

// TokenAuth authenticates over HTTPS with a personal access token.
type TokenAuth struct {
	token string
}

func NewTokenAuth(token string) *TokenAuth {
	return &TokenAuth{token: token}
}

// GetAuth returns HTTP basic auth with the token as password. Hosts ignore
// the username for token auth.
func (a *TokenAuth) GetAuth() (transport.AuthMethod, error) {
	if a.token == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}
	return &http.BasicAuth{Username: "git", Password: a.token}, nil
}

func (a *TokenAuth) Type() string { return "token" }

// SSHAuth authenticates with a private key file.
type SSHAuth struct {
	keyPath    string
	passphrase string
}

// NewSSHAuth creates an SSH key provider. passphrase is empty for
// unencrypted keys.
func NewSSHAuth(keyPath, passphrase string) *SSHAuth {
	return &SSHAuth{keyPath: keyPath, passphrase: passphrase}
}

// GetAuth loads the key. The key file must not be readable by group or
// others.
func (a *SSHAuth) GetAuth() (transport.AuthMethod, error) {
	if a.keyPath == "" {
		return nil, fmt.Errorf("ssh key path cannot be empty")
	}

	info, err := os.Stat(a.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access SSH key file: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("SSH key file permissions too open (%o), should be 0600", mode)
	}

	auth, err := ssh.NewPublicKeysFromFile("git", a.keyPath, a.passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to load SSH key: %w", err)
	}
	return auth, nil
}

func (a *SSHAuth) Type() string { return "ssh" }

// NoAuth is used for public and local repositories.
type NoAuth struct{}

func (NoAuth) GetAuth() (transport.AuthMethod, error) { return nil, nil }

func (NoAuth) Type() string { return "none" }

// NewAuthProvider builds the provider named by cfg.Type.
func NewAuthProvider(cfg GitAuth) (AuthProvider, error) {
	switch cfg.Type {
	case "token":
		if cfg.Token == "" {
			return nil, fmt.Errorf("token auth requires non-empty token")
		}
		return NewTokenAuth(cfg.Token), nil
	case "ssh":
		if cfg.SSHKeyPath == "" {
			return nil, fmt.Errorf("ssh auth requires ssh_key_path")
		}
		return NewSSHAuth(cfg.SSHKeyPath, cfg.SSHKeyPassphrase), nil
	case "none", "":
		return NoAuth{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", cfg.Type)
	}
}
