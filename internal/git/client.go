package git

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	crssh "golang.org/x/crypto/ssh"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/crnow/pkg/shared/config"
	crnowerrors "github.com/scan-io-git/crnow/pkg/shared/errors"
	"github.com/scan-io-git/crnow/pkg/shared/files"
)

// Supported authentication types of the rules repository.
const (
	AuthNone     = "none"
	AuthHTTP     = "http"
	AuthSSHKey   = "ssh-key"
	AuthSSHAgent = "ssh-agent"
)

// Credentials holds secrets that are never read from the config file.
type Credentials struct {
	Username       string
	Token          string
	SSHKeyPassword string
}

// Client mirrors the rules repository into a local folder.
type Client struct {
	logger       hclog.Logger
	auth         transport.AuthMethod
	timeout      time.Duration
	rules        config.Rules
	globalConfig *config.Config
}

// Authenticator defines an interface for different authentication methods.
type Authenticator interface {
	SetupAuth(rules config.Rules, creds Credentials, logger hclog.Logger) (transport.AuthMethod, error)
	ValidateConfig(rules config.Rules, creds Credentials) error
}

// AnonymousAuthenticator is used for public repositories.
type AnonymousAuthenticator struct{}

// SSHKeyAuthenticator provides SSH key-based authentication.
type SSHKeyAuthenticator struct{}

// SSHAgentAuthenticator provides SSH agent-based authentication.
type SSHAgentAuthenticator struct{}

// HTTPAuthenticator provides HTTP basic authentication.
type HTTPAuthenticator struct{}

// SetupAuth returns no auth method.
func (a *AnonymousAuthenticator) SetupAuth(config.Rules, Credentials, hclog.Logger) (transport.AuthMethod, error) {
	return nil, nil
}

// ValidateConfig accepts any configuration.
func (a *AnonymousAuthenticator) ValidateConfig(config.Rules, Credentials) error {
	return nil
}

// SetupAuth configures SSH key authentication.
func (s *SSHKeyAuthenticator) SetupAuth(rules config.Rules, creds Credentials, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH key authentication")

	sshKeyPath, err := files.ExpandPath(rules.SSHKey)
	if err != nil {
		logger.Error("failed to expand SSH key path", "path", rules.SSHKey, "error", err)
		return nil, err
	}

	auth, err := ssh.NewPublicKeysFromFile("git", sshKeyPath, creds.SSHKeyPassword)
	if err != nil {
		logger.Error("failed to set up SSH key authentication", "error", err.Error())
		return nil, err
	}

	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(), // TODO: read known_hosts once rules_host_key lands in config
	}

	return auth, nil
}

// ValidateConfig validates the configuration for SSHKeyAuthenticator.
func (s *SSHKeyAuthenticator) ValidateConfig(rules config.Rules, _ Credentials) error {
	if rules.SSHKey == "" {
		return crnowerrors.NewValidationError("rules.ssh_key", "ssh key path is required for %q auth", AuthSSHKey)
	}
	return nil
}

// SetupAuth configures SSH agent authentication.
func (s *SSHAgentAuthenticator) SetupAuth(_ config.Rules, _ Credentials, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up SSH agent authentication")

	auth, err := ssh.NewSSHAgentAuth("git")
	if err != nil {
		logger.Error("failed to set up SSH agent authentication", "error", err)
		return nil, err
	}

	auth.HostKeyCallbackHelper = ssh.HostKeyCallbackHelper{
		HostKeyCallback: crssh.InsecureIgnoreHostKey(),
	}

	return auth, nil
}

// ValidateConfig validates the configuration for SSHAgentAuthenticator.
func (s *SSHAgentAuthenticator) ValidateConfig(config.Rules, Credentials) error {
	return nil
}

// SetupAuth configures HTTP basic authentication.
func (h *HTTPAuthenticator) SetupAuth(_ config.Rules, creds Credentials, logger hclog.Logger) (transport.AuthMethod, error) {
	logger.Debug("setting up HTTP authentication")

	return &http.BasicAuth{
		Username: config.SetThen(creds.Username, "git"),
		Password: creds.Token,
	}, nil
}

// ValidateConfig validates the configuration for HTTPAuthenticator.
func (h *HTTPAuthenticator) ValidateConfig(_ config.Rules, creds Credentials) error {
	if creds.Token == "" {
		return crnowerrors.NewValidationError("token", "token is required for %q auth", AuthHTTP)
	}
	return nil
}

// getAuthenticator returns the appropriate Authenticator based on the authentication type.
func getAuthenticator(authType string) (Authenticator, error) {
	switch authType {
	case "", AuthNone:
		return &AnonymousAuthenticator{}, nil
	case AuthSSHKey:
		return &SSHKeyAuthenticator{}, nil
	case AuthSSHAgent:
		return &SSHAgentAuthenticator{}, nil
	case AuthHTTP:
		return &HTTPAuthenticator{}, nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", authType)
	}
}

// New initializes a new Git Client for the rules repository described by rules.
func New(logger hclog.Logger, globalConfig *config.Config, rules config.Rules, creds Credentials) (*Client, error) {
	authenticator, err := getAuthenticator(rules.AuthType)
	if err != nil {
		logger.Error("unsupported authentication type", "error", err)
		return nil, fmt.Errorf("unsupported authentication type: %w", err)
	}

	if err := authenticator.ValidateConfig(rules, creds); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	auth, err := authenticator.SetupAuth(rules, creds, logger)
	if err != nil {
		logger.Error("failed to set up Git authentication", "error", err)
		return nil, fmt.Errorf("failed to set up Git authentication: %w", err)
	}

	rules.Repository = config.SetThen(rules.Repository, config.DefaultRulesRepository)

	return &Client{
		logger:       logger,
		auth:         auth,
		timeout:      config.SetThen(globalConfig.GitClient.Timeout, 10*time.Minute),
		rules:        rules,
		globalConfig: globalConfig,
	}, nil
}
