package tunnel

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	mgerr "minignet/internal/errors"
)

// defaultKeyNames are tried under ~/.ssh when nothing is configured.
var defaultKeyNames = []string{"id_ed25519", "id_rsa", "id_ecdsa"}

// prompter reads a secret from the user.
type prompter interface {
	Interactive() bool
	ReadSecret(prompt string) ([]byte, error)
}

// terminal prompts on stderr and reads from stdin without echo.
type terminal struct {
	in  *os.File
	out io.Writer
}

func stdTerminal() terminal { return terminal{in: os.Stdin, out: os.Stderr} }

func (t terminal) Interactive() bool { return term.IsTerminal(int(t.in.Fd())) }

func (t terminal) ReadSecret(prompt string) ([]byte, error) {
	fmt.Fprint(t.out, prompt)
	secret, err := term.ReadPassword(int(t.in.Fd()))
	fmt.Fprintln(t.out)
	return secret, err
}

// BuildAuthMethods returns the SSH authentication methods for cfg, in
// the order the gateway will try them: key file, agent, password.
// With none configured it falls back to the agent and the usual key
// files in ~/.ssh.
func BuildAuthMethods(cfg *SSHConfig) ([]ssh.AuthMethod, error) {
	return buildAuthMethods(cfg, stdTerminal())
}

func buildAuthMethods(cfg *SSHConfig, p prompter) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.KeyPath != "" {
		m, err := keyFileAuth(cfg.KeyPath, p)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", cfg.KeyPath, err)
		}
		methods = append(methods, m)
	}
	if cfg.UseAgent {
		m, err := agentAuth()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		methods = append(methods, m)
	}
	if cfg.PromptPass {
		if !p.Interactive() {
			return nil, &mgerr.ConfigError{
				Field:   "ssh-password",
				Message: "needs an interactive terminal",
				Hint:    "use --ssh-key or --ssh-agent when stdin is piped",
			}
		}
		// Ask lazily so the prompt only appears if the gateway wants it.
		methods = append(methods, ssh.PasswordCallback(func() (string, error) {
			pass, err := p.ReadSecret(fmt.Sprintf("%s@%s's password: ", cfg.User, cfg.Host))
			return string(pass), err
		}))
	}

	if len(methods) == 0 {
		methods = fallbackAuth(p)
	}
	if len(methods) == 0 {
		return nil, &mgerr.ConfigError{
			Field:   "tunnel",
			Value:   cfg.User + "@" + cfg.Host,
			Message: "no SSH authentication method available",
			Hint:    "pass --ssh-key, --ssh-agent or --ssh-password",
		}
	}
	return methods, nil
}

// keyFileAuth loads a private key, asking for its passphrase when the
// key is encrypted.
func keyFileAuth(path string, p prompter) (ssh.AuthMethod, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(pem)
	var missing *ssh.PassphraseMissingError
	if errors.As(err, &missing) && p.Interactive() {
		pass, perr := p.ReadSecret(fmt.Sprintf("Enter passphrase for %s: ", path))
		if perr != nil {
			return nil, fmt.Errorf("reading passphrase: %w", perr)
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, pass)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

func agentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("connecting to agent at %s: %w", sock, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// fallbackAuth collects whatever works without configuration.  Keys
// that fail to load are skipped silently.
func fallbackAuth(p prompter) []ssh.AuthMethod {
	var out []ssh.AuthMethod
	if m, err := agentAuth(); err == nil {
		out = append(out, m)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return out
	}
	for _, name := range defaultKeyNames {
		path := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if m, err := keyFileAuth(path, p); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// hostKeyCallback verifies the gateway against known_hosts when strict
// checking is on, and accepts any key otherwise.
func hostKeyCallback(cfg *SSHConfig) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		//nolint:gosec // opted out with --strict-hostkey=false
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := cfg.KnownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, &mgerr.ConfigError{
			Field:   "known-hosts",
			Value:   path,
			Message: err.Error(),
			Hint:    "add the gateway with ssh-keyscan, or drop --strict-hostkey",
		}
	}
	return cb, nil
}
