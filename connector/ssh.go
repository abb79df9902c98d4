package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Config holds the parameters for an SSH connection.
type Config struct {
	Username   string
	Password   string
	Address    string
	Port       int
	PrivateKey string
	KeyFile    string
	Timeout    time.Duration
}

const defaultTimeout = 30 * time.Second

var _ Connection = (*connection)(nil)

type connection struct {
	mu         sync.Mutex
	sshclient  *ssh.Client
	sftpclient *sftp.Client
	config     Config
}

// NewConnection dials the configured host and returns a Connection.
func NewConnection(cfg Config) (Connection, error) {
	cfg, err := validateConfig(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate ssh connection parameters")
	}

	authMethods := make([]ssh.AuthMethod, 0)
	if len(cfg.Password) > 0 {
		authMethods = append(authMethods, ssh.Password(cfg.Password))
	}
	if len(cfg.PrivateKey) > 0 {
		signer, parseErr := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if parseErr != nil {
			return nil, errors.Wrap(parseErr, "the given SSH key could not be parsed")
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            authMethods,
		Timeout:         cfg.Timeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	addr := net.JoinHostPort(cfg.Address, fmt.Sprintf("%d", cfg.Port))
	client, err := ssh.Dial("tcp", addr, clientConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", addr)
	}

	return &connection{sshclient: client, config: cfg}, nil
}

func validateConfig(cfg Config) (Config, error) {
	if cfg.Username == "" {
		return cfg, errors.New("connection username is required")
	}
	if cfg.Address == "" {
		return cfg, errors.New("connection address is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.KeyFile != "" && cfg.PrivateKey == "" {
		content, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return cfg, errors.Wrapf(err, "failed to read keyfile %s", cfg.KeyFile)
		}
		cfg.PrivateKey = string(content)
	}
	if cfg.Password == "" && cfg.PrivateKey == "" {
		return cfg, errors.New("must specify at least one of password or private key")
	}
	return cfg, nil
}

func (c *connection) Exec(ctx context.Context, cmd string, stdin string) ([]byte, []byte, int, error) {
	sess, err := c.sshclient.NewSession()
	if err != nil {
		return nil, nil, -1, errors.Wrap(err, "failed to open ssh session")
	}
	defer sess.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	sess.Stdout = &stdoutBuf
	sess.Stderr = &stderrBuf
	if stdin != "" {
		sess.Stdin = strings.NewReader(stdin)
	}

	done := make(chan error, 1)
	go func() { done <- sess.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = sess.Close()
		<-done
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.Wrapf(ctx.Err(), "command '%s' cancelled", cmd)
	case runErr := <-done:
		if runErr != nil {
			var exitErr *ssh.ExitError
			if errors.As(runErr, &exitErr) {
				return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitErr.ExitStatus(), nil
			}
			return stdoutBuf.Bytes(), stderrBuf.Bytes(), -1, errors.Wrapf(runErr, "command '%s' failed", cmd)
		}
		return stdoutBuf.Bytes(), stderrBuf.Bytes(), 0, nil
	}
}

func (c *connection) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := c.sftpClient()
	if err != nil {
		return nil, err
	}
	f, err := client.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open remote file %s", path)
	}
	return f, nil
}

func (c *connection) sftpClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftpclient != nil {
		return c.sftpclient, nil
	}
	client, err := sftp.NewClient(c.sshclient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sftp client")
	}
	c.sftpclient = client
	return client, nil
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sftpclient != nil {
		_ = c.sftpclient.Close()
		c.sftpclient = nil
	}
	if c.sshclient != nil {
		err := c.sshclient.Close()
		c.sshclient = nil
		return err
	}
	return nil
}
