package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/zkgo/pkg/config"
	"github.com/marmos91/zkgo/pkg/metrics"
	"github.com/marmos91/zkgo/pkg/zk"
	"github.com/marmos91/zkgo/pkg/zk/auth"
)

// connect dials the servers named by the global --servers/--connect-timeout/
// --session-timeout flags and blocks until the session reaches CONNECTED or
// ctx is done. Every subcommand that touches the tree goes through this. If
// Cfg.Auth names a scheme, the configured credential is presented via
// AddAuth once, on this first connection, before connect returns.
func connect(ctx context.Context) (*zk.Client, error) {
	connectTimeout, err := time.ParseDuration(Flags.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse --connect-timeout: %w", err)
	}
	sessionTimeout, err := time.ParseDuration(Flags.SessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("parse --session-timeout: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := []zk.Option{
		zk.WithConnectTimeout(connectTimeout),
		zk.WithSessionTimeout(sessionTimeout),
	}
	if Cfg != nil {
		opts = append(opts, zk.WithReconnectBackoff(Cfg.ReconnectBackoff.Base, Cfg.ReconnectBackoff.Cap))
	}
	if Cfg != nil && Cfg.Metrics.Enabled {
		opts = append(opts, zk.WithMetrics(metrics.NewClientMetrics()))
	}

	client, err := zk.Dial(ctx, Flags.Servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", Flags.Servers, err)
	}

	if err := client.WaitForState(dialCtx, zk.StateConnected); err != nil {
		client.Close()
		return nil, fmt.Errorf("wait for connection to %s: %w", Flags.Servers, err)
	}

	if Cfg != nil && Cfg.Auth.Scheme != "" {
		scheme, cred, err := credentialFor(Cfg.Auth)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("configured auth scheme %q: %w", Cfg.Auth.Scheme, err)
		}
		if err := client.AddAuthSync(dialCtx, scheme, cred); err != nil {
			client.Close()
			return nil, fmt.Errorf("addauth %s: %w", scheme, err)
		}
	}
	return client, nil
}

// credentialFor builds the (scheme, credential) pair named by cfg for
// connect's auth-on-connect path. The addauth command builds its own
// credential from its flags.
func credentialFor(cfg config.AuthConfig) (scheme string, cred []byte, err error) {
	switch cfg.Scheme {
	case "digest":
		if cfg.User == "" {
			return "", nil, fmt.Errorf("digest scheme requires auth.user")
		}
		scheme, cred = auth.Digest(cfg.User, cfg.Pass)
		return scheme, cred, nil
	case "jwt":
		if cfg.Token == "" {
			return "", nil, fmt.Errorf("jwt scheme requires auth.token")
		}
		scheme, cred = auth.JWT(cfg.Token)
		return scheme, cred, nil
	case "kerberos":
		return auth.Kerberos(auth.KerberosConfig{
			KeytabPath:       cfg.Kerberos.KeytabPath,
			Krb5ConfPath:     cfg.Kerberos.Krb5ConfPath,
			ClientPrincipal:  cfg.Kerberos.ClientPrincipal,
			Realm:            cfg.Kerberos.Realm,
			ServicePrincipal: cfg.Kerberos.ServicePrincipal,
		})
	default:
		return "", nil, fmt.Errorf("unsupported auth scheme %q", cfg.Scheme)
	}
}
