package auth

import (
	"fmt"
	"os"

	krb5client "github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/keytab"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// KerberosConfig locates the keytab, krb5.conf, and client principal
// used to obtain a service ticket, loaded the same way the teacher's
// pkg/auth/kerberos.Provider loads them.
type KerberosConfig struct {
	KeytabPath       string
	Krb5ConfPath     string
	ClientPrincipal  string
	Realm            string
	ServicePrincipal string
}

// Kerberos obtains a service ticket for cfg.ServicePrincipal via the
// keytab/krb5.conf pair and returns the marshaled AP-REQ as the
// "gssapi" scheme credential. spec.md and
// original_source/zookeeper/c/src/zookeeper.c never specify how a
// caller produces a SASL/GSSAPI credential blob (they treat every
// scheme as an opaque byte string) — this is that gap filled in the
// teacher's idiom instead of inventing SASL glue.
func Kerberos(cfg KerberosConfig) (scheme string, cred []byte, err error) {
	kt, err := loadKeytab(cfg.KeytabPath)
	if err != nil {
		return "", nil, fmt.Errorf("auth: load keytab %s: %w", cfg.KeytabPath, err)
	}
	krbCfg, err := krb5config.Load(cfg.Krb5ConfPath)
	if err != nil {
		return "", nil, fmt.Errorf("auth: load krb5.conf %s: %w", cfg.Krb5ConfPath, err)
	}

	cl := krb5client.NewWithKeytab(cfg.ClientPrincipal, cfg.Realm, kt, krbCfg, krb5client.DisablePAFXFAST(true))
	if err := cl.Login(); err != nil {
		return "", nil, fmt.Errorf("auth: kerberos login: %w", err)
	}
	defer cl.Destroy()

	tkt, sessionKey, err := cl.GetServiceTicket(cfg.ServicePrincipal)
	if err != nil {
		return "", nil, fmt.Errorf("auth: get service ticket for %s: %w", cfg.ServicePrincipal, err)
	}

	authenticator, err := types.NewAuthenticator(cl.Credentials.Realm(), cl.Credentials.CName())
	if err != nil {
		return "", nil, fmt.Errorf("auth: build authenticator: %w", err)
	}
	apReq, err := messages.NewAPReq(tkt, sessionKey, authenticator)
	if err != nil {
		return "", nil, fmt.Errorf("auth: build AP-REQ: %w", err)
	}
	blob, err := apReq.Marshal()
	if err != nil {
		return "", nil, fmt.Errorf("auth: marshal AP-REQ: %w", err)
	}
	return "gssapi", blob, nil
}

func loadKeytab(path string) (*keytab.Keytab, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keytab file: %w", err)
	}
	kt := keytab.New()
	if err := kt.Unmarshal(data); err != nil {
		return nil, fmt.Errorf("parse keytab: %w", err)
	}
	return kt, nil
}
