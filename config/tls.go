package config

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// TLS configures a TLS client connection, e.g. to the database or to Redis.
type TLS struct {
	// Enable indicates whether TLS is enabled.
	Enable bool `yaml:"tls" env:"TLS"`

	// Cert and Key are the paths to a client certificate and its private key. Either both or none must be set.
	Cert string `yaml:"cert" env:"CERT"`
	Key  string `yaml:"key" env:"KEY"`

	// Ca is the path to the CA certificate file. The system pool is used if empty.
	Ca string `yaml:"ca" env:"CA"`

	// Insecure skips verification of the server's certificate chain and host name.
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// MakeConfig returns a *tls.Config for connecting to serverName, or nil if TLS is disabled.
func (t *TLS) MakeConfig(serverName string) (*tls.Config, error) {
	if !t.Enable {
		return nil, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12, ServerName: serverName}

	switch {
	case t.Cert == "" && t.Key != "":
		return nil, errors.New("private key given, but client certificate missing")
	case t.Cert != "" && t.Key == "":
		return nil, errors.New("client certificate given, but private key missing")
	case t.Cert != "":
		crt, err := tls.LoadX509KeyPair(t.Cert, t.Key)
		if err != nil {
			return nil, errors.Wrap(err, "can't load X.509 key pair")
		}

		tlsConfig.Certificates = []tls.Certificate{crt}
	}

	if t.Insecure {
		tlsConfig.InsecureSkipVerify = true // #nosec G402 -- explicitly requested by the user.
	} else if t.Ca != "" {
		raw, err := os.ReadFile(t.Ca)
		if err != nil {
			return nil, errors.Wrap(err, "can't read CA file")
		}

		tlsConfig.RootCAs = x509.NewCertPool()
		if !tlsConfig.RootCAs.AppendCertsFromPEM(raw) {
			return nil, errors.New("can't parse CA file")
		}
	}

	return tlsConfig, nil
}
