package config

import (
	"os"
	"testing"

	"github.com/mxs-workbench/sqlscript/testutils"
	"github.com/stretchr/testify/require"
)

func TestTLS_MakeConfig(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		tlsConfig := &TLS{Enable: false, Insecure: true}
		config, err := tlsConfig.MakeConfig("maxscale.example.com")
		require.NoError(t, err)
		require.Nil(t, config)
	})

	t.Run("server-name", func(t *testing.T) {
		tlsConfig := &TLS{Enable: true}
		config, err := tlsConfig.MakeConfig("maxscale.example.com")
		require.NoError(t, err)
		require.Equal(t, "maxscale.example.com", config.ServerName)
		require.False(t, config.InsecureSkipVerify)
		require.Nil(t, config.RootCAs)
	})

	t.Run("insecure", func(t *testing.T) {
		tlsConfig := &TLS{Enable: true, Insecure: true, Ca: "/nonexistent/ca.crt"}
		config, err := tlsConfig.MakeConfig("maxscale.example.com")
		require.NoError(t, err)
		require.True(t, config.InsecureSkipVerify)
	})

	t.Run("missing-client-certificate", func(t *testing.T) {
		tlsConfig := &TLS{Enable: true, Key: "client.key"}
		_, err := tlsConfig.MakeConfig("maxscale.example.com")
		require.ErrorContains(t, err, "client certificate missing")
	})

	t.Run("missing-private-key", func(t *testing.T) {
		tlsConfig := &TLS{Enable: true, Cert: "client.crt"}
		_, err := tlsConfig.MakeConfig("maxscale.example.com")
		require.ErrorContains(t, err, "private key missing")
	})

	t.Run("nonexistent-key-pair", func(t *testing.T) {
		tlsConfig := &TLS{Enable: true, Cert: "/nonexistent/client.crt", Key: "/nonexistent/client.key"}
		_, err := tlsConfig.MakeConfig("maxscale.example.com")
		require.ErrorContains(t, err, "can't load X.509 key pair")
	})

	t.Run("nonexistent-ca", func(t *testing.T) {
		tlsConfig := &TLS{Enable: true, Ca: "/nonexistent/ca.crt"}
		_, err := tlsConfig.MakeConfig("maxscale.example.com")
		require.ErrorContains(t, err, "can't read CA file")
	})

	t.Run("corrupt-ca", func(t *testing.T) {
		testutils.WithTempFile(t, "ca-*.pem", "corrupt PEM", func(file *os.File) {
			tlsConfig := &TLS{Enable: true, Ca: file.Name()}
			_, err := tlsConfig.MakeConfig("maxscale.example.com")
			require.ErrorContains(t, err, "can't parse CA file")
		})
	})
}
