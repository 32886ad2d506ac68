package redis

import (
	"testing"

	"github.com/mxs-workbench/sqlscript/config"
	"github.com/mxs-workbench/sqlscript/logging"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewClientFromConfig_GetAddr(t *testing.T) {
	tests := []struct {
		name string
		conf *Config
		addr string
	}{
		{
			name: "simple",
			conf: &Config{Host: "querylog.example.com"},
			addr: "redis://querylog.example.com:6379",
		},
		{
			name: "acl-and-database",
			conf: &Config{
				Host:     "querylog.example.com",
				Port:     6380,
				Username: "workbench",
				Password: "secret",
				Database: 3,
			},
			addr: "redis://workbench@querylog.example.com:6380/3",
		},
		{
			name: "tls",
			conf: &Config{
				Host:       "querylog.example.com",
				TlsOptions: config.TLS{Enable: true},
			},
			addr: "redis+tls://querylog.example.com:6379",
		},
		{
			name: "unix-domain-socket",
			conf: &Config{Host: "/run/redis/redis.sock"},
			addr: "redis://(/run/redis/redis.sock)",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, err := NewClientFromConfig(test.conf, logging.NewLogger(zaptest.NewLogger(t).Sugar(), 0))
			require.NoError(t, err)
			t.Cleanup(func() { _ = client.Close() })

			require.Equal(t, test.addr, client.GetAddr())
			require.NotContains(t, client.GetAddr(), "secret")
		})
	}
}

func TestNewClientFromConfig_BadTLS(t *testing.T) {
	_, err := NewClientFromConfig(
		&Config{Host: "querylog.example.com", TlsOptions: config.TLS{Enable: true, Key: "/var/empty/client.key"}},
		logging.NewLogger(zaptest.NewLogger(t).Sugar(), 0),
	)
	require.ErrorContains(t, err, "client certificate missing")
}
