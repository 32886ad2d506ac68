package querylog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{"no-password", "SELECT password FROM users", "SELECT password FROM users"},
		{
			"create-user",
			"CREATE USER 'app'@'%' IDENTIFIED BY 's3cr3t'",
			"CREATE USER 'app'@'%' IDENTIFIED BY '***'",
		},
		{
			"identified-with-plugin",
			"ALTER USER app IDENTIFIED WITH mysql_native_password BY \"it's\"",
			"ALTER USER app IDENTIFIED WITH mysql_native_password BY '***'",
		},
		{
			"escaped-quote",
			`CREATE USER app identified by 'a\'b''c' PASSWORD EXPIRE`,
			`CREATE USER app identified by '***' PASSWORD EXPIRE`,
		},
		{
			"password-function",
			"SET PASSWORD FOR 'app'@'%' = PASSWORD('old')",
			"SET PASSWORD FOR 'app'@'%' = PASSWORD('***')",
		},
		{
			"set-password",
			"SET PASSWORD = 'new'",
			"SET PASSWORD = '***'",
		},
		{
			"multiple",
			"GRANT ALL ON *.* TO a IDENTIFIED BY 'x'; CREATE USER b IDENTIFIED BY 'y'",
			"GRANT ALL ON *.* TO a IDENTIFIED BY '***'; CREATE USER b IDENTIFIED BY '***'",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.want, Mask(test.sql))
		})
	}
}
