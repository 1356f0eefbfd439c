package fbsql

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/firebolt-db/firebolt-sql-go/internal/config"
	_ "github.com/firebolt-db/firebolt-sql-go/logger"
)

func init() {
	sql.Register("firebolt", &fireboltDriver{})
}

type fireboltDriver struct{}

// Open returns a new connection to Firebolt database with a DSN string.
// Use sql.Open("firebolt", <dsn string>) after importing this driver package.
func (d *fireboltDriver) Open(dsn string) (driver.Conn, error) {
	c, err := d.OpenConnector(dsn)
	if err != nil {
		return nil, err
	}
	return c.Connect(context.Background())
}

// OpenConnector returns a new Connector.
// Used by sql.DB to obtain a Connector and invoke its Connect method to obtain each needed connection.
func (d *fireboltDriver) OpenConnector(dsn string) (driver.Connector, error) {
	ucfg, err := config.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return newConnector(newConfig(withUserConfig(ucfg)))
}

var _ driver.Driver = (*fireboltDriver)(nil)
var _ driver.DriverContext = (*fireboltDriver)(nil)
