/*
Package fbsql implements the go driver to Firebolt

# Usage

Clients can use the database/sql package in conjunction with the driver:

	import (
		"database/sql"

		_ "github.com/firebolt-db/firebolt-sql-go"
	)

	func main() {
		db, err := sql.Open("firebolt", "firebolt://<username>:<password>@<database>")

		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
	}

or the Connection and Cursor types directly:

	c, err := fbsql.Connect(ctx,
		fbsql.WithUsername(<username>),
		fbsql.WithPassword(<password>),
		fbsql.WithDatabase(<database>),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	cur, _ := c.Cursor()
	if _, err := cur.Execute(ctx, "SELECT * FROM t WHERE id = %(id)s", map[string]any{"id": 1}); err != nil {
		log.Fatal(err)
	}
	for row, err := range cur.All() {
		...
	}

# Connection via DSN (Data Source Name)

Use sql.Open() to create a database handle via a data source name string:

	db, err := sql.Open("firebolt", "<dsn_string>")

The DSN format is:

	firebolt://[username]:[password]@[database][/engine name]?param=value

Supported optional connection parameters can be specified in param=value and include:

  - api_endpoint: Control API used to log in and resolve engines. Default is https://api.app.firebolt.io
  - account: Account name
  - engine_url: Engine to send queries to, skips engine resolution
  - client_id, client_secret: Service account credentials, used instead of username and password
  - access_token: Access token, used instead of any credentials
  - header: (Boolean string) Treat the first row of every result set as a header. Default is false
  - chunk_size: Number of bytes read from a response at a time. Default is 4096
  - timeout: Adds timeout (in seconds) for the server query execution. Default is no timeout
  - retry_max: Number of retries of failed control API requests. Default is 4
  - user_agent_entry: Used to identify partners. Set as a string with format <isv-name+product-name>

Any other parameter is a session setting sent with every query.

The FIREBOLT_BASE_URL environment variable sets the API endpoint when api_endpoint is not given.

# Connection via new connector object

Use sql.OpenDB() to create a database handle via a new connector object created with fbsql.NewConnector():

	import (
		"database/sql"
		fbsql "github.com/firebolt-db/firebolt-sql-go"
	)

	func main() {
		connector, err := fbsql.NewConnector(
			fbsql.WithClientCredentials(<client_id>, <client_secret>),
			fbsql.WithDatabase(<database>),
			fbsql.WithEngineName(<engine>),
		)
		if err != nil {
			log.Fatal(err)
		}

		db := sql.OpenDB(connector)
		defer db.Close()
	}

Supported functional options include:

  - WithUsername(<username> string), WithPassword(<password> string): Credentials used to log in
  - WithClientCredentials(<id> string, <secret> string): Service account credentials
  - WithAccessToken(<token> string): Skips login
  - WithTokenProvider(<provider> tokenprovider.TokenProvider): Custom source of access tokens
  - WithDatabase(<database> string): Database to query. Mandatory
  - WithEngineName(<engine> string): Resolves the engine by name instead of by database. Optional
  - WithEngineURL(<url> string): Skips engine resolution. Optional
  - WithAPIEndpoint(<endpoint> string): Control API. Optional
  - WithHeader(<header> bool): Header mode. Optional
  - WithChunkSize(<size> int): Bytes read from a response at a time. Default is 4096. Optional
  - WithTimeout(<timeout> Duration). Adds timeout (in time.Duration) for the server query execution. Default is no timeout. Optional
  - WithRetries(<max> int, <min wait> Duration, <max wait> Duration): Retry policy of control API requests. Optional
  - WithSessionParams(<params_map> map[string]string): Session settings sent with every query. Optional
  - WithUserAgentEntry(<isv-name+product-name> string). Used to identify partners. Optional
  - WithTransport(<round tripper> http.RoundTripper): Transport of every HTTP request. Optional

# Query parameters

Statements passed to Cursor.Execute use %(name)s placeholders, replaced by
escaped values before the statement is sent. database/sql arguments fill ?
placeholders in order, named arguments fill %(name)s placeholders:

	db.QueryContext(ctx, "SELECT * FROM t WHERE id IN (?) AND name = ?", []int{1, 2}, "O'Brien")

Slices become comma separated lists, strings are quoted.

# Session settings

A statement of the form SET name = value is not sent to the engine. The
setting is added to the settings of the connection and sent with every later
query of that connection.

# Results

Rows are decoded from the response while they are fetched. The column types of
a result set are inferred from its first row: strings and nulls are TEXT,
numbers DOUBLE, booleans BOOLEAN and arrays ARRAY. Array values are scanned as
their JSON text.

	rows, err := db.QueryContext(ctx, "SELECT id, tags FROM t")
	for rows.Next() {
		var id float64
		var tags []byte
		err = rows.Scan(&id, &tags)
	}

A response cut short by the server is not an error: Cursor.Truncated reports it
once the rows have been read.

# Logging

Use the logger package to set the log level and output:

	import fblog "github.com/firebolt-db/firebolt-sql-go/logger"

	if err := fblog.SetLogLevel("debug"); err != nil {
		log.Fatal(err)
	}

Use driverctx.NewContextWithCorrelationId to track the logs of one request:

	ctx := driverctx.NewContextWithCorrelationId(context.Background(), "request-1")

# Errors

Errors returned by the driver can be matched with errors.Is against the values
in the errors package, e.g. fberrors.AuthenticationError, fberrors.SchemaNotFound,
fberrors.TransportError or fberrors.ProtocolStateError, and inspected with
errors.As through the matching interfaces.
*/
package fbsql
