package errors

import "github.com/pkg/errors"

// value to be used with errors.Is() to determine if an error chain contains an authentication error
var AuthenticationError error = errors.New("Authentication Error")

// value to be used with errors.Is() to determine if an error chain contains an authentication error
// caused by credentials that were rejected by both the login and the refresh flow
var InvalidCredentials error = errors.New("Invalid Credentials")

// value to be used with errors.Is() to determine if an error chain contains a not found error
var NotFoundError error = errors.New("Not Found Error")

// value to be used with errors.Is() to determine if an error chain contains a database that could not be resolved
var SchemaNotFound error = errors.New("Schema Not Found")

// value to be used with errors.Is() to determine if an error chain contains an engine that could not be resolved
var EngineNotFound error = errors.New("Engine Not Found")

// value to be used with errors.Is() to determine if an error chain contains a transport error
var TransportError error = errors.New("Transport Error")

// value to be used with errors.Is() to determine if an error chain contains a type inference error
var TypeInferenceError error = errors.New("Type Inference Error")

// value to be used with errors.Is() to determine if an error chain contains a protocol state error
var ProtocolStateError error = errors.New("Protocol State Error")

// Base interface for driver errors
type FireboltError interface {
	// Descriptive message describing the error
	Error() string

	// User specified id to track what happens under a request. Useful to track multiple connections in the same request.
	// Appears in log messages as field corrId.  See driverctx.NewContextWithCorrelationId()
	CorrelationId() string

	// Internal id to track what happens under a connection.
	// Appears in log messages as field connId.
	ConnectionId() string

	// Stack trace associated with the error.  May be nil.
	StackTrace() errors.StackTrace

	// Underlying causative error. May be nil.
	Cause() error
}

// Credentials were rejected or a token could not be obtained.
type FBAuthenticationError interface {
	FireboltError
}

// A database or engine could not be resolved to a query endpoint.
type FBNotFoundError interface {
	FireboltError

	// Kind of the missing resource, "schema" or "engine".
	Resource() string

	// Name that was looked up.
	Name() string
}

// A failure talking to the control API or an engine, including malformed responses.
type FBTransportError interface {
	FireboltError

	// HTTP status code of the failed response, 0 if no response was received.
	StatusCode() int

	IsRetryable() bool
}

// A result value did not belong to any of the known column kinds.
type FBTypeInferenceError interface {
	FireboltError

	// The value that could not be classified.
	Value() any
}

// A cursor or connection was used in a way its lifecycle does not allow,
// e.g. fetching before execute or using it after close.
type FBProtocolStateError interface {
	FireboltError
}
