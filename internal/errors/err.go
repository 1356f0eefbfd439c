package errors

import (
	"context"
	"fmt"

	"github.com/firebolt-db/firebolt-sql-go/driverctx"
	fberr "github.com/firebolt-db/firebolt-sql-go/errors"
	"github.com/pkg/errors"
)

// Error messages
const (
	// Protocol state errors (cursor/connection lifecycle misuse)
	ErrCursorClosed            = "Cursor already closed"
	ErrConnectionClosed        = "Connection already closed"
	ErrCalledBeforeExecute     = "Called before `execute`"
	ErrExecuteManyNotSupported = "`executemany` is not supported, use `execute` instead"

	// Driver level errors
	ErrNotImplemented           = "not implemented"
	ErrTransactionsNotSupported = "transactions are not supported"
	ErrUnsupportedParameter     = "unsupported parameter type"
	ErrMissingParameter         = "missing parameter"
	ErrNoDatabase               = "no database set"

	// Authentication errors
	ErrAccessToken        = "Access Token API Exception"
	ErrRefreshAccessToken = "Refresh Access Token API Exception"
	ErrNoCredentials      = "no authentication method set"

	// Resolution errors
	ErrEngineURLByDatabase = "could not resolve engine url for database"
	ErrEngineURLByName     = "could not resolve engine url for engine"

	// Transport errors
	ErrQueryExecution   = "DB-API Exception"
	ErrMalformedRow     = "malformed result row"
	ErrInvalidURL       = "invalid URL"
	ErrUnexpectedStatus = "unexpected response status"

	ErrInvalidDSNFormat    = "invalid DSN: invalid format"
	ErrInvalidDSNDatabase  = "invalid DSN: empty database"
	ErrInvalidDSNChunkSize = "invalid DSN: chunk_size param is not a positive integer"
	ErrInvalidDSNTimeout   = "invalid DSN: timeout param is not an integer"
	ErrInvalidDSNRetryMax  = "invalid DSN: retry_max param is not an integer"
	ErrInvalidDSNHeader    = "invalid DSN: header param is not a boolean"
)

type fireboltError struct {
	err           error
	correlationId string
	connectionId  string
	errType       string
}

var _ error = (*fireboltError)(nil)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func newFireboltError(ctx context.Context, msg string, err error) fireboltError {
	// create an error with the new message
	if err == nil {
		err = errors.New(msg)
	} else {
		err = errors.WithMessage(err, msg)
	}

	// if the source error does not have a stack trace in its
	// error chain add a stack trace
	var st stackTracer
	if ok := errors.As(err, &st); !ok {
		err = errors.WithStack(err)
	}

	return fireboltError{
		err:           err,
		correlationId: driverctx.CorrelationIdFromContext(ctx),
		connectionId:  driverctx.ConnIdFromContext(ctx),
		errType:       "unknown",
	}
}

func (e fireboltError) Error() string {
	return fmt.Sprintf("firebolt: %s: %s", e.errType, e.err.Error())
}

func (e fireboltError) Cause() error {
	return e.err
}

func (e fireboltError) StackTrace() errors.StackTrace {
	var st stackTracer
	if ok := errors.As(e.err, &st); ok {
		return st.StackTrace()
	}

	return nil
}

func (e fireboltError) CorrelationId() string {
	return e.correlationId
}

func (e fireboltError) ConnectionId() string {
	return e.connectionId
}

// authenticationError are failures to obtain or refresh an access token
type authenticationError struct {
	fireboltError
	invalidCredentials bool
}

var _ fberr.FBAuthenticationError = (*authenticationError)(nil)

func (e authenticationError) Is(err error) bool {
	return err == fberr.AuthenticationError || (e.invalidCredentials && err == fberr.InvalidCredentials)
}

func (e authenticationError) Unwrap() error {
	return e.err
}

func NewAuthenticationError(ctx context.Context, msg string, err error) *authenticationError {
	fbErr := newFireboltError(ctx, msg, err)
	fbErr.errType = "authentication error"
	return &authenticationError{fireboltError: fbErr}
}

func NewInvalidCredentialsError(ctx context.Context, msg string, err error) *authenticationError {
	fbErr := newFireboltError(ctx, msg, err)
	fbErr.errType = "invalid credentials"
	return &authenticationError{fireboltError: fbErr, invalidCredentials: true}
}

// notFoundError are databases or engines the control API could not resolve
type notFoundError struct {
	fireboltError
	resource string
	name     string
}

var _ fberr.FBNotFoundError = (*notFoundError)(nil)

func (e notFoundError) Is(err error) bool {
	switch err {
	case fberr.NotFoundError:
		return true
	case fberr.SchemaNotFound:
		return e.resource == ResourceSchema
	case fberr.EngineNotFound:
		return e.resource == ResourceEngine
	}
	return false
}

func (e notFoundError) Unwrap() error {
	return e.err
}

func (e notFoundError) Resource() string {
	return e.resource
}

func (e notFoundError) Name() string {
	return e.name
}

const (
	ResourceSchema = "schema"
	ResourceEngine = "engine"
)

func NewSchemaNotFoundError(ctx context.Context, database string, err error) *notFoundError {
	fbErr := newFireboltError(ctx, fmt.Sprintf("%s %q", ErrEngineURLByDatabase, database), err)
	fbErr.errType = "schema not found"
	return &notFoundError{fireboltError: fbErr, resource: ResourceSchema, name: database}
}

func NewEngineNotFoundError(ctx context.Context, engine string, err error) *notFoundError {
	fbErr := newFireboltError(ctx, fmt.Sprintf("%s %q", ErrEngineURLByName, engine), err)
	fbErr.errType = "engine not found"
	return &notFoundError{fireboltError: fbErr, resource: ResourceEngine, name: engine}
}

// transportError are network or HTTP level failures and responses that could not be decoded
type transportError struct {
	fireboltError
	statusCode  int
	isRetryable bool
}

var _ fberr.FBTransportError = (*transportError)(nil)

func (e transportError) Is(err error) bool {
	return err == fberr.TransportError
}

func (e transportError) Unwrap() error {
	return e.err
}

func (e transportError) StatusCode() int {
	return e.statusCode
}

func (e transportError) IsRetryable() bool {
	return e.isRetryable
}

func NewTransportError(ctx context.Context, msg string, statusCode int, err error) *transportError {
	fbErr := newFireboltError(ctx, msg, err)
	fbErr.errType = "transport error"
	retryable := statusCode == 429 || statusCode == 502 || statusCode == 503 || statusCode == 504
	return &transportError{fireboltError: fbErr, statusCode: statusCode, isRetryable: retryable}
}

// typeInferenceError are result values outside the known column kinds
type typeInferenceError struct {
	fireboltError
	value any
}

var _ fberr.FBTypeInferenceError = (*typeInferenceError)(nil)

func (e typeInferenceError) Is(err error) bool {
	return err == fberr.TypeInferenceError
}

func (e typeInferenceError) Unwrap() error {
	return e.err
}

func (e typeInferenceError) Value() any {
	return e.value
}

func NewTypeInferenceError(ctx context.Context, value any) *typeInferenceError {
	fbErr := newFireboltError(ctx, fmt.Sprintf("Value of unknown type: %v", value), nil)
	fbErr.errType = "type inference error"
	return &typeInferenceError{fireboltError: fbErr, value: value}
}

// protocolStateError are cursor and connection lifecycle violations
type protocolStateError struct {
	fireboltError
}

var _ fberr.FBProtocolStateError = (*protocolStateError)(nil)

func (e protocolStateError) Is(err error) bool {
	return err == fberr.ProtocolStateError
}

func (e protocolStateError) Unwrap() error {
	return e.err
}

func NewProtocolStateError(ctx context.Context, msg string) *protocolStateError {
	fbErr := newFireboltError(ctx, msg, nil)
	fbErr.errType = "protocol state error"
	return &protocolStateError{fireboltError: fbErr}
}

// wraps an error and adds trace if not already present
func WrapErr(err error, msg string) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the message
		return errors.WithMessage(err, msg)
	}

	// wrap passed in error in errors with the message and a stack trace
	return errors.Wrap(err, msg)
}

// adds a stack trace if not already present
func WrapErrf(err error, format string, args ...interface{}) error {
	var st stackTracer
	if ok := errors.As(err, &st); ok {
		// wrap passed in error in a new error with the formatted message
		return errors.WithMessagef(err, format, args...)
	}

	// wrap passed in error in errors with the formatted message and a stack trace
	return errors.Wrapf(err, format, args...)
}
