package driverctx

import (
	"context"
)

// Key name to look for Correlation Id in context
// using custom type to prevent key collision
type contextKey int

const (
	CorrelationIdContextKey contextKey = iota
	ConnIdContextKey
	QueryIdContextKey
	QueryIdCallbackKey
	ConnIdCallbackKey
)

type IdCallbackFunc func(string)

// NewContextWithCorrelationId creates a new context with correlationId value. Used by Logger to populate field corrId.
func NewContextWithCorrelationId(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, CorrelationIdContextKey, correlationId)
}

// CorrelationIdFromContext retrieves the correlationId stored in context.
func CorrelationIdFromContext(ctx context.Context) string {
	return stringFromContext(ctx, CorrelationIdContextKey)
}

// NewContextWithConnId creates a new context with connectionId value.
// The connection ID will be displayed in log messages and other diagnostic information.
func NewContextWithConnId(ctx context.Context, connId string) context.Context {
	if callback, ok := ctx.Value(ConnIdCallbackKey).(IdCallbackFunc); ok {
		callback(connId)
	}
	return context.WithValue(ctx, ConnIdContextKey, connId)
}

// ConnIdFromContext retrieves the connectionId stored in context.
func ConnIdFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ConnIdContextKey)
}

// NewContextWithQueryId creates a new context with queryId value.
// Every statement executed by a cursor gets a fresh query id.
func NewContextWithQueryId(ctx context.Context, queryId string) context.Context {
	if callback, ok := ctx.Value(QueryIdCallbackKey).(IdCallbackFunc); ok {
		callback(queryId)
	}

	return context.WithValue(ctx, QueryIdContextKey, queryId)
}

// QueryIdFromContext retrieves the queryId stored in context.
func QueryIdFromContext(ctx context.Context) string {
	return stringFromContext(ctx, QueryIdContextKey)
}

// NewContextWithQueryIdCallback registers a function that is called with the
// query id of every statement executed with the returned context.
func NewContextWithQueryIdCallback(ctx context.Context, callback IdCallbackFunc) context.Context {
	return context.WithValue(ctx, QueryIdCallbackKey, callback)
}

// NewContextWithConnIdCallback registers a function that is called with the
// id of a connection opened with the returned context.
func NewContextWithConnIdCallback(ctx context.Context, callback IdCallbackFunc) context.Context {
	return context.WithValue(ctx, ConnIdCallbackKey, callback)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}

	s, ok := ctx.Value(key).(string)
	if !ok {
		return ""
	}
	return s
}
