// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one (replica set or sharded cluster).
//
// On a standalone server transactions are rejected. Run then retries the
// same function without a transaction and logs a warning: the writes still
// happen in order but another request may observe the intermediate state.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Server error codes meaning "transactions are not available here".
const (
	codeIllegalOperation                   = 20
	codeNoReplicationEnabled               = 51
	codeOperationNotSupportedInTransaction = 263
)

// Run executes fn inside a transaction on client. fn must be safe to run a
// second time, since it is retried without a transaction when the server
// does not support them.
func Run(ctx context.Context, client *mongo.Client, log *zap.Logger, op string, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fallback(ctx, log, op, err, fn)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fallback(ctx, log, op, err, fn)
	}
	return err
}

func fallback(ctx context.Context, log *zap.Logger, op string, cause error, fn func(ctx context.Context) error) error {
	if log != nil {
		log.Warn("transactions unavailable; running without isolation",
			zap.String("operation", op),
			zap.Error(cause))
	}
	return fn(ctx)
}

// InTransaction reports whether ctx is the one Run hands to fn inside a
// transaction. It is false on the standalone fallback.
func InTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

// IsNotSupported reports whether err means the server cannot run
// transactions, as opposed to the transaction itself failing.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case codeIllegalOperation, codeNoReplicationEnabled, codeOperationNotSupportedInTransaction:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	pairs := [][2]string{
		{"transaction", "replica set"},
		{"session", "not supported"},
		{"transaction", "session"},
		{"illegal", "operation"},
	}
	for _, p := range pairs {
		if strings.Contains(msg, p[0]) && strings.Contains(msg, p[1]) {
			return true
		}
	}
	return false
}
