package probe

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const DefaultMongoTimeout = 10 * time.Second

// MongoPing connects, runs a ping against admin and disconnects on every path.
func MongoPing(ctx context.Context, uri string, timeout time.Duration) (Outcome, error) {
	if timeout <= 0 {
		timeout = DefaultMongoTimeout
	}
	start := time.Now()

	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return Outcome{}, mongoFailure(start, err)
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Database("admin").RunCommand(pingCtx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return Outcome{}, mongoFailure(start, err)
	}

	return established(start, 200, "MongoDB server running"), nil
}

func mongoFailure(start time.Time, err error) *Failure {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Message != "" {
		code := int(cmdErr.Code)
		if code == 0 {
			code = 500
		}
		return refused(start, code, cmdErr.Message, err)
	}
	return refused(start, 500, "MongoDB server down", err)
}
