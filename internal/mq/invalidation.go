package mq

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bookshelf-app/server/internal/logger"
)

const attrKind = "kind"

// Invalidation tells page caches which paths changed.
type Invalidation struct {
	Paths []string  `json:"paths"`
	At    time.Time `json:"at"`
}

// DecodeInvalidation parses a message published by Invalidator.
func DecodeInvalidation(msg Message) (Invalidation, error) {
	var inv Invalidation
	if err := json.Unmarshal(msg.Data, &inv); err != nil {
		return Invalidation{}, err
	}
	return inv, nil
}

// Invalidator publishes invalidation notices after mutations. Publishing is
// fire-and-forget: failures are logged and never reach the caller.
type Invalidator struct {
	mq      *MQ
	channel string
	log     *logger.Logger
	now     func() time.Time
}

func NewInvalidator(mq *MQ, channel string, log *logger.Logger) *Invalidator {
	return &Invalidator{mq: mq, channel: channel, log: log, now: time.Now}
}

// Invalidate publishes the paths. A nil Invalidator or one without a broker
// does nothing.
func (i *Invalidator) Invalidate(ctx context.Context, paths ...string) {
	if i == nil || i.mq == nil || len(paths) == 0 {
		return
	}

	data, err := json.Marshal(Invalidation{Paths: paths, At: i.now().UTC()})
	if err != nil {
		i.log.Error("encode invalidation", "error", err)
		return
	}

	id, err := i.mq.Publish(ctx, i.channel, data, map[string]string{attrKind: "invalidate"})
	if err != nil {
		i.log.Warn("publish invalidation failed", "channel", i.channel, "paths", paths, "error", err)
		return
	}
	i.log.Debug("published invalidation", "channel", i.channel, "message_id", id, "paths", paths)
}

// Watch subscribes to channel and logs every invalidation notice until ctx
// is cancelled. Undecodable messages are logged and dropped.
func Watch(ctx context.Context, mq *MQ, channel string, log *logger.Logger) error {
	err := mq.Subscribe(ctx, channel, func(ctx context.Context, msg Message) error {
		inv, err := DecodeInvalidation(msg)
		if err != nil {
			log.Warn("drop malformed invalidation", "message_id", msg.ID, "error", err)
			return nil
		}
		log.Info("invalidate", "message_id", msg.ID, "paths", inv.Paths, "at", inv.At)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
