package app

import (
	"go.uber.org/zap"
)

const (
	TopicRegistryCreated  = "registry:created"
	TopicRegistryImported = "registry:imported"
	TopicUserRegistered   = "user:registered"
)

// subscribeEvents attaches the audit log and the metrics counters to the bus.
// Handlers run synchronously in the publishing goroutine.
func (a *Application) subscribeEvents() error {
	subs := map[string]interface{}{
		TopicRegistryCreated: func(table string, id int64) {
			zap.L().Info("record created", zap.String("registry", table), zap.Int64("id", id))
			_ = a.metrics.Incr(table + "_created")
		},
		TopicRegistryImported: func(table string, count int) {
			zap.L().Info("records imported", zap.String("registry", table), zap.Int("count", count))
			_ = a.metrics.Add(table+"_imported", int64(count))
		},
		TopicUserRegistered: func(id int64) {
			zap.L().Info("user registered", zap.Int64("id", id))
			_ = a.metrics.Incr("users_registered")
		},
	}
	for topic, fn := range subs {
		if err := a.bus.Subscribe(topic, fn); err != nil {
			return err
		}
	}
	return nil
}
