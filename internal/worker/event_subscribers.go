package worker

import (
	"github.com/paraiso-astral/gate-service/internal/events"
	"github.com/paraiso-astral/gate-service/internal/service"
)

// StartEventSubscribers registers audit logging and, when configured, the
// Kafka forwarder on dispatcher.
func StartEventSubscribers(dispatcher events.Dispatcher, audit *service.AuditService, sink *events.KafkaSink) {
	if dispatcher == nil {
		return
	}
	if audit != nil {
		audit.RegisterHandlers()
	}
	if sink != nil {
		sink.Register(dispatcher)
	}
}
