package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriledger_ws_messages_total",
		Help: "Websocket messages handled, by message type.",
	}, []string{"type"})

	handlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nutriledger_ws_errors_total",
		Help: "Websocket messages that ended in an error reply, by message type.",
	}, []string{"type"})

	staleLookupsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nutriledger_stale_lookups_dropped_total",
		Help: "Product lookups discarded because a newer lookup superseded them.",
	})
)
