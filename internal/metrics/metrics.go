package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OnlineConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_online_conns",
		Help: "Current registered websocket connections.",
	})

	MessagesPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_persisted_total",
		Help: "Total messages durably stored.",
	})
	MessagesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_failed_total",
		Help: "Total sends rejected by the message store.",
	})
	ReceiverOffline = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_receiver_offline_total",
		Help: "Total messages stored while the receiver had no live connection.",
	})

	TypingRelayed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_typing_relayed_total",
		Help: "Total typing indicators relayed to an online peer.",
	})
	ReadReceipts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_read_receipts_total",
		Help: "Total message ids advanced to read.",
	})
)

func Register() {
	prometheus.MustRegister(
		OnlineConns,
		MessagesPersisted, MessagesFailed, ReceiverOffline,
		TypingRelayed, ReadReceipts,
	)
}
