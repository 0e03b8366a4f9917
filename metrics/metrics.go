package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Messaging
	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_messages_sent_total",
		Help: "Total number of messages handed to the broker",
	}, []string{"destination"})
	MessagesFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_messages_failed_total",
		Help: "Total number of messages that failed conversion or delivery",
	}, []string{"destination", "stage"})

	// Mail retrieval and delivery
	MailFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_mail_fetched_total",
		Help: "Total number of unread messages retrieved from a mailbox",
	}, []string{"account"})
	MailErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_mail_errors_total",
		Help: "Total number of mailbox failures grouped by kind",
	}, []string{"account", "kind"})
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_mail_send_success_total",
		Help: "Total number of successful mail deliveries",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_mail_send_failure_total",
		Help: "Total number of failed mail deliveries after retries",
	}, []string{"host"})

	// Uploads
	ImageConversions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_image_conversions_total",
		Help: "Total number of uploaded files converted to images grouped by outcome",
	}, []string{"outcome"})

	// Users
	UserLockTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authkit_user_lock_transitions_total",
		Help: "Total number of user lock and unlock operations",
	}, []string{"state"})
)

var collectors = []prometheus.Collector{
	MessagesSent,
	MessagesFailed,
	MailFetched,
	MailErrors,
	MailSendSuccess,
	MailSendFailure,
	ImageConversions,
	UserLockTransitions,
}

var registerOnce sync.Once

// Register adds every authkit metric to the default registry. Calling it more
// than once is safe.
func Register() {
	registerOnce.Do(func() {
		for _, c := range collectors {
			prometheus.MustRegister(c)
		}
	})
}

// RegisterWith adds every authkit metric to reg
func RegisterWith(reg prometheus.Registerer) error {
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// MetricsHandler returns the HTTP handler serving the default registry
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
