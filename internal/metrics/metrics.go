package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
	"time"
)

const (
	namespace = "finnhub"
	subsystem = "sensor"
)

// Metrics groups the collectors updated by the pollers.
type Metrics struct {
	Polls         *prometheus.CounterVec
	AlertsFired   *prometheus.CounterVec
	Publishes     *prometheus.CounterVec
	Commands      *prometheus.CounterVec
	LastPrice     *prometheus.GaugeVec
	LastUpdate    *prometheus.GaugeVec
	FetchDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "polls_total",
			Help:      "The total number of poll cycles by symbol and result",
		}, []string{"symbol", "result"}),
		AlertsFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "alerts_fired_total",
			Help:      "The total number of alerts fired by symbol and condition",
		}, []string{"symbol", "condition"}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "publish_total",
			Help:      "The total number of alert publications by result",
		}, []string{"result"}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "telegram_bot",
			Name:      "commands_processed",
			Help:      "The total number of processed bot commands",
		}, []string{"command", "result"}),
		LastPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_price",
			Help:      "The current price reported by the last successful poll",
		}, []string{"symbol"}),
		LastUpdate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_update_timestamp_seconds",
			Help:      "Unix time of the last successful poll",
		}, []string{"symbol"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching quote and fundamentals",
			Buckets:   prometheus.DefBuckets,
		}, []string{"symbol"}),
	}

	reg.MustRegister(m.Polls, m.AlertsFired, m.Publishes, m.Commands, m.LastPrice, m.LastUpdate, m.FetchDuration)
	return m
}

// ObservePoll records the outcome of one poll cycle.
func (m *Metrics) ObservePoll(symbol, result string) {
	if m == nil {
		return
	}
	m.Polls.WithLabelValues(symbol, result).Inc()
}

// ObserveFetch records how long the upstream requests of one cycle took.
func (m *Metrics) ObserveFetch(symbol string, took time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(symbol).Observe(took.Seconds())
}

func (m *Metrics) ObservePrice(symbol string, price float64, at time.Time) {
	if m == nil {
		return
	}
	m.LastPrice.WithLabelValues(symbol).Set(price)
	m.LastUpdate.WithLabelValues(symbol).Set(float64(at.Unix()))
}

func (m *Metrics) ObserveAlert(symbol, condition string) {
	if m == nil {
		return
	}
	m.AlertsFired.WithLabelValues(symbol, condition).Inc()
}

func (m *Metrics) ObservePublish(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Publishes.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCommand(command string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Commands.WithLabelValues(command, result).Inc()
}

// Sample is one labelled counter value, used to persist counters across
// restarts.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Counters snapshots every counter series.
func (m *Metrics) Counters() []Sample {
	var out []Sample
	out = append(out, collect("polls_total", m.Polls)...)
	out = append(out, collect("alerts_fired_total", m.AlertsFired)...)
	out = append(out, collect("publish_total", m.Publishes)...)
	out = append(out, collect("commands_processed", m.Commands)...)
	return out
}

// Restore adds previously persisted counter values.
func (m *Metrics) Restore(samples []Sample) {
	for _, s := range samples {
		var vec *prometheus.CounterVec
		switch s.Name {
		case "polls_total":
			vec = m.Polls
		case "alerts_fired_total":
			vec = m.AlertsFired
		case "publish_total":
			vec = m.Publishes
		case "commands_processed":
			vec = m.Commands
		default:
			log.Debugf("Skipping unknown persisted metric %s", s.Name)
			continue
		}
		counter, err := vec.GetMetricWith(s.Labels)
		if err != nil {
			log.Errorf("Failed to restore metric %s%v: %v", s.Name, s.Labels, err)
			continue
		}
		counter.Add(s.Value)
	}
}

func collect(name string, c prometheus.Collector) []Sample {
	metricChan := make(chan prometheus.Metric, 16)
	go func() {
		c.Collect(metricChan)
		close(metricChan)
	}()

	var out []Sample
	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Errorf("Failed to read %s metric: %v", name, err)
			continue
		}
		labels := make(map[string]string, len(metricProto.Label))
		for _, label := range metricProto.Label {
			labels[label.GetName()] = label.GetValue()
		}
		out = append(out, Sample{Name: name, Labels: labels, Value: metricProto.GetCounter().GetValue()})
	}
	return out
}
