package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

type requestMetrics struct {
	logger    *log.Logger
	op        string
	method    string
	route     string
	requestID string
	start     time.Time
	status    int
	bytesIn   int
}

func newRequestMetrics(logger *log.Logger, op, method, route, requestID string) *requestMetrics {
	return &requestMetrics{
		logger:    logger,
		op:        op,
		method:    method,
		route:     route,
		requestID: requestID,
		start:     time.Now(),
	}
}

func (m *requestMetrics) SetStatus(status int) {
	m.status = status
}

func (m *requestMetrics) SetBytes(n int) {
	if n < 0 {
		n = 0
	}
	m.bytesIn = n
}

func (m *requestMetrics) Log(err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"op":         m.op,
		"method":     m.method,
		"route":      m.route,
		"request_id": m.requestID,
		"status":     m.status,
		"total_ms":   durationToMillis(time.Since(m.start)),
		"bytes_in":   m.bytesIn,
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry.WithError(err).Warn("api.request.metrics")
		return
	}
	entry.Debug("api.request.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
