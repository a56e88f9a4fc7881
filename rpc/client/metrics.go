package client

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/goporto/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"time"
)

var (
	connectsTotal        = metrics.NewCounter("goporto_connects_total")
	connectFailuresTotal = metrics.NewCounter("goporto_connect_failures_total")
)

// observeCall records one finished exchange
func observeCall(op string, start time.Time, err error) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`goporto_requests_total{op=%q}`, op)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`goporto_request_duration_seconds{op=%q}`, op)).UpdateDuration(start)
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`goporto_request_errors_total{op=%q,kind=%q}`, op, kindName(err))).Inc()
	}
}

func kindName(err error) string {
	var e *common.Error
	if errors.As(err, &e) {
		return e.Kind.Name
	}
	return common.Unknown.String()
}
