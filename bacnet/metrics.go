// Copyright 2025 Edgeo SCADA
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bacnet

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors a Server exposes. Each Server
// instance registers its own collectors against its own Registry so that
// multiple servers in one process (bounded by MaxServersAllowed, but the
// type itself does not assume a singleton) never collide on metric names.
type Metrics struct {
	Registry *prometheus.Registry

	ReadPropertyRequests  prometheus.Counter
	WritePropertyRequests prometheus.Counter
	ServiceErrors         *prometheus.CounterVec
	IAmReceived           prometheus.Counter
	WhoHasReceived        prometheus.Counter

	TransactionsCreated   prometheus.Counter
	TransactionsCompleted prometheus.Counter
	TransactionsExpired   prometheus.Counter
	ActiveTransactions    prometheus.Gauge

	OutboundLatency prometheus.Histogram
}

// NewMetrics builds and registers a fresh set of collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		ReadPropertyRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "read_property_requests_total",
			Help: "Inbound ReadProperty requests served.",
		}),
		WritePropertyRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "write_property_requests_total",
			Help: "Inbound WriteProperty requests served.",
		}),
		ServiceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "service_errors_total",
			Help: "Errors returned from the service layer, by error class.",
		}, []string{"class"}),
		IAmReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "i_am_received_total",
			Help: "I-Am requests received.",
		}),
		WhoHasReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "who_has_received_total",
			Help: "Who-Has requests received.",
		}),
		TransactionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "transactions_created_total",
			Help: "Outbound confirmed-service transactions created.",
		}),
		TransactionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "transactions_completed_total",
			Help: "Transactions that reached the Complete state.",
		}),
		TransactionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "transactions_expired_total",
			Help: "Transactions reaped by Cleanup, completed or not.",
		}),
		ActiveTransactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "active_transactions",
			Help: "Transactions currently tracked by the transaction manager.",
		}),
		OutboundLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "bacnet", Subsystem: "server", Name: "outbound_request_duration_seconds",
			Help:    "Time from transaction creation to completion for outbound confirmed requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.ReadPropertyRequests, m.WritePropertyRequests, m.ServiceErrors,
		m.IAmReceived, m.WhoHasReceived,
		m.TransactionsCreated, m.TransactionsCompleted, m.TransactionsExpired,
		m.ActiveTransactions, m.OutboundLatency,
	)
	return m
}

// Serve starts an HTTP server exposing this instance's collectors on
// /metrics until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
