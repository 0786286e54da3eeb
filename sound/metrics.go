// SPDX-License-Identifier: EPL-2.0

package sound

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buffersSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audstream_buffers_submitted_total",
			Help: "Total number of buffers queued on voices",
		},
		[]string{"kind"},
	)

	bytesDecodedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audstream_bytes_decoded_total",
			Help: "Total number of PCM bytes decoded into buffers",
		},
	)

	buffersReleasedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audstream_buffers_released_total",
			Help: "Total number of transient stream buffers returned to the pool",
		},
	)

	streamNextTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audstream_stream_next_total",
			Help: "Total number of stream refill attempts by result",
		},
		[]string{"result"},
	)

	decodeErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audstream_decode_errors_total",
			Help: "Total number of decode failures while loading or streaming",
		},
	)

	boundListeners = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audstream_bound_listeners",
			Help: "Current number of listeners bound to sounds",
		},
	)
)

const (
	kindStatic = "static"
	kindStream = "stream"

	resultQueued = "queued"
	resultEOS    = "eos"
	resultStale  = "stale"
	resultBusy   = "busy"
	resultError  = "error"
)
