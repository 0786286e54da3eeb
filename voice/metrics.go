// SPDX-License-Identifier: EPL-2.0

package voice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bytesPlayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audstream_voice_bytes_played_total",
			Help: "Total number of PCM bytes read from voice queues",
		},
	)

	underrunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audstream_voice_underruns_total",
			Help: "Total number of reads a started voice could not fill",
		},
	)

	activeVoices = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audstream_voice_active",
			Help: "Current number of open device voices",
		},
	)
)
