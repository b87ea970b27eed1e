package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BytesErasedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wipeengine_bytes_erased_total",
		Help: "Total bytes successfully written by the wipe engine",
	}, []string{"device"})

	ThroughputBytesPerSecond = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "wipeengine_throughput_bytes_per_second",
		Help: "Smoothed per-device write/verify throughput",
	}, []string{"device"})

	PassErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wipeengine_pass_errors_total",
		Help: "Total pass-level write errors",
	}, []string{"device"})

	VerifyErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wipeengine_verify_errors_total",
		Help: "Total mismatched bytes found during verification",
	}, []string{"device"})

	FsyncErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wipeengine_fsync_errors_total",
		Help: "Total datasync failures",
	}, []string{"device"})

	DevicesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wipeengine_devices_active",
		Help: "Number of devices currently being wiped",
	})

	DeviceWipeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wipeengine_device_wipe_duration_seconds",
		Help:    "Wall-clock duration of a completed device wipe",
		Buckets: []float64{1, 10, 60, 300, 900, 3600, 7200, 21600, 43200, 86400},
	}, []string{"device", "result"})

	DeviceResultTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wipeengine_device_result_total",
		Help: "Total completed device wipes by terminal result",
	}, []string{"result"})
)

// RecordDelta folds the bytes and errors accrued since the last call into
// the cumulative counters, and replaces the throughput gauge with the
// latest smoothed value. Called by Tracker.Update and Tracker.RecordErrors.
func RecordDelta(device string, deltaBytes int64, throughput float64, deltaPassErrors int64, deltaVerifyErrors int64, deltaFsyncErrors int64) {
	if deltaBytes > 0 {
		BytesErasedTotal.WithLabelValues(device).Add(float64(deltaBytes))
	}
	ThroughputBytesPerSecond.WithLabelValues(device).Set(throughput)
	if deltaPassErrors > 0 {
		PassErrorsTotal.WithLabelValues(device).Add(float64(deltaPassErrors))
	}
	if deltaVerifyErrors > 0 {
		VerifyErrorsTotal.WithLabelValues(device).Add(float64(deltaVerifyErrors))
	}
	if deltaFsyncErrors > 0 {
		FsyncErrorsTotal.WithLabelValues(device).Add(float64(deltaFsyncErrors))
	}
}

// RecordDeviceComplete records the terminal outcome of one device's wipe.
// Called by Tracker.Finish.
func RecordDeviceComplete(device, result string, durationSeconds float64) {
	DeviceWipeDuration.WithLabelValues(device, result).Observe(durationSeconds)
	DeviceResultTotal.WithLabelValues(result).Inc()
}
