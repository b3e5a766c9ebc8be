// SPDX-License-Identifier: MPL-2.0

// Package metrics records the counters of a single opexprep run and writes
// them in the Prometheus text format, for node_exporter's textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/opexprep/opexprep/internal/assemble"
	"github.com/opexprep/opexprep/internal/build"
	"github.com/opexprep/opexprep/internal/transport"
)

const namespace = "opexprep"

// Recorder holds the metrics of one run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	filesSeen       prometheus.Counter
	contentItems    *prometheus.CounterVec
	directories     prometheus.Counter
	archives        prometheus.Counter
	descriptors     *prometheus.CounterVec
	uploadedObjects prometheus.Counter
	uploadedBytes   prometheus.Counter
	duration        *prometheus.GaugeVec
	lastSuccess     *prometheus.GaugeVec
}

// New creates a Recorder with all metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		filesSeen: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_files_total",
			Help:      "Regular files found under the source roots",
		}),
		contentItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_items_total",
			Help:      "Source files by classification result",
		}, []string{"result"}),
		directories: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directories_total",
			Help:      "Directories in the assembled package",
		}),
		archives: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_total",
			Help:      "PAX archives generated",
		}),
		descriptors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "descriptors_total",
			Help:      "OPEX descriptors generated",
		}, []string{"kind"}),
		uploadedObjects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_objects_total",
			Help:      "Objects uploaded to the bucket",
		}),
		uploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes uploaded to the bucket",
		}),
		duration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run by command",
		}, []string{"command"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run by command",
		}, []string{"command"}),
	}
}

// Registry returns the registry holding the run's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveBuild records the outcome of the tree builder.
func (r *Recorder) ObserveBuild(res *build.Result) {
	r.filesSeen.Add(float64(res.Files))
	r.contentItems.WithLabelValues("accepted").Add(float64(res.Accepted))
	r.contentItems.WithLabelValues("rejected").Add(float64(res.Rejected))
}

// ObserveAssemble records the outcome of the package assembler.
func (r *Recorder) ObserveAssemble(res *assemble.Result) {
	r.directories.Add(float64(res.Directories))
	r.archives.Add(float64(res.Archives))
	r.descriptors.WithLabelValues("item").Add(float64(res.ItemDescriptors))
	r.descriptors.WithLabelValues("directory").Add(float64(res.DirDescriptors))
}

// ObserveUpload records the outcome of an upload.
func (r *Recorder) ObserveUpload(stats transport.Stats) {
	r.uploadedObjects.Add(float64(stats.Objects))
	r.uploadedBytes.Add(float64(stats.Bytes))
}

// ObserveRun records how long command took and, when it succeeded, when it
// finished.
func (r *Recorder) ObserveRun(command string, started, finished time.Time, ok bool) {
	r.duration.WithLabelValues(command).Set(finished.Sub(started).Seconds())
	if ok {
		r.lastSuccess.WithLabelValues(command).Set(float64(finished.Unix()))
	}
}

// WriteFile writes the metrics to path in the text exposition format.
func (r *Recorder) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
