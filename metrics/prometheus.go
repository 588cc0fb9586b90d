package metrics

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Gauge ...
	Gauge instrument = iota
	// Counter ...
	Counter
	// Histogram ...
	Histogram
)

var (
	// ErrInstrumentNotSupported signals the specified instrument is not yet supported
	ErrInstrumentNotSupported = errors.New("instrument type unsupported")
	// ErrInstrumentTypeMismatch signal the type of the instrument is not expected
	ErrInstrumentTypeMismatch = errors.New("instrument is not of the expected type")
)

var (
	engineTime        *prometheus.CounterVec
	prunedBanksTotal  prometheus.Counter
	rootSlotGauge     prometheus.Gauge
	snapshotSlotGauge prometheus.Gauge
	forkBanksGauge    prometheus.Gauge
)

// abstract prometheus types
type instrument int

// combine all possible prometheus options + way to differentiate between regular or vector type
type instrumentOpts struct {
	opts    prometheus.Opts
	buckets []float64
	vectors []string
}

type mi struct {
	gaugeV     *prometheus.GaugeVec
	gauge      prometheus.Gauge
	counterV   *prometheus.CounterVec
	counter    prometheus.Counter
	histogramV *prometheus.HistogramVec
	histogram  prometheus.Histogram
}

// InstrumentOption - vararg for instrument options setting
type InstrumentOption func(o *instrumentOpts)

// Vectors - configuration used to create a vector of a given interface, slice of label names
func Vectors(labels ...string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.vectors = labels
	}
}

// Help - set the help field on instrument
func Help(help string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Help = help
	}
}

// Namespace - set namespace
func Namespace(ns string) InstrumentOption {
	return func(o *instrumentOpts) {
		o.opts.Namespace = ns
	}
}

// Buckets - specific to histogram type
func Buckets(b []float64) InstrumentOption {
	return func(o *instrumentOpts) {
		o.buckets = b
	}
}

// AddInstrument configures and registers a new metrics instrument.
func AddInstrument(t instrument, name string, opts ...InstrumentOption) (*mi, error) {
	var col prometheus.Collector
	ret := mi{}
	opt := instrumentOpts{
		opts: prometheus.Opts{
			Name: name,
		},
	}
	for _, o := range opts {
		o(&opt)
	}
	switch t {
	case Gauge:
		o := opt.gauge()
		if len(opt.vectors) == 0 {
			ret.gauge = prometheus.NewGauge(o)
			col = ret.gauge
		} else {
			ret.gaugeV = prometheus.NewGaugeVec(o, opt.vectors)
			col = ret.gaugeV
		}
	case Counter:
		o := opt.counter()
		if len(opt.vectors) == 0 {
			ret.counter = prometheus.NewCounter(o)
			col = ret.counter
		} else {
			ret.counterV = prometheus.NewCounterVec(o, opt.vectors)
			col = ret.counterV
		}
	case Histogram:
		o := opt.histogram()
		if len(opt.vectors) == 0 {
			ret.histogram = prometheus.NewHistogram(o)
			col = ret.histogram
		} else {
			ret.histogramV = prometheus.NewHistogramVec(o, opt.vectors)
			col = ret.histogramV
		}
	default:
		return nil, ErrInstrumentNotSupported
	}
	if err := prometheus.Register(col); err != nil {
		return nil, err
	}
	return &ret, nil
}

// Start enables metrics given the config.
func Start(conf Config) {
	if !conf.Enabled {
		return
	}
	err := setupMetrics()
	if err != nil {
		panic("could not set up metrics")
	}
	http.Handle(conf.Path, promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", conf.Port), nil))
	}()
}

func (i instrumentOpts) gauge() prometheus.GaugeOpts {
	return prometheus.GaugeOpts(i.opts)
}

func (i instrumentOpts) counter() prometheus.CounterOpts {
	return prometheus.CounterOpts(i.opts)
}

func (i instrumentOpts) histogram() prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Name:      i.opts.Name,
		Namespace: i.opts.Namespace,
		Help:      i.opts.Help,
		Buckets:   i.buckets,
	}
}

// Gauge returns a prometheus Gauge instrument
func (m mi) Gauge() (prometheus.Gauge, error) {
	if m.gauge == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.gauge, nil
}

// Counter returns a prometheus Counter instrument
func (m mi) Counter() (prometheus.Counter, error) {
	if m.counter == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counter, nil
}

// CounterVec returns a prometheus CounterVec instrument
func (m mi) CounterVec() (*prometheus.CounterVec, error) {
	if m.counterV == nil {
		return nil, ErrInstrumentTypeMismatch
	}
	return m.counterV, nil
}

func setupMetrics() error {
	h, err := AddInstrument(
		Counter,
		"engine_seconds_total",
		Namespace("kestrel"),
		Vectors("engine", "fn"),
	)
	if err != nil {
		return err
	}
	est, err := h.CounterVec()
	if err != nil {
		return err
	}
	engineTime = est

	h, err = AddInstrument(
		Counter,
		"pruned_banks_total",
		Namespace("kestrel"),
		Help("Number of banks dropped from the fork tree and reclaimed"),
	)
	if err != nil {
		return err
	}
	pbt, err := h.Counter()
	if err != nil {
		return err
	}
	prunedBanksTotal = pbt

	h, err = AddInstrument(
		Gauge,
		"root_slot",
		Namespace("kestrel"),
		Help("Slot of the current fork tree root"),
	)
	if err != nil {
		return err
	}
	rsg, err := h.Gauge()
	if err != nil {
		return err
	}
	rootSlotGauge = rsg

	h, err = AddInstrument(
		Gauge,
		"snapshot_slot",
		Namespace("kestrel"),
		Help("Slot of the snapshot the node booted from, 0 when booted from genesis"),
	)
	if err != nil {
		return err
	}
	ssg, err := h.Gauge()
	if err != nil {
		return err
	}
	snapshotSlotGauge = ssg

	h, err = AddInstrument(
		Gauge,
		"fork_banks",
		Namespace("kestrel"),
		Help("Number of live banks in the fork tree"),
	)
	if err != nil {
		return err
	}
	fbg, err := h.Gauge()
	if err != nil {
		return err
	}
	forkBanksGauge = fbg

	return nil
}

// StartEngine returns a func that, when called, adds the elapsed time to the
// engine time counter. Use with defer.
func StartEngine(engine, fn string) func() {
	if engineTime == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		engineTime.WithLabelValues(engine, fn).Add(time.Since(start).Seconds())
	}
}

// PrunedBanksAdd increments the pruned bank counter.
func PrunedBanksAdd(n int) {
	if prunedBanksTotal == nil {
		return
	}
	prunedBanksTotal.Add(float64(n))
}

// RootSlotSet updates the root slot gauge.
func RootSlotSet(slot uint64) {
	if rootSlotGauge == nil {
		return
	}
	rootSlotGauge.Set(float64(slot))
}

// SnapshotSlotSet updates the booted-from snapshot slot gauge.
func SnapshotSlotSet(slot uint64) {
	if snapshotSlotGauge == nil {
		return
	}
	snapshotSlotGauge.Set(float64(slot))
}

// ForkBanksSet updates the live bank count gauge.
func ForkBanksSet(n int) {
	if forkBanksGauge == nil {
		return
	}
	forkBanksGauge.Set(float64(n))
}
