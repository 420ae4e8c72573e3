package metrics

import "time"

type nop struct{}

// NewNopRegistry returns a registry that drops everything.
func NewNopRegistry() Registry {
	return nop{}
}

func (nop) WithPrefix(string) Registry            { return nop{} }
func (nop) WithTags(map[string]string) Registry   { return nop{} }
func (nop) Counter(string) Counter                { return nop{} }
func (nop) Gauge(string) Gauge                    { return nopGauge{} }
func (nop) IntGauge(string) IntGauge              { return nop{} }
func (nop) Histogram(string, []float64) Histogram { return nop{} }
func (nop) Timer(string) Timer                    { return nop{} }

func (nop) Inc()                         {}
func (nop) Add(int64)                    {}
func (nop) Set(int64)                    {}
func (nop) RecordValue(float64)          {}
func (nop) RecordDuration(time.Duration) {}

type nopGauge struct{}

func (nopGauge) Set(float64) {}
func (nopGauge) Add(float64) {}
