package tablebuild

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/google/pprof/profile"

	"github.com/yandex/perforator-flame/pkg/flamegraph/collapsed"
	"github.com/yandex/perforator-flame/pkg/flamegraph/convert"
)

// FromCollapsed aggregates collapsed samples into a profile record.
func FromCollapsed(prof *collapsed.Profile, opts ...Option) (arrow.Record, error) {
	conf := collectOptions(opts...)

	samples := prof.Samples
	if conf.timeOrdered {
		if !prof.Timed() {
			return nil, fmt.Errorf("tablebuild: time ordered table requires timestamps on every sample")
		}
		samples = slices.Clone(samples)
		slices.SortStableFunc(samples, func(lhs, rhs collapsed.Sample) int {
			return cmp.Compare(lhs.Timestamp, rhs.Timestamp)
		})
	}

	bb := newBlocksBuilder(conf.rootName, conf.timeOrdered)
	for _, sample := range samples {
		if sample.Value < 0 {
			return nil, fmt.Errorf("tablebuild: negative sample value %d", sample.Value)
		}
		iter := bb.MakeIterator(uint64(sample.Value), sample.Timestamp, sample.HasTimestamp)
		for idx, frame := range sample.Stack {
			if conf.maxDepth > 0 && conf.maxDepth < len(sample.Stack) && idx+1 == conf.maxDepth {
				iter.Advance(collapsed.Frame{Name: truncatedStack, Binary: frame.Binary})
				break
			}
			iter.Advance(frame)
		}
		iter.Done()
	}

	return FromRows(bb.Finish(conf.minWeight), opts...)
}

// FromPProf aggregates the default sample type of prof.
func FromPProf(prof *profile.Profile, opts ...Option) (arrow.Record, error) {
	folded, err := convert.PProfToCollapsed(prof)
	if err != nil {
		return nil, err
	}
	return FromCollapsed(folded, opts...)
}
