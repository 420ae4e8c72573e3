package convert

import (
	"fmt"
	"slices"

	"github.com/google/pprof/profile"

	"github.com/yandex/perforator-flame/pkg/flamegraph/collapsed"
)

const inlinedSuffix = " (inlined)"

func defaultSampleIndex(prof *profile.Profile) int {
	for i, value := range prof.SampleType {
		if value.Type == prof.DefaultSampleType {
			return i
		}
	}
	return 0
}

func locationFrames(loc *profile.Location) []collapsed.Frame {
	binary := ""
	if loc.Mapping != nil {
		binary = loc.Mapping.File
	}

	if len(loc.Line) == 0 {
		return []collapsed.Frame{{
			Name:   fmt.Sprintf("0x%x", loc.Address),
			Binary: binary,
		}}
	}

	// pprof lists inlined lines first; the outermost call is the last one.
	// Frames are emitted leaf first to match the location order.
	frames := make([]collapsed.Frame, 0, len(loc.Line))
	for j, line := range loc.Line {
		frame := collapsed.Frame{Binary: binary}
		if line.Function != nil {
			frame.Name = line.Function.Name
			if frame.Name == "" {
				frame.Name = line.Function.SystemName
			}
			frame.File = line.Function.Filename
		}
		if j != len(loc.Line)-1 {
			frame.Name += inlinedSuffix
		}
		frames = append(frames, frame)
	}
	return frames
}

// PProfToCollapsed flattens the default sample type of prof into root-first
// stacks. Function file names and mapping files are kept on every frame.
func PProfToCollapsed(prof *profile.Profile) (*collapsed.Profile, error) {
	if len(prof.SampleType) == 0 {
		return nil, fmt.Errorf("convert: profile has no sample types")
	}
	sampleTypeIdx := defaultSampleIndex(prof)

	res := &collapsed.Profile{
		Samples: make([]collapsed.Sample, len(prof.Sample)),
	}
	for i, src := range prof.Sample {
		sample := &res.Samples[i]
		sample.Value = src.Value[sampleTypeIdx]
		sample.Stack = make([]collapsed.Frame, 0, len(src.Location))
		for _, loc := range src.Location {
			sample.Stack = append(sample.Stack, locationFrames(loc)...)
		}
		slices.Reverse(sample.Stack)
	}
	return res, nil
}

// CollapsedToPProf is the inverse of PProfToCollapsed for profiles without
// inlined frames. Each distinct frame becomes one location.
func CollapsedToPProf(prof *collapsed.Profile) (*profile.Profile, error) {
	res := &profile.Profile{
		SampleType: []*profile.ValueType{{
			Type: "event",
			Unit: "count",
		}},
		Sample: make([]*profile.Sample, len(prof.Samples)),
	}

	mappings := make(map[string]*profile.Mapping)
	locations := make(map[collapsed.Frame]*profile.Location)
	for i := range prof.Samples {
		res.Sample[i] = &profile.Sample{
			Value: []int64{prof.Samples[i].Value},
		}
		for _, frame := range prof.Samples[i].Stack {
			loc, found := locations[frame]
			if !found {
				funcPtr := &profile.Function{
					ID:       1 + uint64(len(res.Function)),
					Name:     frame.Name,
					Filename: frame.File,
				}
				loc = &profile.Location{
					ID: 1 + uint64(len(res.Location)),
					Line: []profile.Line{{
						Function: funcPtr,
					}},
				}
				if frame.Binary != "" {
					mapping, ok := mappings[frame.Binary]
					if !ok {
						mapping = &profile.Mapping{
							ID:   1 + uint64(len(res.Mapping)),
							File: frame.Binary,
						}
						mappings[frame.Binary] = mapping
						res.Mapping = append(res.Mapping, mapping)
					}
					loc.Mapping = mapping
				}
				locations[frame] = loc
				res.Function = append(res.Function, funcPtr)
				res.Location = append(res.Location, loc)
			}
			res.Sample[i].Location = append(res.Sample[i].Location, loc)
		}
		slices.Reverse(res.Sample[i].Location)
	}

	return res, nil
}
