package collapsed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Frame is one stack entry. File and Binary are optional and are written as
// ` @file` and ` [binary]` suffixes.
type Frame struct {
	Name   string
	File   string
	Binary string
}

func (f Frame) String() string {
	var sb strings.Builder
	sb.WriteString(f.Name)
	if f.File != "" {
		sb.WriteString(" @")
		sb.WriteString(f.File)
	}
	if f.Binary != "" {
		sb.WriteString(" [")
		sb.WriteString(f.Binary)
		sb.WriteString("]")
	}
	return sb.String()
}

func ParseFrame(token string) Frame {
	var f Frame
	if strings.HasSuffix(token, "]") {
		if idx := strings.LastIndex(token, " ["); idx != -1 {
			f.Binary = token[idx+2 : len(token)-1]
			token = token[:idx]
		}
	}
	if idx := strings.LastIndex(token, " @"); idx != -1 {
		f.File = token[idx+2:]
		token = token[:idx]
	}
	f.Name = token
	return f
}

// Sample is one collapsed line. Timestamp is set when the line starts with
// a `ts=<n>` field; such profiles can be drawn as flame charts.
type Sample struct {
	Stack        []Frame
	Value        int64
	Timestamp    uint64
	HasTimestamp bool
}

type Profile struct {
	Samples []Sample
}

// Timed reports whether every sample carries a timestamp.
func (p *Profile) Timed() bool {
	if len(p.Samples) == 0 {
		return false
	}
	for _, s := range p.Samples {
		if !s.HasTimestamp {
			return false
		}
	}
	return true
}

const timestampPrefix = "ts="

func Decode(r io.Reader) (*Profile, error) {
	res := &Profile{
		Samples: make([]Sample, 0),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var sample Sample
		if strings.HasPrefix(line, timestampPrefix) {
			idx := strings.IndexByte(line, ' ')
			if idx == -1 {
				return nil, errors.New("collapsed: malformed timestamp")
			}
			ts, err := strconv.ParseUint(line[len(timestampPrefix):idx], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("collapsed: malformed timestamp: %w", err)
			}
			sample.Timestamp = ts
			sample.HasTimestamp = true
			line = line[idx+1:]
		}

		idx := strings.LastIndexByte(line, ' ')
		if idx == -1 {
			return nil, errors.New("collapsed: malformed input")
		}
		count, err := strconv.ParseInt(line[idx+1:], 0, 64)
		if err != nil {
			return nil, fmt.Errorf("collapsed: malformed input: %w", err)
		}

		tokens := strings.Split(line[:idx], ";")
		sample.Stack = make([]Frame, len(tokens))
		for i, token := range tokens {
			sample.Stack[i] = ParseFrame(token)
		}
		sample.Value = count
		res.Samples = append(res.Samples, sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("collapsed: %w", err)
	}

	return res, nil
}

func Encode(profile *Profile, w io.Writer) error {
	for _, sample := range profile.Samples {
		tokens := make([]string, len(sample.Stack))
		for i, frame := range sample.Stack {
			tokens[i] = frame.String()
		}
		prefix := ""
		if sample.HasTimestamp {
			prefix = fmt.Sprintf("%s%d ", timestampPrefix, sample.Timestamp)
		}
		_, err := fmt.Fprintf(w, "%s%s %d\n", prefix, strings.Join(tokens, ";"), sample.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

func Unmarshal(buf []byte) (*Profile, error) {
	return Decode(bytes.NewBuffer(buf))
}

func Marshal(profile *Profile) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := Encode(profile, buf)
	return buf.Bytes(), err
}
