package viewer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/google/pprof/profile"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/yandex/perforator-flame/pkg/flamegraph/collapsed"
	"github.com/yandex/perforator-flame/pkg/flamegraph/table"
	"github.com/yandex/perforator-flame/pkg/flamegraph/tablebuild"
	"github.com/yandex/perforator-flame/pkg/xlog"
)

var (
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic = []byte{0x1f, 0x8b}
)

// decompress unwraps zstd framed input. Gzip is left to the pprof parser.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, nil, fmt.Errorf("failed to read input header: %w", err)
	}
	if !bytes.Equal(head, zstdMagic) {
		return br, func() {}, nil
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	return dec, dec.Close, nil
}

func readLimited(r io.Reader, limit uint64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if uint64(len(data)) > limit {
		return nil, fmt.Errorf("input exceeds %d bytes", limit)
	}
	return data, nil
}

func detectFormat(data []byte) InputFormat {
	if bytes.HasPrefix(data, gzipMagic) || !utf8.Valid(data) {
		return InputPProf
	}
	return InputCollapsed
}

func (c *InputConfig) buildOptions() []tablebuild.Option {
	var opts []tablebuild.Option
	if c.TimeOrdered {
		opts = append(opts, tablebuild.WithTimeOrder())
	}
	if c.DepthLimit > 0 {
		opts = append(opts, tablebuild.WithDepthLimit(c.DepthLimit))
	}
	if c.MinWeight > 0 {
		opts = append(opts, tablebuild.WithMinWeight(c.MinWeight))
	}
	if c.RootName != "" {
		opts = append(opts, tablebuild.WithRootName(c.RootName))
	}
	return opts
}

// LoadTable reads a collapsed or pprof profile, optionally zstd compressed,
// and builds its profile table.
func LoadTable(ctx context.Context, logger xlog.Logger, r io.Reader, conf InputConfig) (*table.Table, error) {
	ctx, span := tracer.Start(ctx, "viewer.LoadTable")
	defer span.End()

	if conf.maxSize == 0 {
		conf.maxSize = DefaultConfig().Input.maxSize
	}

	plain, release, err := decompress(r)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := readLimited(plain, conf.maxSize)
	if err != nil {
		return nil, err
	}

	format := conf.Format
	if format == InputAuto || format == "" {
		format = detectFormat(data)
	}
	span.SetAttributes(
		attribute.String("format", string(format)),
		attribute.Int("bytes", len(data)),
	)

	record, err := buildRecord(data, format, conf.buildOptions())
	if err != nil {
		return nil, err
	}
	tbl := table.New(record)
	record.Release()

	logger.Info(ctx, "Loaded profile",
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
		zap.Int("rows", tbl.NumRows()),
		zap.Int("max_depth", tbl.MaxDepth()),
	)
	return tbl, nil
}

func buildRecord(data []byte, format InputFormat, opts []tablebuild.Option) (arrow.Record, error) {
	var record arrow.Record
	switch format {
	case InputCollapsed:
		prof, err := collapsed.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse collapsed profile: %w", err)
		}
		record, err = tablebuild.FromCollapsed(prof, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build profile table: %w", err)
		}
	case InputPProf:
		prof, err := profile.ParseData(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pprof profile: %w", err)
		}
		record, err = tablebuild.FromPProf(prof, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to build profile table: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
	return record, nil
}
