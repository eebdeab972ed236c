package proximity

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// LineSource reads "longitude,latitude" fixes, one per line, from r. Blank
// lines and lines starting with # are ignored; malformed lines are logged
// and skipped.
type LineSource struct {
	r   io.Reader
	log *slog.Logger
	now func() time.Time
}

// NewLineSource wraps r.
func NewLineSource(r io.Reader, log *slog.Logger) *LineSource {
	return &LineSource{r: r, log: log, now: time.Now}
}

// Samples starts reading in the background.
func (s *LineSource) Samples(ctx context.Context) (<-chan Sample, error) {
	out := make(chan Sample)
	go func() {
		defer close(out)

		sc := bufio.NewScanner(s.r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			sample, err := ParseSample(line)
			if err != nil {
				s.log.Warn("skipping location line", "line", line, "error", err)
				continue
			}
			sample.At = s.now()

			select {
			case out <- sample:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			s.log.Error("location input failed", "error", err)
		}
	}()
	return out, nil
}

// ParseSample parses "lon,lat" or "lon lat".
func ParseSample(line string) (Sample, error) {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(fields) != 2 {
		return Sample{}, fmt.Errorf("want longitude,latitude, got %q", line)
	}
	lon, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Sample{}, fmt.Errorf("latitude: %w", err)
	}
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return Sample{}, fmt.Errorf("coordinates are not numbers: %q", line)
	}
	if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
		return Sample{}, fmt.Errorf("coordinates out of range: %v,%v", lon, lat)
	}
	return Sample{Longitude: lon, Latitude: lat}, nil
}

// WriterSink prints one JSON line per notification.
type WriterSink struct {
	enc *json.Encoder
}

// NewWriterSink writes to w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{enc: json.NewEncoder(w)}
}

// Notify implements Sink.
func (s *WriterSink) Notify(_ context.Context, n Notification) error {
	return s.enc.Encode(n)
}
