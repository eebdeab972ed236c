package proximity

import (
	"context"
	"math"
)

const earthRadiusM = 6371008.8

// Distance is the great-circle distance between two samples in metres.
func Distance(a, b Sample) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// FilterMoves forwards the first sample and then only samples at least
// minMoveM metres from the last forwarded one. The output closes when in
// closes or ctx is done.
func FilterMoves(ctx context.Context, in <-chan Sample, minMoveM float64) <-chan Sample {
	out := make(chan Sample)
	go func() {
		defer close(out)

		var last *Sample
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-in:
				if !ok {
					return
				}
				if last != nil && Distance(*last, s) < minMoveM {
					continue
				}
				select {
				case out <- s:
					last = &s
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
