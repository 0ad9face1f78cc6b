package relay

import (
	"context"
	"log"
	"time"

	"github.com/dustin/go-humanize"
)

// RunMetrics logs cumulative relay throughput every interval until ctx is
// canceled, mirroring the cadence of the teacher's room-stats logger but
// reporting on forwarded media traffic instead of voice datagram counts.
func RunMetrics(ctx context.Context, r *Relay, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastBytes uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			datagrams, bytes, dropped := r.Stats()
			if datagrams == 0 && dropped == 0 {
				continue
			}
			rate := humanize.SI(float64(bytes-lastBytes)/interval.Seconds(), "B/s")
			lastBytes = bytes
			log.Printf("[relay] forwarded=%d (%s) dropped=%d total=%s",
				datagrams, rate, dropped, humanize.Bytes(bytes))
		}
	}
}
