package profiling

import (
	"log/slog"
	"strconv"

	"mind-scribe/internal/config"

	"github.com/grafana/pyroscope-go"
)

// ApplicationName tags every profile pushed to Pyroscope.
const ApplicationName = "mind-scribe.server"

// Start begins continuous profiling when PYROSCOPE_SERVER_ADDRESS is set.
// The returned stop func is never nil.
func Start(cfg config.Config, log *slog.Logger) (func() error, error) {
	if cfg.PyroscopeAddress == "" {
		log.Debug("profiling disabled")
		return func() error { return nil }, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: ApplicationName,
		ServerAddress:   cfg.PyroscopeAddress,
		Tags:            map[string]string{"port": strconv.Itoa(cfg.AppPort)},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return func() error { return nil }, err
	}

	log.Info("profiling enabled", "server", cfg.PyroscopeAddress)
	return profiler.Stop, nil
}
