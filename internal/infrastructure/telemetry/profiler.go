package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// ProfileLabelPhase is the pprof label carrying the running migration phase.
const ProfileLabelPhase = "phase"

// ErrProfilerAddress is returned when profiling is enabled without a server.
var ErrProfilerAddress = errors.New("telemetry: profiler server address is required")

// ProfilerConfig selects the Pyroscope server profiles are pushed to.
type ProfilerConfig struct {
	Enabled           bool
	ServerAddress     string
	ApplicationName   string
	BasicAuthUser     string
	BasicAuthPassword string
}

var migrationProfileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
}

// Profiler pushes continuous profiles for the lifetime of a run.
type Profiler struct {
	ps       *pyroscope.Profiler
	stopOnce sync.Once
	stopErr  error
}

// StartProfiler starts pushing profiles when cfg is enabled. A disabled
// config yields a Profiler whose Stop does nothing.
func StartProfiler(cfg ProfilerConfig, zl *zap.Logger) (*Profiler, error) {
	if !cfg.Enabled {
		return &Profiler{}, nil
	}
	if cfg.ServerAddress == "" {
		return nil, ErrProfilerAddress
	}
	name := cfg.ApplicationName
	if name == "" {
		name = TracerName
	}

	tags := map[string]string{}
	if host, err := os.Hostname(); err == nil {
		tags["hostname"] = host
	}

	ps, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   name,
		ServerAddress:     cfg.ServerAddress,
		BasicAuthUser:     cfg.BasicAuthUser,
		BasicAuthPassword: cfg.BasicAuthPassword,
		Logger:            pyroscopeLogger{zl.Named("pyroscope").Sugar()},
		Tags:              tags,
		ProfileTypes:      migrationProfileTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("start profiler: %w", err)
	}
	zl.Info("Profiler started",
		zap.String("server_address", cfg.ServerAddress),
		zap.String("application", name),
	)
	return &Profiler{ps: ps}, nil
}

// Enabled reports whether profiles are being pushed.
func (p *Profiler) Enabled() bool { return p != nil && p.ps != nil }

// Stop flushes and stops the profiler. It is safe to call more than once.
func (p *Profiler) Stop() error {
	if !p.Enabled() {
		return nil
	}
	p.stopOnce.Do(func() {
		p.stopErr = p.ps.Stop()
	})
	return p.stopErr
}

// WithPhaseLabels runs fn with the phase attached as a pprof label, so CPU
// samples taken inside fn can be filtered by phase.
func WithPhaseLabels(ctx context.Context, phase string, fn func(context.Context)) {
	pyroscope.TagWrapper(ctx, pyroscope.Labels(ProfileLabelPhase, phase), fn)
}

type pyroscopeLogger struct {
	s *zap.SugaredLogger
}

func (l pyroscopeLogger) Infof(format string, args ...interface{})  { l.s.Debugf(format, args...) }
func (l pyroscopeLogger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }
func (l pyroscopeLogger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }
