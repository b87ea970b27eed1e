// Package supervisor implements the Supervisor of spec §4.H: owns the
// shared entropy handle, forks one Wipe Worker per selected device, joins
// them with a bounded timeout, and reports a per-device summary with the
// process exit code spec §6 defines.
//
// Grounded on internal/fraud/fraud_service.go's FraudService: a
// config-driven orchestrator holding references to every collaborator and
// exposing one top-level entry point.
package supervisor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"wipeengine/internal/executor"
	"wipeengine/internal/method"
	"wipeengine/internal/prng"
	"wipeengine/internal/stats"
	"wipeengine/internal/wipe"
	"wipeengine/internal/worker"
	"wipeengine/pkg/entropy"
)

// Exit codes per spec §6.
const (
	ExitOK                 = 0
	ExitWorkerErrors       = 1
	ExitInvalidConfig      = 2
	ExitInsufficientPriv   = 99
	ExitTooManyExclusions  = 130
)

// DeviceTarget is one device the Supervisor was asked to wipe, as produced
// by the (external) enumeration layer.
type DeviceTarget struct {
	DevicePath string
	Device     executor.BlockDevice
	SizeBytes  int64
	SectorSize int64
}

// Supervisor runs a whole wipe job: one or more devices, one shared
// configuration, one shared entropy source.
type Supervisor struct {
	cfg        wipe.Config
	methodEng  *method.Engine
	entropySrc *entropy.Source
	sink       EventSink
	registry   *stats.Registry

	mu       sync.Mutex
	workers  map[string]*worker.Worker
	handles  map[string]*worker.Handle
	cancelFn context.CancelFunc
}

// New builds a Supervisor. entropySrc is opened once by the caller and
// shared across every worker, per spec §4.H.
func New(cfg wipe.Config, entropySrc *entropy.Source, sink EventSink) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		methodEng:  method.NewEngine(),
		entropySrc: entropySrc,
		sink:       sink,
		registry:   stats.NewRegistry(),
		workers:    make(map[string]*worker.Worker),
		handles:    make(map[string]*worker.Handle),
	}
}

// Registry exposes the shared stats.Registry for an HTTP progress surface.
func (s *Supervisor) Registry() *stats.Registry { return s.registry }

// Run launches one worker per target, waits for all of them (or for
// cancellation), and returns the per-device summaries plus the process
// exit code.
func (s *Supervisor) Run(ctx context.Context, targets []DeviceTarget) ([]wipe.DeviceSummary, int) {
	if len(targets) == 0 {
		return nil, ExitInvalidConfig
	}

	prngID, err := prng.ParseID(s.cfg.PRNG)
	if err != nil {
		log.Printf("supervisor: invalid prng %q: %v", s.cfg.PRNG, err)
		return nil, ExitInvalidConfig
	}

	m, err := s.methodEng.Expand(s.cfg)
	if err != nil {
		log.Printf("supervisor: invalid method configuration: %v", err)
		return nil, ExitInvalidConfig
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelFn = cancel
	s.mu.Unlock()
	defer cancel()

	for _, target := range targets {
		w := worker.New(target.DevicePath, target.Device, target.SectorSize, target.SizeBytes, m, prngID, s.cfg.Sync, s.entropySrc, s.sink)
		s.registry.Add(w.Tracker())

		s.mu.Lock()
		s.workers[target.DevicePath] = w
		s.mu.Unlock()

		handle := w.Start(runCtx)

		s.mu.Lock()
		s.handles[target.DevicePath] = handle
		s.mu.Unlock()
	}

	summaries := make([]wipe.DeviceSummary, 0, len(targets))
	anyErrors := false

	for _, target := range targets {
		s.mu.Lock()
		handle := s.handles[target.DevicePath]
		s.mu.Unlock()

		dc := s.joinWithTimeout(handle, target.DevicePath)

		summary := wipe.DeviceSummary{
			DevicePath:   target.DevicePath,
			Method:       s.cfg.Method,
			PRNG:         s.cfg.PRNG,
			Rounds:       s.cfg.Rounds,
			Verify:       s.cfg.Verify,
			PassErrors:   dc.PassErrors,
			VerifyErrors: dc.VerifyErrors,
			FsyncErrors:  dc.FsyncErrors,
			BytesErased:  dc.BytesErased,
			Duration:     dc.EndedAt.Sub(dc.StartedAt),
			Status:       dc.Result,
		}
		summaries = append(summaries, summary)

		if dc.Result != wipe.ResultOK || dc.PassErrors > 0 || dc.VerifyErrors > 0 || dc.FsyncErrors > 0 {
			anyErrors = true
		}
	}

	if anyErrors {
		return summaries, ExitWorkerErrors
	}
	return summaries, ExitOK
}

// joinWithTimeout waits on handle, falling back to a DeviceContext marked
// as cancelled/fatal if the worker fails to join within JoinTimeout.
func (s *Supervisor) joinWithTimeout(handle *worker.Handle, devicePath string) wipe.DeviceContext {
	timeout := s.cfg.JoinTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	resultCh := make(chan wipe.DeviceContext, 1)
	go func() {
		resultCh <- handle.Wait()
	}()

	select {
	case dc := <-resultCh:
		return dc
	case <-time.After(timeout):
		log.Printf("supervisor: worker for %s failed to join within %s", devicePath, timeout)
		return wipe.DeviceContext{
			DevicePath: devicePath,
			Result:     wipe.ResultFatalIO,
			EndedAt:    time.Now(),
		}
	}
}

// Cancel requests termination of every running worker. Safe to call more
// than once, and safe to call before Run (it becomes a no-op).
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.workers {
		w.Cancel()
	}
	if s.cancelFn != nil {
		s.cancelFn()
	}
}

// StatusLines renders the SIGUSR1 single-line-per-worker status dump.
func (s *Supervisor) StatusLines() []string {
	snaps := s.registry.Snapshots()
	lines := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		lines = append(lines, fmt.Sprintf(
			"%s phase=%s round=%d/%d pass=%d/%d percent=%.1f%% eta=%.0fs",
			snap.DevicePath, snap.Phase, snap.RoundWorking, snap.RoundTotal,
			snap.PassWorking, snap.PassTotal, snap.PercentRound, snap.ETASeconds,
		))
	}
	return lines
}

// SummaryTable renders the one-header-plus-one-row-per-device log format
// of spec §6.
func SummaryTable(summaries []wipe.DeviceSummary) string {
	out := "device | method | prng | rounds | verify | pass_err | verify_err | fsync_err | bytes | duration | status\n"
	for _, s := range summaries {
		out += fmt.Sprintf("%s | %s | %s | %d | %s | %d | %d | %d | %d | %s | %s\n",
			s.DevicePath, s.Method, s.PRNG, s.Rounds, s.Verify,
			s.PassErrors, s.VerifyErrors, s.FsyncErrors, s.BytesErased, s.Duration, s.Status)
	}
	return out
}
