package controlboard

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/atomic"
)

// Status is a point in time view of a server's counters.
type Status struct {
	Local             string
	Address           string
	Axes              int
	Seq               uint64
	Ticks             uint64
	FramesSkipped     uint64
	CommandsApplied   uint64
	CommandsDiscarded uint64
	Requests          uint64
	RequestsRejected  uint64
	Subscribers       int
}

type serverStats struct {
	ticks             atomic.Uint64
	commandsApplied   atomic.Uint64
	commandsDiscarded atomic.Uint64
	requests          atomic.Uint64
	requestsRejected  atomic.Uint64
}

// Status returns the server's counters.
func (s *Server) Status() (Status, error) {
	r, err := s.get()
	if err != nil {
		return Status{}, err
	}
	return r.status(), nil
}

func (r *serverRunning) status() Status {
	return Status{
		Local:             r.cfg.Local,
		Address:           r.listener.Addr().String(),
		Axes:              r.store.axes(),
		Seq:               r.store.lastSeq(),
		Ticks:             r.stats.ticks.Load(),
		FramesSkipped:     r.hub.skipped.Load(),
		CommandsApplied:   r.stats.commandsApplied.Load(),
		CommandsDiscarded: r.stats.commandsDiscarded.Load(),
		Requests:          r.stats.requests.Load(),
		RequestsRejected:  r.stats.requestsRejected.Load(),
		Subscribers:       r.hub.subscribers(),
	}
}

// startDiagnostics schedules a job that logs the counters every DiagnosticsIntervalSec.
func (r *serverRunning) startDiagnostics() error {
	if r.cfg.DiagnosticsIntervalSec < 0 {
		return nil
	}
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	r.scheduler = scheduler

	logger := r.logger.Sublogger("diagnostics")
	if _, err := scheduler.NewJob(
		gocron.DurationJob(time.Duration(r.cfg.DiagnosticsIntervalSec)*time.Second),
		gocron.NewTask(func() {
			st := r.status()
			logger.Infow("status",
				"seq", st.Seq,
				"ticks", st.Ticks,
				"frames_skipped", st.FramesSkipped,
				"commands_applied", st.CommandsApplied,
				"commands_discarded", st.CommandsDiscarded,
				"requests", st.Requests,
				"requests_rejected", st.RequestsRejected,
				"subscribers", st.Subscribers)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		return err
	}
	scheduler.Start()
	return nil
}
