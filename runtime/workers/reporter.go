package workers

import (
	"chat-stress/contract"
	"chat-stress/observability"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/process"
)

type ReporterWorker struct {
	log      *slog.Logger
	registry contract.IRegistry
	stats    *observability.Stats
	interval time.Duration
	out      io.Writer
}

func NewReporterWorker(log *slog.Logger, registry contract.IRegistry,
	stats *observability.Stats, interval time.Duration, out io.Writer) *ReporterWorker {
	return &ReporterWorker{
		log:      log,
		registry: registry,
		stats:    stats,
		interval: interval,
		out:      out,
	}
}

// Run prints a progress line every interval until cancellation.
func (w *ReporterWorker) Run(ctx context.Context) error {
	startTime := time.Now()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Warn("Process stats unavailable", "error", err)
		p = nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.printProgress(startTime, p)
		}
	}
}

func (w *ReporterWorker) printProgress(startTime time.Time, p *process.Process) {
	snapshot := w.stats.Snapshot()
	rssMb, fds := selfStats(p)

	line := fmt.Sprintf("[%s] live: %d | recv: %d | sent: %d | send failures: %d | RAM: %dMB | fds: %d",
		time.Since(startTime).Round(time.Second),
		w.registry.Len(),
		snapshot.Received,
		snapshot.Sent,
		snapshot.SendFailed,
		rssMb,
		fds,
	)
	if snapshot.SendFailed > 0 {
		_, _ = fmt.Fprintln(w.out, color.Yellow.Sprint(line))
		return
	}
	_, _ = fmt.Fprintln(w.out, color.Cyan.Sprint(line))
}

// selfStats is best effort: zero values when the process can't be inspected.
func selfStats(p *process.Process) (uint64, int32) {
	if p == nil {
		return 0, 0
	}
	var rssMb uint64
	if mem, err := p.MemoryInfo(); err == nil {
		rssMb = mem.RSS / 1024 / 1024
	}
	fds, _ := p.NumFDs()
	return rssMb, fds
}

// RenderSummary writes the end-of-run table.
func RenderSummary(out io.Writer, snapshot observability.StatsSnapshot, live int, elapsed time.Duration) {
	table := tablewriter.NewWriter(out)
	// Keeps "Metric" as written, tablewriter upper-cases headers by default
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	u := func(v uint64) string { return strconv.FormatUint(v, 10) }
	table.AppendBulk([][]string{
		{"Duration", elapsed.Round(time.Millisecond).String()},
		{"Registered", u(snapshot.Registered)},
		{"Register failures", u(snapshot.RegisterFailed)},
		{"Logged in", u(snapshot.LoggedIn)},
		{"Login failures", u(snapshot.LoginFailed)},
		{"Connected", u(snapshot.Connected)},
		{"Connect failures", u(snapshot.ConnectFailed)},
		{"Disconnected", u(snapshot.Disconnected)},
		{"Live at teardown", strconv.Itoa(live)},
		{"Messages sent", u(snapshot.Sent)},
		{"Send failures", u(snapshot.SendFailed)},
		{"Skipped iterations", u(snapshot.Skipped)},
		{"Messages received", u(snapshot.Received)},
	})
	table.Render()
}
