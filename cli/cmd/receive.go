package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/qrtx/adapter"
	"github.com/pithecene-io/qrtx/cli/config"
	"github.com/pithecene-io/qrtx/cli/tui"
	"github.com/pithecene-io/qrtx/deliver"
	"github.com/pithecene-io/qrtx/lode"
	"github.com/pithecene-io/qrtx/log"
	"github.com/pithecene-io/qrtx/metrics"
	"github.com/pithecene-io/qrtx/session"
	"github.com/pithecene-io/qrtx/types"
)

// maxCaptureLen bounds one stdin capture line.
const maxCaptureLen = 1 << 20

// ReceiveCommand returns the receive command.
func ReceiveCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "Directory for received files (when no storage backend is set)",
			Value: ".",
		},
		&cli.StringFlag{
			Name:  "text-out",
			Usage: "Append received clipboard text to FILE instead of stdout",
		},
		&cli.StringFlag{
			Name:  "storage-backend",
			Usage: "Store received files in Lode storage: fs or s3",
		},
		&cli.StringFlag{
			Name:  "storage-path",
			Usage: "Storage path (fs: directory, s3: bucket/prefix)",
		},
		&cli.StringFlag{
			Name:  "storage-region",
			Usage: "AWS region for S3 backend (optional, uses default chain)",
		},
		&cli.StringFlag{
			Name:  "storage-endpoint",
			Usage: "Custom S3 endpoint URL for S3-compatible providers",
		},
		&cli.BoolFlag{
			Name:  "storage-s3-path-style",
			Usage: "Force path-style S3 addressing",
		},
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Directory of the transfer journal read by qrtx history",
		},
		&cli.StringFlag{
			Name:  "state",
			Usage: "Checkpoint file used to resume a partial transfer",
		},
		&cli.BoolFlag{
			Name:  "once",
			Usage: "Exit after the first finished or corrupt transfer",
		},
		&cli.IntFlag{
			Name:  "backlog",
			Usage: "Captures queued ahead of the receiver",
			Value: 64,
		},
		ConfigFlag,
		LogLevelFlag,
		TUIFlag,
	}
	flags = append(flags, adapterFlags()...)

	return &cli.Command{
		Name:   "receive",
		Usage:  "Reassemble frames read line by line from standard input",
		Flags:  flags,
		Action: receiveAction,
	}
}

// receiver wires one receive session: a Worker in front of a Receiver, a
// Deliverer behind it, and the optional journal and adapter.
type receiver struct {
	deliverer *deliver.Deliverer
	journal   *lode.Journal
	adapter   adapter.Adapter
	logger    *log.Logger
	metrics   *metrics.Collector

	once    bool
	backlog int
	// status receives progress lines when no TUI is attached.
	status io.Writer
	// program receives outcomes when the TUI is attached.
	program *tea.Program
	now     func() time.Time

	started map[string]time.Time
}

func receiveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := newLogger(c, cfg, "receive")
	if err != nil {
		return err
	}
	if c.Bool("tui") {
		logger = log.Nop()
	}

	storage := resolveStorage(c, cfg)
	collector := metrics.NewCollector("receive", storage.Backend)

	files, err := buildFileSink(ctx, c, cfg, storage)
	if err != nil {
		return cli.Exit(fmt.Sprintf("storage: %v", err), exitError)
	}

	text, closeText, err := buildTextSink(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	defer closeText()

	var journal *lode.Journal
	if path := resolveString(c, "journal", configVal(cfg, func(c *config.Config) string { return c.Journal.Path })); path != "" && !configVal(cfg, func(c *config.Config) bool { return c.Journal.Disabled }) {
		journal, err = lode.NewJournalFS(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("journal: %v", err), exitError)
		}
	}

	notify, err := buildAdapter(c, cfg)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	if notify != nil {
		defer func() { _ = notify.Close() }()
	}

	opts := []session.ReceiverOption{
		session.WithLogger(logger),
		session.WithMetrics(collector),
	}
	if path := resolveString(c, "state", configVal(cfg, func(c *config.Config) string { return c.Receive.State })); path != "" {
		opts = append(opts, session.WithCheckpoints(session.NewCheckpointStore(path)))
	}
	r := session.NewReceiver(opts...)
	if received, expected, err := r.Resume(); err != nil {
		logger.Warn("checkpoint ignored", map[string]any{"error": err.Error()})
	} else if expected > 0 {
		fmt.Fprintf(os.Stderr, "resumed %d of %d frames\n", received, expected)
	}

	rc := &receiver{
		deliverer: &deliver.Deliverer{Files: files, Text: text, Logger: logger, Metrics: collector},
		journal:   journal,
		adapter:   notify,
		logger:    logger,
		metrics:   collector,
		once:      c.Bool("once"),
		backlog:   resolveInt(c, "backlog", configVal(cfg, func(c *config.Config) int { return c.Receive.Backlog })),
		status:    os.Stderr,
	}

	var code int
	if c.Bool("tui") {
		code, err = rc.runTUI(ctx, r, os.Stdin)
	} else {
		code, err = rc.run(ctx, r, os.Stdin)
	}
	r.Flush()

	logger.Info("receive finished", map[string]any{"metrics": collector.Snapshot()})
	if err != nil && !errors.Is(err, context.Canceled) {
		return cli.Exit(err.Error(), exitError)
	}
	if code != exitSuccess {
		return cli.Exit("", code)
	}
	return nil
}

func (rc *receiver) runTUI(ctx context.Context, r *session.Receiver, in io.Reader) (int, error) {
	// Captures arrive on stdin, so the program takes no keyboard input.
	rc.program = tui.NewReceiveProgram(tea.WithInput(nil), tea.WithOutput(os.Stderr), tea.WithContext(ctx))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := rc.run(ctx, r, in)
		rc.program.Send(tui.DoneMsg{})
		done <- result{code, err}
	}()

	_, perr := rc.program.Run()
	cancel()
	res := <-done
	if perr != nil && !errors.Is(perr, tea.ErrProgramKilled) && res.err == nil {
		return res.code, perr
	}
	return res.code, res.err
}

// run feeds captures from in through a Worker until EOF, cancellation, or
// the first terminal outcome when once is set. The returned exit code is
// the most severe failure seen.
func (rc *receiver) run(ctx context.Context, r *session.Receiver, in io.Reader) (int, error) {
	if rc.now == nil {
		rc.now = time.Now
	}
	rc.started = make(map[string]time.Time)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := session.NewWorker(r, rc.backlog)
	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	readErr := make(chan error, 1)
	go func() {
		defer w.Close()
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxCaptureLen)
		for sc.Scan() {
			if err := w.Submit(ctx, sc.Text()); err != nil {
				readErr <- nil
				return
			}
		}
		readErr <- sc.Err()
	}()

	code := exitSuccess
	for o := range w.Outcomes() {
		if o.TransferID != "" {
			if _, ok := rc.started[o.TransferID]; !ok {
				rc.started[o.TransferID] = rc.now()
			}
		}
		rc.show(o)

		if o.Kind != types.OutcomeFinished && !o.Fatal() {
			continue
		}

		code = max(code, rc.complete(ctx, o))
		if rc.once {
			cancel()
			for range w.Outcomes() {
			}
			break
		}
	}

	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return code, err
	}
	if rc.once && code == exitSuccess && ctx.Err() == nil {
		// EOF before any transfer finished.
		return exitError, errors.New("input ended before a transfer finished")
	}
	select {
	case err := <-readErr:
		if err != nil {
			return code, fmt.Errorf("read captures: %w", err)
		}
	default:
	}
	return code, nil
}

// show reports progress to the TUI or the status writer.
func (rc *receiver) show(o session.Outcome) {
	if rc.program != nil {
		rc.program.Send(tui.OutcomeMsg(o))
		return
	}
	if rc.status == nil || o.Duplicate {
		return
	}
	switch {
	case o.Kind == types.OutcomeRejected && !o.Fatal():
		return
	case o.Fatal():
		fmt.Fprintf(rc.status, "%s: %v\n", o, o.Err)
	default:
		fmt.Fprintln(rc.status, o.String())
	}
}

// complete delivers a finished transfer, or records a corrupt one, then
// journals and publishes the result. Returns the exit code it implies.
func (rc *receiver) complete(ctx context.Context, o session.Outcome) int {
	now := rc.now()
	rec := lode.TransferRecord{
		TransferID:  o.TransferID,
		Name:        o.Name,
		Frames:      o.Expected,
		EncodedSize: int64(o.EncodedSize),
		CompletedAt: now,
	}

	code := exitSuccess
	if o.Kind == types.OutcomeFinished {
		rec.Kind = types.PayloadKind(o.Container.Kind())
		rec.Size = int64(o.Container.Size())

		receipt, err := rc.deliverer.Deliver(ctx, o.Container)
		if err != nil {
			rec.Status = types.TransferSinkFailed
			rec.Error = err.Error()
			code = exitSinkFailure
		} else {
			rec.Status = types.TransferDelivered
			rec.Location = receipt.Location
			rec.Overwritten = receipt.Overwritten
		}
		rc.reportDelivery(rec, err)
	} else {
		rec.Status = types.TransferCorrupt
		if o.Err != nil {
			rec.Error = o.Err.Error()
		}
		code = exitCorruptPayload
	}

	rc.record(ctx, rec)
	rc.publish(ctx, rec, rc.started[o.TransferID])
	delete(rc.started, o.TransferID)
	return code
}

func (rc *receiver) reportDelivery(rec lode.TransferRecord, err error) {
	if rc.program != nil {
		rc.program.Send(tui.DeliveredMsg{Name: rec.Name, Location: rec.Location, Err: err})
		return
	}
	if rc.status == nil {
		return
	}
	switch {
	case err != nil:
		fmt.Fprintf(rc.status, "%s: %v\n", rec.Name, err)
	case rec.Overwritten:
		fmt.Fprintf(rc.status, "%s overwritten at %s\n", rec.Name, rec.Location)
	default:
		fmt.Fprintf(rc.status, "%s saved to %s\n", rec.Name, rec.Location)
	}
}

func (rc *receiver) record(ctx context.Context, rec lode.TransferRecord) {
	if rc.journal == nil {
		return
	}
	if err := rc.journal.Append(ctx, rec); err != nil {
		rc.metrics.IncJournalWriteFailure()
		rc.logger.Warn("journal write failed", map[string]any{
			"transfer_id": rec.TransferID,
			"error":       err.Error(),
		})
		return
	}
	rc.metrics.IncJournalWriteSuccess()
}

func (rc *receiver) publish(ctx context.Context, rec lode.TransferRecord, started time.Time) {
	if rc.adapter == nil {
		return
	}
	event := adapter.NewTransferCompletedEvent(rec.TransferID, rec.Status, rec.CompletedAt)
	event.Name = rec.Name
	event.Kind = string(rec.Kind)
	event.Error = rec.Error
	event.Location = rec.Location
	event.Overwritten = rec.Overwritten
	event.Frames = rec.Frames
	event.Size = rec.Size
	event.EncodedSize = rec.EncodedSize
	if !started.IsZero() {
		event.DurationMs = rec.CompletedAt.Sub(started).Milliseconds()
	}

	if err := rc.adapter.Publish(ctx, event); err != nil {
		rc.metrics.IncNotifyFailure()
		rc.logger.Warn("notification failed", map[string]any{
			"transfer_id": rec.TransferID,
			"error":       err.Error(),
		})
	}
}

// resolveStorage resolves the Lode storage settings. An empty Path means
// files go to --out instead.
func resolveStorage(c *cli.Context, cfg *config.Config) lode.StoreConfig {
	return lode.StoreConfig{
		Backend: resolveString(c, "storage-backend", configVal(cfg, func(c *config.Config) string { return c.Storage.Backend })),
		Path:    resolveString(c, "storage-path", configVal(cfg, func(c *config.Config) string { return c.Storage.Path })),
		S3: lode.S3Config{
			Region:       resolveString(c, "storage-region", configVal(cfg, func(c *config.Config) string { return c.Storage.Region })),
			Endpoint:     resolveString(c, "storage-endpoint", configVal(cfg, func(c *config.Config) string { return c.Storage.Endpoint })),
			UsePathStyle: resolveBool(c, "storage-s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Storage.S3PathStyle })),
		},
	}
}

func buildFileSink(ctx context.Context, c *cli.Context, cfg *config.Config, storage lode.StoreConfig) (deliver.FileSink, error) {
	if storage.Backend == "" && storage.Path == "" {
		return deliver.NewDirSink(resolveString(c, "out", configVal(cfg, func(c *config.Config) string { return c.Receive.Output }))), nil
	}
	if storage.Path == "" {
		return nil, fmt.Errorf("--storage-path is required when --storage-backend is %s", storage.Backend)
	}
	factory, err := lode.NewFactory(ctx, storage)
	if err != nil {
		return nil, err
	}
	return lode.NewStoreFileWriter(factory, ""), nil
}

// buildTextSink opens --text-out for appending, or falls back to stdout.
func buildTextSink(c *cli.Context, cfg *config.Config) (deliver.TextSink, func(), error) {
	path := resolveString(c, "text-out", configVal(cfg, func(c *config.Config) string { return c.Receive.TextOut }))
	if path == "" {
		return deliver.NewWriterTextSink(c.App.Writer, "stdout"), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open --text-out: %w", err)
	}
	return deliver.NewWriterTextSink(f, path), func() { _ = f.Close() }, nil
}
