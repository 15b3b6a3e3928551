package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/qrtx/cli/config"
	"github.com/pithecene-io/qrtx/cli/render"
	"github.com/pithecene-io/qrtx/lode"
	"github.com/pithecene-io/qrtx/types"
)

// HistoryRow is one rendered journal record.
type HistoryRow struct {
	TransferID  string    `json:"transfer_id" yaml:"transfer_id"`
	Name        string    `json:"name" yaml:"name"`
	Kind        string    `json:"kind" yaml:"kind"`
	Status      string    `json:"status" yaml:"status"`
	Frames      int       `json:"frames" yaml:"frames"`
	Size        int64     `json:"size" yaml:"size"`
	Location    string    `json:"location" yaml:"location"`
	Error       string    `json:"error,omitempty" yaml:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at" yaml:"completed_at"`
}

// HistoryCommand returns the history command.
func HistoryCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "journal",
			Usage: "Directory of the transfer journal",
		},
		&cli.StringFlag{
			Name:  "day",
			Usage: "Only transfers completed on YYYY-MM-DD (UTC)",
		},
		&cli.StringFlag{
			Name:  "status",
			Usage: "Only transfers with status: delivered, corrupt_payload, sink_failed",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum records to show (0 for all)",
			Value: 50,
		},
		ConfigFlag,
	}
	flags = append(flags, ReadOnlyFlags()...)

	return &cli.Command{
		Name:   "history",
		Usage:  "List received transfers from the journal, newest first",
		Flags:  flags,
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for history command", exitError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	filter, err := parseHistoryFilter(c)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	path := resolveString(c, "journal", configVal(cfg, func(c *config.Config) string { return c.Journal.Path }))
	if path == "" {
		return cli.Exit("--journal is required (or journal.path in --config)", exitError)
	}
	journal, err := lode.NewJournalFS(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("journal: %v", err), exitError)
	}

	records, err := journal.List(c.Context, filter)
	if err != nil && !errors.Is(err, lode.ErrNoTransfers) {
		return cli.Exit(fmt.Sprintf("journal: %v", err), exitError)
	}

	return r.Render(historyRows(records))
}

func parseHistoryFilter(c *cli.Context) (lode.HistoryFilter, error) {
	filter := lode.HistoryFilter{
		Day:    c.String("day"),
		Status: types.TransferStatus(c.String("status")),
		Limit:  c.Int("limit"),
	}
	if filter.Day != "" {
		if _, err := time.Parse("2006-01-02", filter.Day); err != nil {
			return filter, fmt.Errorf("invalid --day %q: expected YYYY-MM-DD", filter.Day)
		}
	}
	switch filter.Status {
	case "", types.TransferDelivered, types.TransferCorrupt, types.TransferSinkFailed:
	default:
		return filter, fmt.Errorf("invalid --status %q: must be %s, %s or %s",
			filter.Status, types.TransferDelivered, types.TransferCorrupt, types.TransferSinkFailed)
	}
	if filter.Limit < 0 {
		return filter, fmt.Errorf("--limit must not be negative, got %d", filter.Limit)
	}
	return filter, nil
}

func historyRows(records []lode.TransferRecord) []HistoryRow {
	rows := make([]HistoryRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, HistoryRow{
			TransferID:  rec.TransferID,
			Name:        rec.Name,
			Kind:        string(rec.Kind),
			Status:      string(rec.Status),
			Frames:      rec.Frames,
			Size:        rec.Size,
			Location:    rec.Location,
			Error:       rec.Error,
			CompletedAt: rec.CompletedAt,
		})
	}
	return rows
}
