package deliver

import (
	"context"
	"errors"
	"fmt"

	"github.com/pithecene-io/qrtx/log"
	"github.com/pithecene-io/qrtx/metrics"
	"github.com/pithecene-io/qrtx/payload"
	"github.com/pithecene-io/qrtx/types"
)

var (
	// ErrSinkFailure marks every error returned by Deliver.
	ErrSinkFailure = errors.New("sink failure")

	// ErrNoSink is returned when no sink accepts the payload kind.
	ErrNoSink = errors.New("no sink configured")

	// ErrStillCompressed is returned for containers not yet decompressed.
	ErrStillCompressed = errors.New("payload still compressed")
)

// Receipt describes a delivered payload.
type Receipt struct {
	Kind types.PayloadKind
	Name string
	// Location is where the payload went (file path, store key, "stdout").
	Location string
	// Overwritten is set when a file sink replaced an existing file.
	Overwritten bool
	Size        int
}

// Deliverer routes finished containers to their sinks.
type Deliverer struct {
	Files FileSink
	Text  TextSink

	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Deliver hands c to the sink for its kind.
//
// Clipboard bodies that are not valid UTF-8 are written to the file sink
// under payload.ClipboardName. Every error wraps ErrSinkFailure.
func (d *Deliverer) Deliver(ctx context.Context, c *payload.Container) (Receipt, error) {
	logger := d.Logger
	if logger == nil {
		logger = log.Nop()
	}

	r, err := d.deliver(ctx, c, logger)
	if err != nil {
		d.Metrics.IncDeliveryFailure()
		logger.Error("delivery failed", map[string]any{
			"name":  c.Name,
			"kind":  c.Kind(),
			"error": err.Error(),
		})
		return r, fmt.Errorf("%w: %w", ErrSinkFailure, err)
	}

	d.Metrics.IncDeliverySuccess(r.Size)
	logger.Info("payload delivered", map[string]any{
		"name":        r.Name,
		"kind":        string(r.Kind),
		"location":    r.Location,
		"overwritten": r.Overwritten,
		"size":        r.Size,
	})
	return r, nil
}

func (d *Deliverer) deliver(ctx context.Context, c *payload.Container, logger *log.Logger) (Receipt, error) {
	r := Receipt{
		Kind: types.PayloadKind(c.Kind()),
		Name: c.Name,
		Size: c.Size(),
	}
	if c.Compressed {
		return r, ErrStillCompressed
	}

	if c.IsClipboard() {
		text, err := c.Text()
		if err == nil {
			if d.Text == nil {
				return r, fmt.Errorf("%w for clipboard text", ErrNoSink)
			}
			r.Location, err = d.Text.WriteText(ctx, text)
			return r, err
		}
		logger.Warn("clipboard payload is not text, saving as file", map[string]any{"size": c.Size()})
		r.Kind = types.PayloadFile
		r.Name = payload.ClipboardName
	}

	if d.Files == nil {
		return r, fmt.Errorf("%w for files", ErrNoSink)
	}
	var err error
	r.Location, r.Overwritten, err = d.Files.PutFile(ctx, r.Name, c.Body)
	return r, err
}
