package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/qrtx/cli/config"
	"github.com/pithecene-io/qrtx/cli/render"
	"github.com/pithecene-io/qrtx/cli/tui"
	"github.com/pithecene-io/qrtx/frame"
	"github.com/pithecene-io/qrtx/metrics"
	"github.com/pithecene-io/qrtx/payload"
	"github.com/pithecene-io/qrtx/session"
)

// SendResponse is the rendered frame sequence of the send command.
type SendResponse struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	Size        int      `json:"size"`
	EncodedSize int      `json:"encoded_size"`
	Compressed  bool     `json:"compressed"`
	ChunkSize   int      `json:"chunk_size"`
	Frames      []string `json:"frames"`
}

// SendCommand returns the send command.
func SendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Encode a file or text as a frame sequence",
		ArgsUsage: "[FILE]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "text",
				Usage: "Send STRING as clipboard text instead of a file",
			},
			&cli.BoolFlag{
				Name:  "stdin-text",
				Usage: "Send standard input as clipboard text",
			},
			&cli.IntFlag{
				Name:  "capacity",
				Usage: "Frame text length, header included",
				Value: frame.DefaultCapacity,
			},
			&cli.BoolFlag{
				Name:  "no-compress",
				Usage: "Send the body uncompressed",
			},
			&cli.DurationFlag{
				Name:  "autoplay",
				Usage: "TUI autoplay interval",
				Value: tui.DefaultAutoplay,
			},
			ConfigFlag,
			LogLevelFlag,
			FormatFlag,
			NoColorFlag,
			TUIFlag,
		},
		Action: sendAction,
	}
}

func sendAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	container, err := sendContainer(c, os.Stdin)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	capacity := resolveInt(c, "capacity", configVal(cfg, func(c *config.Config) int { return c.Send.Capacity }))
	if capacity < frame.MinCapacity {
		return cli.Exit(fmt.Sprintf("--capacity must be at least %d, got %d", frame.MinCapacity, capacity), exitError)
	}
	opts := session.SendOptions{
		ChunkSize: frame.ChunkSizeForCapacity(capacity),
		Compress:  resolveCompress(c, cfg),
	}

	if c.Bool("tui") {
		interval := resolveDuration(c, "autoplay", configVal(cfg, func(c *config.Config) time.Duration { return c.Send.Autoplay.Duration }))
		collector := metrics.NewCollector("send", "")
		if err := tui.RunSendTUI(container, opts, interval, collector); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
		return nil
	}

	seq, err := session.BuildFrames(container, opts)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	resp := SendResponse{
		Name:        seq.Name,
		Kind:        container.Kind(),
		Size:        container.Size(),
		EncodedSize: seq.EncodedSize,
		Compressed:  opts.Compress,
		ChunkSize:   opts.ChunkSize,
		Frames:      seq.Frames,
	}

	// Without --format the frames are printed one per line for piping into
	// an external encoder.
	if c.String("format") == "" {
		return writeFrames(c.App.Writer, resp.Frames)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	return r.Render(resp)
}

// sendContainer builds the container from exactly one of FILE, --text or
// --stdin-text.
func sendContainer(c *cli.Context, stdin io.Reader) (*payload.Container, error) {
	sources := 0
	if c.Args().Present() {
		sources++
	}
	if c.IsSet("text") {
		sources++
	}
	if c.Bool("stdin-text") {
		sources++
	}
	if sources != 1 {
		return nil, fmt.Errorf("exactly one of FILE, --text or --stdin-text is required")
	}

	switch {
	case c.IsSet("text"):
		return payload.NewText(c.String("text")), nil
	case c.Bool("stdin-text"):
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return payload.NewText(string(data)), nil
	default:
		if c.NArg() > 1 {
			return nil, fmt.Errorf("send takes one FILE, got %d", c.NArg())
		}
		path := c.Args().First()
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return payload.NewFile(filepath.Base(path), data), nil
	}
}

// resolveCompress defaults to compressed; config and then --no-compress
// override it.
func resolveCompress(c *cli.Context, cfg *config.Config) bool {
	if c.IsSet("no-compress") {
		return !c.Bool("no-compress")
	}
	if p := configVal(cfg, func(c *config.Config) *bool { return c.Send.Compress }); p != nil {
		return *p
	}
	return true
}

func writeFrames(w io.Writer, frames []string) error {
	_, err := io.WriteString(w, strings.Join(frames, "\n")+"\n")
	return err
}
