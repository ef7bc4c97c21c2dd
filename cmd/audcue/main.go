// SPDX-License-Identifier: EPL-2.0

// Command audcue inspects, marks, records, dumps and exports audio files
// with cue markers.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	VerboseFlag    = "verbose"
	AtFlag         = "at"
	LabelFlag      = "label"
	AppendFlag     = "append"
	UnbufferedFlag = "unbuffered"
	ConfigFlag     = "config"
	MeterFlag      = "meter"
	StartFlag      = "start"
	EndFlag        = "end"
	RateFlag       = "rate"
	ChannelsFlag   = "channels"
	BitsFlag       = "bits"
)

const loggerKey = "logger"

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

// loggerFrom returns the logger set up by Before, or a no-op one when a
// command runs without it.
func loggerFrom(cCtx *cli.Context) *zap.Logger {
	if l, ok := cCtx.App.Metadata[loggerKey].(*zap.Logger); ok {
		return l
	}

	return zap.NewNop()
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:  StartFlag,
			Usage: "first frame",
		},
		&cli.Int64Flag{
			Name:  EndFlag,
			Value: -1,
			Usage: "last frame, negative for the end of the payload",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "audcue",
		Usage: "work with cue-marked WAV, AIFF, MP3 and Ogg Vorbis files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    VerboseFlag,
				Aliases: []string{"v"},
				Usage:   "development logging at debug level",
			},
		},
		Before: func(cCtx *cli.Context) error {
			if _, ok := cCtx.App.Metadata[loggerKey]; ok {
				return nil
			}

			log, err := newLogger(cCtx.Bool(VerboseFlag))
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if cCtx.App.Metadata == nil {
				cCtx.App.Metadata = map[string]any{}
			}
			cCtx.App.Metadata[loggerKey] = log

			return nil
		},
		After: func(cCtx *cli.Context) error {
			_ = loggerFrom(cCtx).Sync()
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "info",
				Usage:     "Print format, state, title and cue count",
				ArgsUsage: "<file>",
				Action:    infoAction,
			},
			{
				Name:      "cues",
				Usage:     "List cues as frame, CD time and label",
				ArgsUsage: "<file>",
				Action:    cuesAction,
			},
			{
				Name:      "mark",
				Usage:     "Add a cue and persist it",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:     AtFlag,
						Usage:    "cue location in frames",
						Required: true,
					},
					&cli.StringFlag{
						Name:  LabelFlag,
						Usage: "cue label",
					},
				},
				Action: markAction,
			},
			{
				Name:      "record",
				Usage:     "Append raw PCM from stdin to a WAV or AIFF file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  AppendFlag,
						Usage: "keep the existing payload",
					},
					&cli.BoolFlag{
						Name:  UnbufferedFlag,
						Usage: "write every chunk straight to disk",
					},
					&cli.StringFlag{
						Name:  ConfigFlag,
						Usage: "TOML file with a [recording] table for new files",
					},
					&cli.DurationFlag{
						Name:  MeterFlag,
						Value: defaultMeterInterval,
						Usage: "peak level log interval, 0 disables",
					},
				},
				Action: recordAction,
			},
			{
				Name:      "dump",
				Usage:     "Write a raw PCM window to stdout",
				ArgsUsage: "<file>",
				Flags:     windowFlags(),
				Action:    dumpAction,
			},
			{
				Name:      "export",
				Usage:     "Convert a frame window of src into a new dst file",
				ArgsUsage: "<src> <dst>",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  RateFlag,
						Usage: "destination sample rate, 0 keeps the source rate",
					},
					&cli.IntFlag{
						Name:  ChannelsFlag,
						Usage: "destination channels (1 or the source count), 0 keeps the source",
					},
					&cli.IntFlag{
						Name:  BitsFlag,
						Usage: "destination bits per sample, 0 keeps the source",
					},
				}, windowFlags()...),
				Action: exportAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "audcue:", err)
		os.Exit(1)
	}
}
