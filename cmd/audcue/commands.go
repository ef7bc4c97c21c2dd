// SPDX-License-Identifier: EPL-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ik5/audcue"
	"github.com/ik5/audcue/audio"
	"github.com/ik5/audcue/config"
	"github.com/ik5/audcue/cuesheet"
)

const defaultMeterInterval = time.Second

var errUsage = errors.New("wrong number of arguments")

func args(cCtx *cli.Context, n int) ([]string, error) {
	if cCtx.NArg() != n {
		return nil, fmt.Errorf("%w: want %d, got %d", errUsage, n, cCtx.NArg())
	}

	return cCtx.Args().Slice(), nil
}

func open(cCtx *cli.Context, path string) (*audcue.File, error) {
	return audcue.Open(path, audcue.WithLogger(loggerFrom(cCtx)))
}

// closeInto folds the error of f.Close into err.
func closeInto(err *error, f *audcue.File) {
	*err = multierr.Append(*err, f.Close())
}

func infoAction(cCtx *cli.Context) (err error) {
	a, err := args(cCtx, 1)
	if err != nil {
		return err
	}

	f, err := open(cCtx, a[0])
	if err != nil {
		return err
	}
	defer closeInto(&err, f)

	out := cCtx.App.Writer
	format := f.Format()
	seconds := float64(f.TotalFrames()) / float64(format.SampleRate)

	fmt.Fprintf(out, "file:     %s\n", f.Path())
	fmt.Fprintf(out, "type:     %s\n", f.Ext())
	fmt.Fprintf(out, "format:   %d ch, %d Hz, %d bit\n", format.Channels, format.SampleRate, format.BitsPerSample)
	fmt.Fprintf(out, "frames:   %d (%.3fs)\n", f.TotalFrames(), seconds)
	fmt.Fprintf(out, "state:    %s\n", f.State())
	if title := f.Metadata().Title(); title != "" {
		fmt.Fprintf(out, "title:    %s\n", title)
	}
	fmt.Fprintf(out, "cues:     %d\n", len(f.Cues()))

	return nil
}

func cuesAction(cCtx *cli.Context) (err error) {
	a, err := args(cCtx, 1)
	if err != nil {
		return err
	}

	f, err := open(cCtx, a[0])
	if err != nil {
		return err
	}
	defer closeInto(&err, f)

	for _, c := range f.Cues() {
		msf := cuesheet.FormatMSF(cuesheet.SamplesToFrames(c.Location, f.SampleRate()))
		fmt.Fprintf(cCtx.App.Writer, "%d\t%s\t%s\n", c.Location, msf, c.Label)
	}

	return nil
}

func markAction(cCtx *cli.Context) (err error) {
	a, err := args(cCtx, 1)
	if err != nil {
		return err
	}

	f, err := open(cCtx, a[0])
	if err != nil {
		return err
	}
	defer closeInto(&err, f)

	if err := f.AddCue(cCtx.Int64(AtFlag), cCtx.String(LabelFlag)); err != nil {
		return err
	}

	return f.Update()
}

func recording(cCtx *cli.Context) (config.Recording, error) {
	if p := cCtx.String(ConfigFlag); p != "" {
		return config.Load(p)
	}

	return config.Defaults(), nil
}

// target opens path for appending, or creates it in the configured format.
func target(cCtx *cli.Context, path string) (*audcue.File, error) {
	log := audcue.WithLogger(loggerFrom(cCtx))

	if cCtx.Bool(AppendFlag) {
		if _, err := os.Stat(path); err == nil {
			return audcue.Open(path, log)
		}
	}

	rec, err := recording(cCtx)
	if err != nil {
		return nil, err
	}

	return audcue.CreateWith(path, rec, log)
}

func peak(vs []float32) float32 {
	var p float32
	for _, v := range vs {
		p = max(p, float32(math.Abs(float64(v))))
	}

	return p
}

// meter logs the peak of the latest tap samples every interval until done
// is closed.
func meter(log *zap.Logger, rb *audio.RingBuffer, interval time.Duration, done <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-done:
			return
		case <-t.C:
			p := peak(rb.Array())
			db := 20 * math.Log10(float64(max(p, 1e-6)))
			log.Info("level", zap.Float32("peak", p), zap.Float64("dbfs", db))
		}
	}
}

func recordAction(cCtx *cli.Context) (err error) {
	a, err := args(cCtx, 1)
	if err != nil {
		return err
	}

	log := loggerFrom(cCtx).Named("record")

	f, err := target(cCtx, a[0])
	if err != nil {
		return err
	}
	defer closeInto(&err, f)

	// a tenth of a second of the first channel
	rb := audio.NewRingBuffer(max(f.SampleRate()/10, 1))

	w, err := f.Writer(cCtx.Bool(AppendFlag), !cCtx.Bool(UnbufferedFlag), audcue.WithTap(rb))
	if err != nil {
		return err
	}

	if interval := cCtx.Duration(MeterFlag); interval > 0 {
		done := make(chan struct{})
		defer close(done)
		go meter(log, rb, interval, done)
	}

	n, err := io.Copy(w, cCtx.App.Reader)
	err = multierr.Append(err, w.Close())
	if err != nil {
		return fmt.Errorf("record %s: %w", a[0], err)
	}

	log.Info("recorded",
		zap.String("file", f.Path()),
		zap.Int64("bytes", n),
		zap.Int64("frames", f.TotalFrames()))

	return nil
}

func dumpAction(cCtx *cli.Context) (err error) {
	a, err := args(cCtx, 1)
	if err != nil {
		return err
	}

	f, err := open(cCtx, a[0])
	if err != nil {
		return err
	}
	defer closeInto(&err, f)

	r, err := f.ReaderRange(cCtx.Int64(StartFlag), cCtx.Int64(EndFlag))
	if err != nil {
		return err
	}
	if err := r.Open(); err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, r.Release()) }()

	_, err = io.Copy(cCtx.App.Writer, r)

	return err
}

func exportAction(cCtx *cli.Context) (err error) {
	a, err := args(cCtx, 2)
	if err != nil {
		return err
	}

	log := audcue.WithLogger(loggerFrom(cCtx))

	src, err := audcue.Open(a[0], log)
	if err != nil {
		return err
	}
	defer closeInto(&err, src)

	format := src.Format()
	if v := cCtx.Int(RateFlag); v > 0 {
		format.SampleRate = v
	}
	if v := cCtx.Int(ChannelsFlag); v > 0 {
		format.Channels = v
	}
	if v := cCtx.Int(BitsFlag); v > 0 {
		format.BitsPerSample = v
	}

	dst, err := audcue.Create(a[1], format.Channels, format.SampleRate, format.BitsPerSample, log)
	if err != nil {
		return err
	}
	defer closeInto(&err, dst)

	n, err := src.Export(dst, cCtx.Int64(StartFlag), cCtx.Int64(EndFlag))
	if err != nil {
		return err
	}

	fmt.Fprintf(cCtx.App.Writer, "%d frames, %d cues\n", n, len(dst.Cues()))

	return nil
}
