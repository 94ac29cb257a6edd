package arithshard

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"
	"time"

	sherrors "github.com/tamirms/arithshard/errors"
)

const (
	// contextCheckInterval is how often, in lines, Run checks for cancellation.
	contextCheckInterval = 10000

	// maxLineLength bounds a single input line. Longer lines are rejected.
	maxLineLength = 1 << 20

	// rejectedTextLength caps Rejection.Text for an over-long line.
	rejectedTextLength = 64
)

// Rejection describes an input line that could not be hashed.
type Rejection struct {
	Line int // 1-based line number
	Text string
	Err  error
}

// Result is the outcome of a pipeline run.
type Result[F Float] struct {
	Index    *ShardIndex[F]
	Model    *Model
	Lines    int
	Rejected int
	Elapsed  time.Duration
}

// Pipeline reads newline-delimited strings, hashes each one and groups them
// into a ShardIndex.
//
// Usage:
//
//	p, err := arithshard.NewPipeline[float64](arithshard.WithWorkers(8))
//	if err != nil { return err }
//	res, err := p.Run(ctx, r)
//	if err != nil { return err }
//	fmt.Println(res.Index.ShardCount(), res.Index.MaxShardSize())
//
// A line with a symbol outside the alphabet, or one longer than 1 MiB, is
// rejected, reported to the reject handler and skipped; the run continues.
type Pipeline[F Float] struct {
	cfg *config
}

// NewPipeline validates opts and returns a reusable pipeline. Each Run builds
// a fresh model unless WithModel was given.
func NewPipeline[F Float](opts ...Option) (*Pipeline[F], error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Pipeline[F]{cfg: cfg}, nil
}

// RunFile opens path with OpenInput and runs the pipeline over it.
func (p *Pipeline[F]) RunFile(ctx context.Context, path string) (*Result[F], error) {
	f, err := OpenInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.Run(ctx, f)
}

// Run processes every line of r.
//
// In ModeSeeded the input is read twice. If r is an io.Seeker it is rewound
// between passes; otherwise lines are buffered in memory.
func (p *Pipeline[F]) Run(ctx context.Context, r io.Reader) (*Result[F], error) {
	start := time.Now()
	h, err := newHasher[F](p.cfg)
	if err != nil {
		return nil, err
	}

	var (
		lines   iter.Seq2[string, error]
		scanErr func() error
	)
	if p.cfg.mode == ModeSeeded {
		lines, scanErr, err = p.seed(ctx, h, r)
		if err != nil {
			return nil, err
		}
	} else {
		lines, scanErr = ScanLines(r)
	}

	res := &Result[F]{
		Index: NewShardIndex[F](),
		Model: h.model,
	}
	if p.cfg.workers > 1 {
		err = p.runParallel(ctx, h, lines, res)
	} else {
		err = p.runSequential(ctx, h, lines, res)
	}
	if err != nil {
		return nil, err
	}
	if err := scanErr(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	res.Elapsed = time.Since(start)

	p.cfg.logger.Debug("pipeline finished",
		slog.Int("lines", res.Lines),
		slog.Int("rejected", res.Rejected),
		slog.Int("shards", res.Index.ShardCount()),
		slog.Duration("elapsed", res.Elapsed))
	return res, nil
}

// seed runs the observation pass for ModeSeeded, freezes the model and
// returns a line source for the encoding pass.
func (p *Pipeline[F]) seed(ctx context.Context, h *Hasher[F], r io.Reader) (iter.Seq2[string, error], func() error, error) {
	rs, seekable := r.(io.ReadSeeker)
	var buffered []scannedLine

	lines, scanErr := ScanLines(r)
	n := 0
	for line, lineErr := range lines {
		n++
		if n%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
		if !seekable {
			buffered = append(buffered, scannedLine{text: line, err: lineErr})
		}
		if lineErr != nil {
			continue
		}
		if err := h.Observe(line); err != nil {
			if errors.Is(err, sherrors.ErrUnsupportedSymbol) {
				// Rejected again, and reported, in the encoding pass.
				continue
			}
			return nil, nil, err
		}
	}
	if err := scanErr(); err != nil {
		return nil, nil, fmt.Errorf("read input: %w", err)
	}
	h.Freeze()
	p.cfg.logger.Debug("model seeded", slog.Int("lines", n), slog.Uint64("total", h.model.Total()))

	if !seekable {
		return replayLines(buffered), func() error { return nil }, nil
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, nil, fmt.Errorf("rewind input: %w", err)
	}
	lines, scanErr = ScanLines(rs)
	return lines, scanErr, nil
}

func (p *Pipeline[F]) runSequential(ctx context.Context, h *Hasher[F], lines iter.Seq2[string, error], res *Result[F]) error {
	n := 0
	for line, lineErr := range lines {
		n++
		if n%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if lineErr != nil {
			p.reject(res, Rejection{Line: n, Text: line, Err: lineErr})
			continue
		}
		key, err := h.Hash(line)
		if err != nil {
			if !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
				return fmt.Errorf("line %d: %w", n, err)
			}
			p.reject(res, Rejection{Line: n, Text: line, Err: err})
			continue
		}
		res.Index.Insert(key, line)
	}
	res.Lines = n
	return nil
}

func (p *Pipeline[F]) reject(res *Result[F], rej Rejection) {
	res.Rejected++
	if p.cfg.onReject != nil {
		p.cfg.onReject(rej)
		return
	}
	p.cfg.logger.Warn("rejected line",
		slog.Int("line", rej.Line),
		slog.String("error", rej.Err.Error()))
}

// ScanLines returns the lines of r without their terminators, and a function
// reporting any read error once the sequence is exhausted.
//
// A line longer than maxLineLength does not stop the scan: it is yielded
// with an error wrapping sherrors.ErrLineTooLong and its text cut to a short
// prefix, and scanning resumes at the next line.
func ScanLines(r io.Reader) (iter.Seq2[string, error], func() error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var readErr error
	seq := func(yield func(string, error) bool) {
		var (
			line    []byte
			tooLong bool
		)
		for {
			frag, isPrefix, err := br.ReadLine()
			if err != nil {
				if err != io.EOF {
					readErr = err
				}
				return
			}
			if room := maxLineLength - len(line); len(frag) > room {
				tooLong = true
				frag = frag[:room]
			}
			line = append(line, frag...)
			if isPrefix {
				continue
			}

			var lineErr error
			text := strings.TrimSuffix(string(line), "\r")
			if tooLong {
				text = string(line[:rejectedTextLength])
				lineErr = fmt.Errorf("%w: longer than %d bytes", sherrors.ErrLineTooLong, maxLineLength)
			}
			line, tooLong = line[:0], false
			if !yield(text, lineErr) {
				return
			}
		}
	}
	return seq, func() error { return readErr }
}

// scannedLine is one buffered element of a ScanLines sequence.
type scannedLine struct {
	text string
	err  error
}

func replayLines(lines []scannedLine) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, l := range lines {
			if !yield(l.text, l.err) {
				return
			}
		}
	}
}
