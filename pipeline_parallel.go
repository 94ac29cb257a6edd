package arithshard

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"

	sherrors "github.com/tamirms/arithshard/errors"
	"golang.org/x/sync/errgroup"
)

// chanBufferMultiplier sizes the work and result channels per worker.
const chanBufferMultiplier = 2

// lineBatch is a run of consecutive input lines handed to one worker.
type lineBatch struct {
	seq       int
	firstLine int // 1-based number of lines[0]
	lines     []string
	scanErrs  []error // nil unless a line failed to scan
}

// batchResult holds the keys for a batch. errs[i] is non-nil when lines[i]
// was rejected.
type batchResult[F Float] struct {
	lineBatch
	keys []F
	errs []error
}

// runParallel encodes batches on cfg.workers goroutines. The model must be
// frozen. Results are applied to the index in input order by the calling
// goroutine, so the index matches a sequential run exactly.
func (p *Pipeline[F]) runParallel(ctx context.Context, h *Hasher[F], lines iter.Seq2[string, error], res *Result[F]) error {
	h.Freeze()

	workers := p.cfg.workers
	work := make(chan lineBatch, workers*chanBufferMultiplier)
	results := make(chan batchResult[F], workers*chanBufferMultiplier)

	g, gctx := errgroup.WithContext(ctx)

	var total int
	g.Go(func() error {
		defer close(work)
		return p.produceBatches(gctx, lines, work, &total)
	})

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		g.Go(func() error {
			defer wg.Done()
			return encodeBatches(gctx, h, work, results)
		})
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	// Reorder: batches finish out of order, the index is filled in order.
	pending := make(map[int]batchResult[F])
	next := 0
	for r := range results {
		pending[r.seq] = r
		for {
			b, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			p.applyBatch(b, res)
			next++
		}
	}

	if err := g.Wait(); err != nil {
		return err
	}
	res.Lines = total
	return nil
}

func (p *Pipeline[F]) produceBatches(ctx context.Context, lines iter.Seq2[string, error], work chan<- lineBatch, total *int) error {
	batchSize := p.cfg.batchSize
	cur := lineBatch{firstLine: 1, lines: make([]string, 0, batchSize)}
	n := 0
	send := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case work <- cur:
		case <-ctx.Done():
			return ctx.Err()
		}
		cur = lineBatch{
			seq:       cur.seq + 1,
			firstLine: n + 1,
			lines:     make([]string, 0, batchSize),
		}
		return nil
	}

	for line, lineErr := range lines {
		n++
		if lineErr != nil {
			if cur.scanErrs == nil {
				cur.scanErrs = make([]error, batchSize)
			}
			cur.scanErrs[len(cur.lines)] = lineErr
		}
		cur.lines = append(cur.lines, line)
		if len(cur.lines) == batchSize {
			if err := send(); err != nil {
				return err
			}
		}
	}
	if len(cur.lines) > 0 {
		if err := send(); err != nil {
			return err
		}
	}
	*total = n
	return nil
}

func encodeBatches[F Float](ctx context.Context, h *Hasher[F], work <-chan lineBatch, results chan<- batchResult[F]) error {
	for b := range work {
		r := batchResult[F]{
			lineBatch: b,
			keys:      make([]F, len(b.lines)),
			errs:      make([]error, len(b.lines)),
		}
		for i, line := range b.lines {
			if b.scanErrs != nil && b.scanErrs[i] != nil {
				r.errs[i] = b.scanErrs[i]
				continue
			}
			key, err := h.Hash(line)
			if err != nil && !errors.Is(err, sherrors.ErrUnsupportedSymbol) {
				return fmt.Errorf("line %d: %w", b.firstLine+i, err)
			}
			r.keys[i], r.errs[i] = key, err
		}
		select {
		case results <- r:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *Pipeline[F]) applyBatch(b batchResult[F], res *Result[F]) {
	for i, line := range b.lines {
		if b.errs[i] != nil {
			p.reject(res, Rejection{Line: b.firstLine + i, Text: line, Err: b.errs[i]})
			continue
		}
		res.Index.Insert(b.keys[i], line)
	}
}
