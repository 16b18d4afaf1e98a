// Package driver runs randomized multi-threaded workloads against a
// lazylist set and logs a record around every operation.
package driver

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/metailurini/lazylist"
	"github.com/metailurini/lazylist/seqset"
)

var (
	// ErrOrderViolation is returned when the final snapshot is not strictly
	// ascending.
	ErrOrderViolation = errors.New("driver: snapshot out of order")
	// ErrVerificationFailed is returned when a partitioned run disagrees
	// with its sequential model.
	ErrVerificationFailed = errors.New("driver: results differ from sequential model")
)

// Report summarizes a finished run.
type Report struct {
	Strategy string
	Elapsed  time.Duration
	// Ops counts the operations issued, by name.
	Ops map[string]int64
	// Effective counts the operations that returned true, by name.
	Effective  map[string]int64
	Len        int64
	Snapshot   []int
	Stats      lazylist.Stats
	Mismatches int64
}

// NewSet builds the set selected by strategy.
func NewSet(strategy string, log *logrus.Entry) (lazylist.Set[int, int], error) {
	opts := []lazylist.Option{lazylist.WithLogger(log)}
	switch strategy {
	case StrategyLockCoupling:
		return lazylist.NewIntLockCouplingSet(opts...), nil
	case StrategyLockFree:
		return lazylist.NewIntLockFreeSet(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfig, strategy)
	}
}

type worker struct {
	id      int
	cfg     Config
	set     lazylist.Set[int, int]
	records *logrus.Logger
	base    time.Time
	rng     *rand.Rand
	// low is the smallest item this worker draws.
	low   int
	model *seqset.SkipList[int, struct{}]

	ops        map[string]int64
	effective  map[string]int64
	mismatches int64
}

// Run executes cfg against a fresh set. Operation records go to records;
// the set's own diagnostics go to diag. A canceled ctx stops the workers
// between operations and is returned with the partial report.
func Run(ctx context.Context, cfg Config, records *logrus.Logger, diag *logrus.Entry) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := NewSet(cfg.Strategy, diag)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	diag.WithFields(logrus.Fields{
		"strategy": cfg.Strategy,
		"threads":  cfg.Threads,
		"ops":      cfg.OpsPerThread,
		"seed":     seed,
	}).Debug("starting workload")

	base := time.Now()
	workers := make([]*worker, cfg.Threads)
	for i := range workers {
		id := i + 1
		w := &worker{
			id:        id,
			cfg:       cfg,
			set:       s,
			records:   records,
			base:      base,
			rng:       rand.New(rand.NewSource(seed + int64(id))),
			low:       1,
			ops:       make(map[string]int64),
			effective: make(map[string]int64),
		}
		if cfg.Partitioned {
			w.low = i*cfg.MaxItem + 1
			w.model = seqset.New[int, struct{}](seqset.WithSeed(uint64(seed) + uint64(id)))
		}
		workers[i] = w
	}

	var wg sync.WaitGroup
	wg.Add(len(workers))
	for _, w := range workers {
		go func(w *worker) {
			defer wg.Done()
			w.run(ctx)
		}(w)
	}
	wg.Wait()

	report := &Report{
		Strategy:  cfg.Strategy,
		Elapsed:   time.Since(base),
		Ops:       make(map[string]int64),
		Effective: make(map[string]int64),
		Len:       s.Len(),
		Snapshot:  s.Snapshot(),
		Stats:     s.Stats(),
	}
	for _, w := range workers {
		for op, n := range w.ops {
			report.Ops[op] += n
		}
		for op, n := range w.effective {
			report.Effective[op] += n
		}
		report.Mismatches += w.mismatches
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if err := verify(report, workers, cfg.Partitioned); err != nil {
		return report, err
	}
	return report, nil
}

func verify(report *Report, workers []*worker, partitioned bool) error {
	snap := report.Snapshot
	for i := 1; i < len(snap); i++ {
		if snap[i-1] >= snap[i] {
			return fmt.Errorf("%w: %d before %d", ErrOrderViolation, snap[i-1], snap[i])
		}
	}
	if !partitioned {
		return nil
	}
	if report.Mismatches > 0 {
		return fmt.Errorf("%w: %d results", ErrVerificationFailed, report.Mismatches)
	}
	var expected []int
	for _, w := range workers {
		expected = append(expected, w.model.Keys()...)
	}
	if len(expected) != len(snap) {
		return fmt.Errorf("%w: model has %d items, set has %d", ErrVerificationFailed, len(expected), len(snap))
	}
	for i := range expected {
		if expected[i] != snap[i] {
			return fmt.Errorf("%w: item %d is %d, model has %d", ErrVerificationFailed, i, snap[i], expected[i])
		}
	}
	if report.Len != int64(len(snap)) {
		return fmt.Errorf("%w: length %d, snapshot has %d", ErrVerificationFailed, report.Len, len(snap))
	}
	return nil
}

func (w *worker) run(ctx context.Context) {
	for i := 0; i < w.cfg.OpsPerThread; i++ {
		if ctx.Err() != nil {
			return
		}
		item := w.item()
		switch op := w.pick(); op {
		case OpContains:
			w.record(op, StatusStarted, item, nil, nil)
			res := w.set.Contains(item)
			w.record(op, StatusFinished, item, nil, &res)
			w.check(res, w.modelContains, item)
		case OpInsert:
			w.record(op, StatusStarted, item, nil, nil)
			res := w.set.Insert(item)
			w.record(op, StatusFinished, item, nil, &res)
			w.check(res, w.modelInsert, item)
		case OpDelete:
			w.record(op, StatusStarted, item, nil, nil)
			res := w.set.Delete(item)
			w.record(op, StatusFinished, item, nil, &res)
			w.check(res, w.modelDelete, item)
		case OpReplace:
			other := w.item()
			w.record(op, StatusStarted, item, &other, nil)
			res := w.set.Replace(item, other)
			w.record(op, StatusFinished, item, &other, &res)
			w.check(res, func(int) bool { return w.modelReplace(item, other) }, item)
		}
	}
}

func (w *worker) item() int {
	return w.low + w.rng.Intn(w.cfg.MaxItem)
}

func (w *worker) pick() string {
	if w.cfg.Mix == MixReadHeavy {
		switch n := w.rng.Intn(10); {
		case n < 7:
			return OpContains
		case n == 7:
			return OpInsert
		case n == 8:
			return OpDelete
		default:
			return OpReplace
		}
	}
	return [...]string{OpContains, OpInsert, OpDelete, OpReplace}[w.rng.Intn(4)]
}

func (w *worker) record(op, status string, item1 int, item2 *int, result *bool) {
	fields := logrus.Fields{
		FieldElapsed: time.Since(w.base).Nanoseconds(),
		FieldThread:  w.id,
		FieldOp:      op,
		FieldStatus:  status,
		FieldItem1:   item1,
	}
	if item2 != nil {
		fields[FieldItem2] = *item2
	}
	if result != nil {
		fields[FieldResult] = *result
		w.ops[op]++
		if *result {
			w.effective[op]++
		}
	}
	w.records.WithFields(fields).Info(op)
}

// check compares res with the sequential model when the run is partitioned.
func (w *worker) check(res bool, model func(int) bool, item int) {
	if w.model == nil {
		return
	}
	if want := model(item); want != res {
		w.mismatches++
	}
}

func (w *worker) modelContains(item int) bool { return w.model.Has(item) }

func (w *worker) modelInsert(item int) bool { return w.model.Insert(item, struct{}{}) }

func (w *worker) modelDelete(item int) bool { return w.model.Remove(item) }

func (w *worker) modelReplace(oldItem, newItem int) bool {
	if oldItem == newItem {
		return w.model.Insert(newItem, struct{}{})
	}
	removed := w.model.Remove(oldItem)
	added := w.model.Insert(newItem, struct{}{})
	return removed || added
}
