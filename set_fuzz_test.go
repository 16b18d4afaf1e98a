package lazylist

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fuzzOp struct {
	typ byte
	key int
}

type fuzzRecord struct {
	index int
	op    fuzzOp
	start time.Time
	end   time.Time
	ok    bool
}

const (
	opContains byte = iota
	opInsert
	opDelete
)

// FuzzLockFreeSetLinearizability runs a handful of operations concurrently
// and searches for a sequential order, consistent with real time, that
// explains every result.
func FuzzLockFreeSetLinearizability(f *testing.F) {
	f.Add([]byte{1, 1, 0, 1, 2, 1})
	f.Add([]byte{1, 2, 2, 2, 0, 2})
	f.Add([]byte{2, 3, 1, 3, 0, 3})

	f.Fuzz(func(t *testing.T, input []byte) {
		checkLinearizableRun(t, NewIntLockFreeSet(), decodeFuzzOps(input, 5, 3))
	})
}

// FuzzLockCouplingSetLinearizability covers Insert and Delete only: Contains
// on the lock-coupling set is a best-effort read.
func FuzzLockCouplingSetLinearizability(f *testing.F) {
	f.Add([]byte{1, 1, 2, 1, 1, 1})
	f.Add([]byte{2, 2, 1, 2, 2, 2})

	f.Fuzz(func(t *testing.T, input []byte) {
		ops := decodeFuzzOps(input, 5, 2)
		for i := range ops {
			ops[i].typ++
		}
		checkLinearizableRun(t, NewIntLockCouplingSet(), ops)
	})
}

func checkLinearizableRun(t *testing.T, s Set[int, int], ops []fuzzOp) {
	if len(ops) == 0 {
		t.Skip()
	}

	records := make([]*fuzzRecord, len(ops))
	var wg sync.WaitGroup
	wg.Add(len(ops))
	for i, op := range ops {
		go func() {
			defer wg.Done()
			rec := &fuzzRecord{index: i, op: op}
			rec.start = time.Now()
			switch op.typ {
			case opContains:
				rec.ok = s.Contains(op.key)
			case opInsert:
				rec.ok = s.Insert(op.key)
			case opDelete:
				rec.ok = s.Delete(op.key)
			}
			rec.end = time.Now()
			records[i] = rec
		}()
	}
	wg.Wait()

	if !checkLinearizable(records) {
		t.Fatalf("non-linearizable history: %v", summarizeRecords(records))
	}
}

func decodeFuzzOps(input []byte, maxOps int, kinds byte) []fuzzOp {
	if maxOps <= 0 {
		return nil
	}
	ops := make([]fuzzOp, 0, maxOps)
	for i := 0; i+1 < len(input) && len(ops) < maxOps; i += 2 {
		ops = append(ops, fuzzOp{typ: input[i] % kinds, key: int(input[i+1] % 4)})
	}
	return ops
}

func checkLinearizable(records []*fuzzRecord) bool {
	n := len(records)
	if n == 0 {
		return true
	}

	deps := make([]uint32, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if !records[i].end.After(records[j].start) {
				deps[j] |= 1 << i
			}
		}
	}

	used := uint32(0)
	order := make([]*fuzzRecord, 0, n)

	var dfs func() bool
	dfs = func() bool {
		if len(order) == n {
			return validateSequential(order)
		}
		for i := 0; i < n; i++ {
			if used&(1<<i) != 0 {
				continue
			}
			if deps[i]&^used != 0 {
				continue
			}
			used |= 1 << i
			order = append(order, records[i])
			if dfs() {
				return true
			}
			order = order[:len(order)-1]
			used &^= 1 << i
		}
		return false
	}

	return dfs()
}

func validateSequential(order []*fuzzRecord) bool {
	model := make(map[int]bool)
	for _, rec := range order {
		present := model[rec.op.key]
		switch rec.op.typ {
		case opContains:
			if rec.ok != present {
				return false
			}
		case opInsert:
			if rec.ok == present {
				return false
			}
			model[rec.op.key] = true
		case opDelete:
			if rec.ok != present {
				return false
			}
			delete(model, rec.op.key)
		}
	}
	return true
}

func summarizeRecords(records []*fuzzRecord) string {
	parts := make([]string, 0, len(records))
	for _, rec := range records {
		parts = append(parts, fmt.Sprintf("{%d %d %t}", rec.op.typ, rec.op.key, rec.ok))
	}
	return fmt.Sprintf("%v", parts)
}
