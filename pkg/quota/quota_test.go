package quota

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var addr = common.HexToAddress("0x0000000000000000000000000000000000000042")

func TestCanReduce(t *testing.T) {
	tr := NewTracker()
	tr.Set(addr, Usage{Reserved: 100, Used: 90})

	tests := []struct {
		name  string
		delta uint64
		want  bool
	}{
		{"exact headroom", 10, true},
		{"below usage", 20, false},
		{"zero", 0, true},
		{"underflow", 101, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.CanReduce(addr, tt.delta); got != tt.want {
				t.Fatalf("CanReduce(%d) = %v, want %v", tt.delta, got, tt.want)
			}
		})
	}
}

func TestUnknownAccount(t *testing.T) {
	tr := NewTracker()
	if tr.CanReduce(addr, 0) {
		t.Fatal("unknown account must not be reducible")
	}
	if tr.CanStore(addr, 0) {
		t.Fatal("unknown account must not accept uploads")
	}
	if _, ok := tr.Remaining(addr); ok {
		t.Fatal("Remaining reported a value for an unknown account")
	}
}

func TestRemainingAndForget(t *testing.T) {
	tr := NewTracker()
	tr.Set(addr, Usage{Reserved: 1 << 20, Used: 10 << 10})

	rem, ok := tr.Remaining(addr)
	if !ok || rem != (1<<20)-(10<<10) {
		t.Fatalf("Remaining = %d, %v", rem, ok)
	}
	if !tr.CanStore(addr, rem) || tr.CanStore(addr, rem+1) {
		t.Fatal("CanStore boundary is wrong")
	}

	tr.Forget(addr)
	if _, ok := tr.Usage(addr); ok {
		t.Fatal("Forget left the account in place")
	}
}

func TestOverusedAccountHasNoRemaining(t *testing.T) {
	u := Usage{Reserved: 10, Used: 12}
	if u.Remaining() != 0 || u.Fits(1) {
		t.Fatalf("overused account reports space: %+v", u)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			tr.Set(addr, Usage{Reserved: 100, Used: uint64(i)})
		}(i)
		go func() {
			defer wg.Done()
			_ = tr.CanReduce(addr, 1)
		}()
	}
	wg.Wait()
	if _, ok := tr.Usage(addr); !ok {
		t.Fatal("expected a recorded usage")
	}
}
