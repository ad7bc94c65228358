package ringbuf

import "testing"

func TestNewDefaults(t *testing.T) {
	r := New(4)
	if r.Cap() != 4 {
		t.Fatalf("Cap: got %d want 4", r.Cap())
	}
	if r.Len() != 0 {
		t.Fatalf("Len: got %d want 0", r.Len())
	}
}

func TestPushPop(t *testing.T) {
	r := New(4)
	r.Push([]float64{1, 2, 3})
	if r.Len() != 3 {
		t.Fatalf("Len: got %d want 3", r.Len())
	}

	out := make([]float64, 2)
	n := r.Pop(out)
	if n != 2 || out[0] != 1 || out[1] != 2 {
		t.Fatalf("Pop: got %v (n=%d)", out, n)
	}
	if r.Len() != 1 {
		t.Fatalf("Len after pop: got %d want 1", r.Len())
	}
}

func TestPushWraps(t *testing.T) {
	r := New(4)
	r.Push([]float64{1, 2, 3, 4})
	r.Drop(2)
	r.Push([]float64{5, 6})

	out := make([]float64, 4)
	n := r.Peek(out)
	if n != 4 {
		t.Fatalf("Peek: got n=%d want 4", n)
	}
	want := []float64{3, 4, 5, 6}
	for i, v := range want {
		if out[i] != v {
			t.Fatalf("Peek[%d]: got %v want %v", i, out, want)
		}
	}
}

func TestPushGrows(t *testing.T) {
	r := New(2)
	r.Push([]float64{1, 2, 3, 4, 5})
	if r.Len() != 5 {
		t.Fatalf("Len: got %d want 5", r.Len())
	}
	if r.Cap() < 5 {
		t.Fatalf("Cap: got %d want >= 5", r.Cap())
	}
	out := make([]float64, 5)
	r.Peek(out)
	for i := range out {
		if out[i] != float64(i+1) {
			t.Fatalf("Peek[%d]: got %v", i, out)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	r := New(4)
	r.Push([]float64{1, 2})
	if r.At(-1) != 0 || r.At(5) != 0 {
		t.Fatalf("At out of range should return 0")
	}
}

func TestPushZerosAndReset(t *testing.T) {
	r := New(4)
	r.PushZeros(3)
	if r.Len() != 3 {
		t.Fatalf("Len: got %d want 3", r.Len())
	}
	for i := 0; i < 3; i++ {
		if r.At(i) != 0 {
			t.Fatalf("At(%d): got %v want 0", i, r.At(i))
		}
	}
	r.Reset()
	if r.Len() != 0 {
		t.Fatalf("Len after reset: got %d want 0", r.Len())
	}
}

func TestFreeAccounting(t *testing.T) {
	r := New(4)
	if r.Free() != 4 {
		t.Fatalf("Free: got %d want 4", r.Free())
	}
	r.Push([]float64{1, 2})
	if r.Free() != 2 {
		t.Fatalf("Free: got %d want 2", r.Free())
	}
}
