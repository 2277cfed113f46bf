package pool

import (
	"testing"
	"time"
)

type obj struct {
	n int
	p *int
}

func Test_Pool(t *testing.T) {
	p := For[obj]()
	if p != For[obj]() {
		t.Fatal("For must return the same pool for the same type")
	}

	x := 1
	for i := 0; i < 64; i++ {
		o := p.Get()
		if o.n != 0 || o.p != nil {
			t.Fatal("pooled object is not zeroed")
		}
		o.n, o.p = i, &x
		p.Put(o)
	}
}

func Test_Timer(t *testing.T) {
	tm := GetTimer(time.Millisecond)
	<-tm.C
	ResetAndDrainTimer(tm, time.Hour)
	ReleaseTimer(tm)

	tm = GetTimer(time.Millisecond)
	select {
	case <-tm.C:
	case <-time.After(time.Second):
		t.Fatal("timer from pool did not fire")
	}
	ReleaseTimer(tm)
	ReleaseTimer(nil)
}
