package grpcchannel_test

import (
	"testing"

	"github.com/tripwire/grpcchannel"
)

func TestStreamedRequest_Materialized(t *testing.T) {
	req := grpcchannel.NewStreamedRequestFromSlice([]int{1, 2, 3})
	var got []int
	for v := range req.Consume() {
		got = append(got, v)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("Consume() = %v, want [1 2 3]", got)
	}
}

func TestStreamedRequest_Live(t *testing.T) {
	req := grpcchannel.NewStreamedRequest[int](4)
	out := req.Consume()

	go func() {
		req.Send(10)
		req.Send(20)
		req.SendEOF()
	}()

	var got []int
	for v := range out {
		got = append(got, v)
	}
	if len(got) != 2 || got[0] != 10 || got[1] != 20 {
		t.Errorf("Consume() = %v, want [10 20]", got)
	}
}

func TestStreamedRequest_SendEOFIsIdempotent(t *testing.T) {
	req := grpcchannel.NewStreamedRequest[int](1)
	req.SendEOF()
	req.SendEOF() // must not panic
}

func TestStreamedRequest_DoubleConsumePanics(t *testing.T) {
	req := grpcchannel.NewStreamedRequestFromSlice([]int{1})
	_ = req.Consume()

	defer func() {
		if recover() == nil {
			t.Errorf("second Consume() should panic")
		}
	}()
	_ = req.Consume()
}

func TestStreamedRequest_SendAfterEOFPanics(t *testing.T) {
	req := grpcchannel.NewStreamedRequest[int](1)
	req.SendEOF()

	defer func() {
		if recover() == nil {
			t.Errorf("Send after SendEOF should panic")
		}
	}()
	req.Send(1)
}

func TestStreamedRequest_SendOnMaterializedPanics(t *testing.T) {
	req := grpcchannel.NewStreamedRequestFromSlice([]int{1})

	defer func() {
		if recover() == nil {
			t.Errorf("Send on materialized stream should panic")
		}
	}()
	req.Send(2)
}
