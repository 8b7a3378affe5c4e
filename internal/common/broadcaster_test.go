package common_test

import (
	"testing"
	"time"

	"github.com/avkit/player-bridge/internal/common"
)

func TestBroadcaster_FansOutToEverySubscriber(t *testing.T) {
	// given
	uut := common.NewBroadcaster[int]()
	uut.Broadcast()

	first := make(chan int, 4)
	second := make(chan int, 4)
	uut.Subscribe(common.SubscriberFunc[int](func(payload int) { first <- payload }))
	uut.Subscribe(common.SubscriberFunc[int](func(payload int) { second <- payload }))

	// when
	uut.Send(7)

	// then
	for name, out := range map[string]chan int{"first": first, "second": second} {
		select {
		case payload := <-out:
			if payload != 7 {
				t.Errorf("Expected payload %d received by %s subscriber to equal 7", payload, name)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("Timed out waiting for payload on %s subscriber", name)
		}
	}
}
