package events_test

import (
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/forgebuild/engine/pkg/events"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := events.New()
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(events.Event{Name: events.BuildStatus, Payload: "started"})

	select {
	case e := <-ch:
		assert.Equal(t, e.Name, events.BuildStatus)
		assert.Equal(t, e.Payload, "started")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := events.New()
	ch, unsub := b.Subscribe()
	assert.Equal(t, b.SubscriberCount(), 1)

	unsub()
	assert.Equal(t, b.SubscriberCount(), 0)

	_, open := <-ch
	assert.Assert(t, !open)
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	b := events.New()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Publish(events.Event{Name: events.ProjectBuildStatus, Project: "core"})

	for _, ch := range []<-chan events.Event{ch1, ch2} {
		select {
		case e := <-ch:
			assert.Equal(t, e.Project, "core")
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}
