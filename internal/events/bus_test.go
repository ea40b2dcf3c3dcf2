package events

import "testing"

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers")
	}
	unsub := b.Subscribe(func(Event) {})
	if b.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber")
	}
	unsub()
	unsub()
	if b.SubscriberCount() != 0 {
		t.Fatalf("expected 0 subscribers after unsubscribe")
	}
}

func TestPublish_InOrder(t *testing.T) {
	b := NewBus()
	defer b.Close()
	var got []string
	b.Subscribe(func(e Event) { got = append(got, "a:"+e.URI) })
	b.Subscribe(func(e Event) { got = append(got, "b:"+e.URI) })

	b.Publish(Event{Kind: NoteAdded, URI: "note://gnote/1"})

	want := []string{"a:note://gnote/1", "b:note://gnote/1"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPublish_Reentrant(t *testing.T) {
	b := NewBus()
	defer b.Close()
	var kinds []Kind
	b.Subscribe(func(e Event) {
		kinds = append(kinds, e.Kind)
		if e.Kind == NoteRenamed {
			b.Publish(Event{Kind: NoteSaved, URI: e.URI})
		}
	})
	b.Publish(Event{Kind: NoteRenamed, URI: "u"})
	if len(kinds) != 2 || kinds[1] != NoteSaved {
		t.Errorf("kinds = %v", kinds)
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	b := NewBus()
	defer b.Close()
	calls := 0
	var unsub func()
	unsub = b.Subscribe(func(Event) {
		calls++
		unsub()
	})
	b.Publish(Event{Kind: NoteSaved})
	b.Publish(Event{Kind: NoteSaved})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClose(t *testing.T) {
	b := NewBus()
	called := false
	b.Subscribe(func(Event) { called = true })
	b.Close()
	b.Close()
	b.Publish(Event{Kind: NoteDeleted})
	if called {
		t.Error("handler called after Close")
	}
	if b.SubscriberCount() != 0 {
		t.Error("subscribers left after Close")
	}
}
