package bridge

import "testing"

func TestNotifyWithoutReceiver(t *testing.T) {
	SetNotifyImpl(nil)
	Notify("tool.ask.state", `{}`)
}

func TestNotifyForwardsToReceiver(t *testing.T) {
	var topics []string
	SetNotifyImpl(func(topic, payload string) { topics = append(topics, topic) })
	t.Cleanup(func() { SetNotifyImpl(nil) })

	Notify("tool.ask.state", `{"phase":"pending"}`)
	Notify("roi.updated", `{}`)

	if len(topics) != 2 || topics[0] != "tool.ask.state" || topics[1] != "roi.updated" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestFanout(t *testing.T) {
	var a, b int
	fn := Fanout(func(string, string) { a++ }, nil, func(string, string) { b++ })
	fn("roi.updated", `{}`)
	fn("roi.updated", `{}`)

	if a != 2 || b != 2 {
		t.Fatalf("expected both receivers called twice, got %d and %d", a, b)
	}
}
