package codec

import (
	"testing"
)

func TestNew(t *testing.T) {
	for _, name := range []string{"json", "msgpack"} {
		c, err := New(name)
		if err != nil {
			t.Fatalf("New(%q) failed: %v", name, err)
		}
		if c.Name() != name {
			t.Errorf("Expected codec %q, got %q", name, c.Name())
		}
	}

	if _, err := New("gob"); err == nil {
		t.Error("Unknown codecs should be rejected")
	}
}

func TestCodecs(t *testing.T) {
	msg := NewMessage(KindGreeting, 7, "hello")
	if msg.SentAt == 0 {
		t.Fatal("NewMessage should stamp the send time")
	}

	for _, c := range []ICodec{NewJSONCodec(), NewMsgpackCodec()} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := c.Encode(msg)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			var got Message
			if err := c.Decode(b, &got); err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if got != msg {
				t.Errorf("Expected %+v, got %+v", msg, got)
			}

			if err := c.Decode([]byte{0xc1}, &got); err == nil {
				t.Error("Decoding garbage should fail")
			}
		})
	}
}

func TestMessageKindString(t *testing.T) {
	if KindHeartbeat.String() != "heartbeat" {
		t.Errorf("Expected heartbeat, got %s", KindHeartbeat)
	}
	if MessageKind(0).String() != "unknown" {
		t.Errorf("Expected unknown, got %s", MessageKind(0))
	}
}

func TestJSONFieldNames(t *testing.T) {
	b, err := NewJSONCodec().Encode(Message{Kind: KindReply, Seq: 1, SentAt: 2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if want := `{"kind":3,"seq":1,"sent_at":2}`; string(b) != want {
		t.Errorf("Expected %s, got %s", want, b)
	}
}
