package util

import (
	"strings"
	"testing"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}

	if got := WrapString("short text"); got != "short text" {
		t.Errorf("Expected unchanged short text, got %q", got)
	}
}

func TestSplitEndpoint(t *testing.T) {
	host, port, err := SplitEndpoint("127.0.0.1:1234")
	if err != nil || host != "127.0.0.1" || port != 1234 {
		t.Errorf("Expected 127.0.0.1 1234, got %q %d %v", host, port, err)
	}

	host, port, err = SplitEndpoint(":8080")
	if err != nil || host != "" || port != 8080 {
		t.Errorf("Expected empty host and 8080, got %q %d %v", host, port, err)
	}

	for _, bad := range []string{"127.0.0.1", "127.0.0.1:http", "127.0.0.1:70000"} {
		if _, _, err := SplitEndpoint(bad); err == nil {
			t.Errorf("SplitEndpoint(%q) should fail", bad)
		}
	}
}
