package chat

import (
	"fmt"
	"testing"

	"vynel/internal/manager"
)

func TestBegin_ContextWindow(t *testing.T) {
	c := New()
	for i := 0; i < 5; i++ {
		c.Begin(fmt.Sprintf("q%d", i))
		c.Append(fmt.Sprintf("a%d", i))
		c.Finish("")
	}
	// 10 history messages; the context carries only the last 6.
	turns := c.Begin("next")
	if len(turns) != 1+MaxContextMessages+1 {
		t.Fatalf("len=%d", len(turns))
	}
	if turns[0].Role != manager.RoleSystem || turns[0].Content != SystemPrompt {
		t.Fatalf("first turn %+v", turns[0])
	}
	if turns[1].Content != "q2" || turns[6].Content != "a4" {
		t.Fatalf("window wrong: %+v", turns)
	}
	if last := turns[len(turns)-1]; last.Role != manager.RoleUser || last.Content != "next" {
		t.Fatalf("last turn %+v", last)
	}
}

func TestBegin_ExcludesPlaceholder(t *testing.T) {
	c := New()
	turns := c.Begin("hi")
	if len(turns) != 2 {
		t.Fatalf("expected system+user, got %+v", turns)
	}
	h := c.History()
	if len(h) != 2 || h[1].Role != manager.RoleAssistant || h[1].Content != "" {
		t.Fatalf("history %+v", h)
	}
}

func TestAbort_DropsEmptyReply(t *testing.T) {
	c := New()
	c.Begin("hi")
	c.Abort()
	h := c.History()
	if len(h) != 1 || h[0].Role != manager.RoleUser {
		t.Fatalf("history %+v", h)
	}
}

func TestAbort_KeepsPartialReply(t *testing.T) {
	c := New()
	c.Begin("hi")
	c.Append("Hel")
	c.Abort()
	if h := c.History(); len(h) != 2 || h[1].Content != "Hel" {
		t.Fatalf("history %+v", h)
	}
	c.Append("lo")
	if h := c.History(); h[1].Content != "Hel" {
		t.Fatalf("append after abort should be ignored: %+v", h)
	}
}

func TestFinish_ReplacesWithFinalContent(t *testing.T) {
	c := New()
	c.Begin("hi")
	c.Append("He")
	c.Finish("Hello")
	if h := c.History(); h[1].Content != "Hello" {
		t.Fatalf("history %+v", h)
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Begin("hi")
	c.Clear()
	if len(c.History()) != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestIsCommand(t *testing.T) {
	cases := []struct {
		in        string
		name, arg string
		ok        bool
	}{
		{"/reset", "reset", "", true},
		{" /model  gemma2:2b ", "model", "gemma2:2b", true},
		{"/QUIT", "quit", "", true},
		{"hello", "", "", false},
	}
	for _, c := range cases {
		n, a, ok := IsCommand(c.in)
		if n != c.name || a != c.arg || ok != c.ok {
			t.Fatalf("%q -> %q %q %v", c.in, n, a, ok)
		}
	}
}
