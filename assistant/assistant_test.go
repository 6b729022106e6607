package assistant

import (
	"context"
	"testing"

	"github.com/hikoneportal/transit-api/config"
)

func TestNew_MockModeWithoutCredential(t *testing.T) {
	creds := config.NewResolverWithLookup(func(string) string { return "" })

	a, err := New(context.Background(), creds, "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("a missing credential must not be an error: %v", err)
	}
	if !a.MockMode() {
		t.Error("expected mock mode without a credential")
	}
}

func TestReply_MockMode(t *testing.T) {
	creds := config.NewResolverWithLookup(func(string) string { return "" })
	a, err := New(context.Background(), creds, "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	for i := 0; i < 10; i++ {
		reply, err := a.Reply(context.Background(), "こんにちは")
		if err != nil {
			t.Fatalf("Reply returned error: %v", err)
		}
		if reply == "" {
			t.Fatal("expected a non-empty mock reply")
		}
		found := false
		for _, mock := range mockReplies {
			if reply == mock {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("reply %q is not one of the scripted mock replies", reply)
		}
	}
}
