package registry

import (
	"sync"
	"testing"

	"github.com/vango-go/vai-character/pkg/protocol"
)

func agent(brain, id string) protocol.CharacterData {
	return protocol.CharacterData{BrainName: brain, AgentID: id, GivenName: brain + "-given"}
}

func TestRegistry_RegisterResolve(t *testing.T) {
	r := New()
	if n := r.Register([]protocol.CharacterData{agent("x", "42"), agent("y", "43")}); n != 2 {
		t.Fatalf("registered=%d, want 2", n)
	}
	if id, ok := r.Resolve("x"); !ok || id != "42" {
		t.Fatalf("Resolve(x)=%q,%v", id, ok)
	}
	if _, ok := r.Resolve("z"); ok {
		t.Fatalf("Resolve(z) should miss")
	}
	entry, ok := r.LookupAgent("43")
	if !ok || entry.BrainName != "y" || entry.GivenName != "y-given" {
		t.Fatalf("LookupAgent(43)=%+v,%v", entry, ok)
	}
}

func TestRegistry_RegisterIsFullReplace(t *testing.T) {
	r := New()
	r.Register([]protocol.CharacterData{agent("x", "42"), agent("y", "43")})
	r.Register([]protocol.CharacterData{agent("x", "99")})

	if id, ok := r.Resolve("x"); !ok || id != "99" {
		t.Fatalf("Resolve(x)=%q,%v, want 99", id, ok)
	}
	if _, ok := r.Resolve("y"); ok {
		t.Fatalf("y should be gone after replace")
	}
	if _, ok := r.LookupAgent("42"); ok {
		t.Fatalf("stale agent id 42 should not resolve")
	}
	if r.Count() != 1 {
		t.Fatalf("count=%d, want 1", r.Count())
	}
}

func TestRegistry_SkipsIncompleteEntries(t *testing.T) {
	r := New()
	n := r.Register([]protocol.CharacterData{
		agent("x", ""),
		agent("", "41"),
		agent(" y ", "43"),
	})
	if n != 1 {
		t.Fatalf("registered=%d, want 1", n)
	}
	if id, ok := r.Resolve("y"); !ok || id != "43" {
		t.Fatalf("Resolve(y)=%q,%v", id, ok)
	}
}

func TestRegistry_UnloadAllKeepsMetadata(t *testing.T) {
	r := New()
	r.Register([]protocol.CharacterData{agent("x", "42"), agent("y", "43")})
	r.UnloadAll()

	if _, ok := r.Resolve("x"); ok {
		t.Fatalf("x should not resolve after UnloadAll")
	}
	if got := r.Loaded(); len(got) != 0 {
		t.Fatalf("loaded=%v, want none", got)
	}
	entries := r.Entries()
	if len(entries) != 2 || entries[0].BrainName != "x" || entries[0].AgentID != "" || entries[1].GivenName != "y-given" {
		t.Fatalf("entries=%+v", entries)
	}

	r.Register([]protocol.CharacterData{agent("x", "77")})
	if id, _ := r.Resolve("x"); id != "77" {
		t.Fatalf("rebind got %q, want 77", id)
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := New()
	r.Register([]protocol.CharacterData{agent("x", "42"), agent("y", "43"), agent("z", "44")})

	if n := r.Remove("y", "missing"); n != 1 {
		t.Fatalf("removed=%d, want 1", n)
	}
	if _, ok := r.LookupAgent("43"); ok {
		t.Fatalf("43 should be gone")
	}
	if got := r.Loaded(); len(got) != 2 || got[0] != "x" || got[1] != "z" {
		t.Fatalf("loaded=%v", got)
	}
	entries := r.Entries()
	if len(entries) != 2 || entries[1].BrainName != "z" {
		t.Fatalf("entries=%+v", entries)
	}
}

func TestRegistry_NilSafe(t *testing.T) {
	var r *Registry
	if r.Register([]protocol.CharacterData{agent("x", "1")}) != 0 || r.Count() != 0 {
		t.Fatalf("nil registry should be inert")
	}
	if _, ok := r.Resolve("x"); ok {
		t.Fatalf("nil registry should not resolve")
	}
	r.UnloadAll()
	if r.Remove("x") != 0 || r.Entries() != nil {
		t.Fatalf("nil registry should be inert")
	}
}

func TestRegistry_ConcurrentResolveDuringReplace(t *testing.T) {
	r := New()
	r.Register([]protocol.CharacterData{agent("x", "1")})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if id, ok := r.Resolve("x"); ok && id != "1" && id != "2" {
					t.Errorf("unexpected id %q", id)
					return
				}
			}
		}()
	}
	for j := 0; j < 200; j++ {
		id := "1"
		if j%2 == 1 {
			id = "2"
		}
		r.Register([]protocol.CharacterData{agent("x", id)})
	}
	wg.Wait()
}
