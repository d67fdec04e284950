// Package registry maps stable character brain names to the agent ids the
// server assigns for the current live session.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/vango-go/vai-character/pkg/protocol"
)

// Registry is safe for concurrent use. A nil *Registry resolves nothing.
type Registry struct {
	mu      sync.RWMutex
	byBrain map[string]protocol.CharacterData
	byAgent map[string]string
	order   []string
}

func New() *Registry {
	return &Registry{
		byBrain: make(map[string]protocol.CharacterData),
		byAgent: make(map[string]string),
	}
}

// Register replaces the whole roster. Entries lacking an agent id or brain
// name are skipped. It returns the number of entries kept.
func (r *Registry) Register(agents []protocol.CharacterData) int {
	if r == nil {
		return 0
	}

	byBrain := make(map[string]protocol.CharacterData, len(agents))
	byAgent := make(map[string]string, len(agents))
	order := make([]string, 0, len(agents))
	for _, a := range agents {
		brain := strings.TrimSpace(a.BrainName)
		agentID := strings.TrimSpace(a.AgentID)
		if brain == "" || agentID == "" {
			continue
		}
		if _, dup := byBrain[brain]; !dup {
			order = append(order, brain)
		}
		a.BrainName, a.AgentID = brain, agentID
		byBrain[brain] = a
		byAgent[agentID] = brain
	}

	r.mu.Lock()
	r.byBrain = byBrain
	r.byAgent = byAgent
	r.order = order
	r.mu.Unlock()
	return len(order)
}

// Resolve returns the live agent id for brainName.
func (r *Registry) Resolve(brainName string) (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byBrain[brainName]
	if !ok || entry.AgentID == "" {
		return "", false
	}
	return entry.AgentID, true
}

// LookupAgent returns the entry currently bound to agentID.
func (r *Registry) LookupAgent(agentID string) (protocol.CharacterData, bool) {
	if r == nil || agentID == "" {
		return protocol.CharacterData{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	brain, ok := r.byAgent[agentID]
	if !ok {
		return protocol.CharacterData{}, false
	}
	return r.byBrain[brain], true
}

// UnloadAll forgets every agent id but keeps character metadata. Entries
// are rebound by the next Register.
func (r *Registry) UnloadAll() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for brain, entry := range r.byBrain {
		entry.AgentID = ""
		r.byBrain[brain] = entry
	}
	r.byAgent = make(map[string]string)
}

// Remove drops the named characters entirely and returns how many existed.
func (r *Registry) Remove(brainNames ...string) (removed int) {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, brain := range brainNames {
		entry, ok := r.byBrain[brain]
		if !ok {
			continue
		}
		delete(r.byBrain, brain)
		if entry.AgentID != "" {
			delete(r.byAgent, entry.AgentID)
		}
		removed++
	}
	if removed > 0 {
		kept := r.order[:0]
		for _, brain := range r.order {
			if _, ok := r.byBrain[brain]; ok {
				kept = append(kept, brain)
			}
		}
		r.order = kept
	}
	return removed
}

// Entries returns a copy of the roster in registration order.
func (r *Registry) Entries() []protocol.CharacterData {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]protocol.CharacterData, 0, len(r.order))
	for _, brain := range r.order {
		out = append(out, r.byBrain[brain])
	}
	return out
}

// Loaded returns the brain names that currently resolve, sorted.
func (r *Registry) Loaded() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byAgent))
	for _, brain := range r.byAgent {
		out = append(out, brain)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Count() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byBrain)
}
