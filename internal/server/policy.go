package server

import (
	"sync/atomic"

	"github.com/davidpgausai-svg/LeaderOS-sub003/internal/rag"
)

// PolicyHolder publishes the current classifier policy. Readers never block
// and always see a complete policy.
type PolicyHolder struct {
	p atomic.Pointer[rag.Policy]
}

// NewPolicyHolder starts with p.
func NewPolicyHolder(p rag.Policy) *PolicyHolder {
	h := &PolicyHolder{}
	h.Store(p)
	return h
}

// Load returns the current policy.
func (h *PolicyHolder) Load() rag.Policy { return *h.p.Load() }

// Store replaces the policy for subsequent requests.
func (h *PolicyHolder) Store(p rag.Policy) { h.p.Store(&p) }
