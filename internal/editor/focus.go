package editor

import "sync"

// FocusRequest asks the presentation layer to focus the block at Index.
// Token distinguishes a new request from an older one for the same index.
type FocusRequest struct {
	Index int    `json:"index"`
	Token uint64 `json:"token"`
}

// FocusRouter holds at most one pending focus request.
type FocusRouter struct {
	mu      sync.Mutex
	next    uint64
	pending *FocusRequest
	out     chan FocusRequest
}

// NewFocusRouter creates a router whose Requests channel buffers a few requests.
func NewFocusRouter() *FocusRouter {
	return &FocusRouter{out: make(chan FocusRequest, 16)}
}

// Request replaces any pending request with a fresh one for index.
func (f *FocusRouter) Request(index int) FocusRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	req := FocusRequest{Index: index, Token: f.next}
	f.pending = &req
	select {
	case f.out <- req:
	default:
	}
	return req
}

// Pending returns the outstanding request, if any.
func (f *FocusRouter) Pending() (FocusRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return FocusRequest{}, false
	}
	return *f.pending, true
}

// Claim is called by the consumer rendering index. It returns the pending
// request when it targets index; the consumer focuses and then calls Done.
func (f *FocusRouter) Claim(index int) (FocusRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil || f.pending.Index != index {
		return FocusRequest{}, false
	}
	return *f.pending, true
}

// Done clears the pending request if token still identifies it.
func (f *FocusRouter) Done(token uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil || f.pending.Token != token {
		return false
	}
	f.pending = nil
	return true
}

// Requests streams every issued request. Requests are dropped when the buffer is full.
func (f *FocusRouter) Requests() <-chan FocusRequest {
	return f.out
}
