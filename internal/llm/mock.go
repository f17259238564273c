package llm

import (
	"context"
	"sync"
)

// MockCaller is a scriptable Caller for tests. Responses are keyed per
// role; unscripted roles get a generic success. It records every request it
// receives so tests can assert which calls were (or were not) made.
type MockCaller struct {
	mu        sync.Mutex
	responses map[Role]*Response
	errs      map[Role]error
	requests  []Request
}

// NewMockCaller creates an empty mock.
func NewMockCaller() *MockCaller {
	return &MockCaller{
		responses: map[Role]*Response{},
		errs:      map[Role]error{},
	}
}

// Respond scripts the response for a role.
func (m *MockCaller) Respond(role Role, resp *Response) *MockCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[role] = resp
	return m
}

// RespondText scripts a successful response with the given content.
func (m *MockCaller) RespondText(role Role, content string) *MockCaller {
	return m.Respond(role, &Response{Success: true, Content: content, Source: "mock"})
}

// Fail scripts an unsuccessful response with the given error text.
func (m *MockCaller) Fail(role Role, errText string) *MockCaller {
	return m.Respond(role, &Response{Success: false, Err: errText, Source: "mock"})
}

// Err scripts a transport-level error for a role.
func (m *MockCaller) Err(role Role, err error) *MockCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[role] = err
	return m
}

// Call implements [Caller].
func (m *MockCaller) Call(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if err, ok := m.errs[req.Role]; ok {
		return nil, err
	}
	if resp, ok := m.responses[req.Role]; ok {
		return resp, nil
	}
	return &Response{Success: true, Content: "mock response", Source: "mock"}, nil
}

// Requests returns a copy of all requests received so far.
func (m *MockCaller) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallsFor counts requests made for one role.
func (m *MockCaller) CallsFor(role Role) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.Role == role {
			n++
		}
	}
	return n
}
