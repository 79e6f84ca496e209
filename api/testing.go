// Package api
// Author: momentics
//
// Mock/testing utilities for the transport contract.

package api

// MockTransport is a function-field implementation of Transport.
// Unset fields behave as successful no-ops.
type MockTransport struct {
	OpenFunc            func(OnOpenComplete, OnBytesReceived, OnIOError) error
	CloseFunc           func(OnCloseComplete) error
	SendFunc            func([]byte, OnSendComplete) error
	PollFunc            func()
	SetOptionFunc       func(string, any) error
	RetrieveOptionsFunc func() (*OptionSet, error)
	DestroyFunc         func()
}

func (m *MockTransport) Open(onOpen OnOpenComplete, onBytes OnBytesReceived, onError OnIOError) error {
	if m.OpenFunc != nil {
		return m.OpenFunc(onOpen, onBytes, onError)
	}
	return nil
}

func (m *MockTransport) Close(onClose OnCloseComplete) error {
	if m.CloseFunc != nil {
		return m.CloseFunc(onClose)
	}
	return nil
}

func (m *MockTransport) Send(buf []byte, onSend OnSendComplete) error {
	if m.SendFunc != nil {
		return m.SendFunc(buf, onSend)
	}
	return nil
}

func (m *MockTransport) Poll() {
	if m.PollFunc != nil {
		m.PollFunc()
	}
}

func (m *MockTransport) SetOption(name string, value any) error {
	if m.SetOptionFunc != nil {
		return m.SetOptionFunc(name, value)
	}
	return nil
}

func (m *MockTransport) RetrieveOptions() (*OptionSet, error) {
	if m.RetrieveOptionsFunc != nil {
		return m.RetrieveOptionsFunc()
	}
	return NewOptionSet(nil), nil
}

func (m *MockTransport) Destroy() {
	if m.DestroyFunc != nil {
		m.DestroyFunc()
	}
}
