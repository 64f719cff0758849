package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockScreenInfo is a mock implementation of the ScreenInfoInterface
type MockScreenInfo struct {
	mock.Mock
}

func (m *MockScreenInfo) LoadScreenInfo() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockScreenInfo) GetScreenID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockScreenInfo) SaveScreenID(screenID string) error {
	args := m.Called(screenID)
	return args.Error(0)
}

func (m *MockScreenInfo) ClearScreenID() error {
	args := m.Called()
	return args.Error(0)
}
