// Package mocks provides mock implementations of the database abstractions for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockTxManager is a mock implementation of database.TxManager.
type MockTxManager struct {
	mock.Mock
}

// MockTxManager_Expecter exposes typed expectation builders.
type MockTxManager_Expecter struct {
	mock *mock.Mock
}

// EXPECT returns the typed expectation builder.
func (_m *MockTxManager) EXPECT() *MockTxManager_Expecter {
	return &MockTxManager_Expecter{mock: &_m.Mock}
}

// WithTx provides a mock function for the type MockTxManager.
func (_m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ret := _m.Called(ctx, fn)

	if len(ret) == 0 {
		panic("no return value specified for WithTx")
	}

	if returnFunc, ok := ret.Get(0).(func(context.Context, func(ctx context.Context) error) error); ok {
		return returnFunc(ctx, fn)
	}
	return ret.Error(0)
}

// MockTxManager_WithTx_Call wraps mock.Call with typed helpers.
type MockTxManager_WithTx_Call struct {
	*mock.Call
}

// WithTx registers an expectation for WithTx.
func (_e *MockTxManager_Expecter) WithTx(ctx interface{}, fn interface{}) *MockTxManager_WithTx_Call {
	return &MockTxManager_WithTx_Call{Call: _e.mock.On("WithTx", ctx, fn)}
}

// Run sets a handler invoked when WithTx is called.
func (_c *MockTxManager_WithTx_Call) Run(
	run func(ctx context.Context, fn func(ctx context.Context) error),
) *MockTxManager_WithTx_Call {
	_c.Call.Run(func(args mock.Arguments) {
		run(args[0].(context.Context), args[1].(func(ctx context.Context) error))
	})
	return _c
}

// Return sets the value returned by WithTx.
func (_c *MockTxManager_WithTx_Call) Return(err error) *MockTxManager_WithTx_Call {
	_c.Call.Return(err)
	return _c
}

// RunAndReturn sets a function computing the value returned by WithTx.
func (_c *MockTxManager_WithTx_Call) RunAndReturn(
	run func(ctx context.Context, fn func(ctx context.Context) error) error,
) *MockTxManager_WithTx_Call {
	_c.Call.Return(run)
	return _c
}

// NewMockTxManager creates a MockTxManager whose expectations are asserted on cleanup.
func NewMockTxManager(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockTxManager {
	m := &MockTxManager{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// PassThrough registers a WithTx expectation that runs fn in place and returns its error.
func PassThrough(m *MockTxManager) *MockTxManager_WithTx_Call {
	return m.EXPECT().
		WithTx(mock.Anything, mock.AnythingOfType("func(context.Context) error")).
		RunAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}
