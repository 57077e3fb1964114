package mocks

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/mock"
)

// MockConn mocks the driver.Conn calls made by the client wrapper and the
// window store. Any other driver.Conn method panics on the nil embedded
// interface.
type MockConn struct {
	driver.Conn
	mock.Mock
}

func (m *MockConn) QueryRow(ctx context.Context, query string, args ...any) driver.Row {
	callArgs := append([]any{ctx, query}, args...)
	res := m.Called(callArgs...)
	if res.Get(0) == nil {
		return nil
	}
	return res.Get(0).(driver.Row)
}

func (m *MockConn) Exec(ctx context.Context, query string, args ...any) error {
	callArgs := append([]any{ctx, query}, args...)
	return m.Called(callArgs...).Error(0)
}

func (m *MockConn) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockConn) Close() error {
	return m.Called().Error(0)
}

// MockRow mocks driver.Row.Scan. Configure Scan with Run to populate
// destinations.
type MockRow struct {
	driver.Row
	mock.Mock
}

func (m *MockRow) Scan(dest ...any) error {
	return m.Called(dest...).Error(0)
}
