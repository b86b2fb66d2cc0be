package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"spec-registry-service/internal/core/codec"
	"spec-registry-service/internal/core/domain"
	"spec-registry-service/internal/core/ports/output"
	"spec-registry-service/internal/core/update"
)

// MockTable is a mock of Table.
type MockTable struct {
	mock.Mock
}

func (m *MockTable) Get(ctx context.Context, key domain.Key) (codec.Item, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(codec.Item), args.Error(1)
}

func (m *MockTable) Put(ctx context.Context, item codec.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockTable) Update(ctx context.Context, key domain.Key, op update.Op) error {
	args := m.Called(ctx, key, op)
	return args.Error(0)
}

func (m *MockTable) Delete(ctx context.Context, key domain.Key) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockTable) Query(ctx context.Context, q ports.Query) ([]codec.Item, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]codec.Item), args.Error(1)
}

// MockBlobStore is a mock of BlobStore.
type MockBlobStore struct {
	mock.Mock
}

func (m *MockBlobStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlobStore) Copy(ctx context.Context, srcKey, dstKey string) error {
	args := m.Called(ctx, srcKey, dstKey)
	return args.Error(0)
}

func (m *MockBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockBlobStore) DeletePrefix(ctx context.Context, prefix string) error {
	args := m.Called(ctx, prefix)
	return args.Error(0)
}

func (m *MockBlobStore) PresignURL(ctx context.Context, method ports.PresignMethod, key string, ttl time.Duration, opts ...ports.PresignOption) (string, error) {
	args := m.Called(ctx, method, key, ttl, ports.ApplyPresignOptions(opts...))
	return args.String(0), args.Error(1)
}

// MockChangeQueue is a mock of ChangeQueue.
type MockChangeQueue struct {
	mock.Mock
}

func (m *MockChangeQueue) Send(ctx context.Context, body []byte, attributes map[string]string) error {
	args := m.Called(ctx, body, attributes)
	return args.Error(0)
}

func (m *MockChangeQueue) Receive(ctx context.Context, limit int) ([]ports.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ports.Message), args.Error(1)
}

func (m *MockChangeQueue) Ack(ctx context.Context, msg ports.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockChangeQueue) Release(ctx context.Context, msg ports.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockTemplateSource is a mock of TemplateSource.
type MockTemplateSource struct {
	mock.Mock
}

func (m *MockTemplateSource) Template(ctx context.Context, productType string) ([]byte, error) {
	args := m.Called(ctx, productType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
