package catalogmock

import (
	"context"

	"github.com/ratecompass/ratecompass/pkg/catalog"
	"github.com/stretchr/testify/mock"
)

type MockCatalog struct {
	mock.Mock
}

var _ catalog.Catalog = (*MockCatalog)(nil)

func (m *MockCatalog) Lookup(ctx context.Context, rateCode, utility string) (*catalog.RateInfo, error) {
	args := m.Called(ctx, rateCode, utility)
	if info := args.Get(0); info != nil {
		return info.(*catalog.RateInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) Rates(ctx context.Context, utility string) ([]catalog.RateInfo, error) {
	args := m.Called(ctx, utility)
	if rates := args.Get(0); rates != nil {
		return rates.([]catalog.RateInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCatalog) Close() error {
	args := m.Called()
	return args.Error(0)
}
