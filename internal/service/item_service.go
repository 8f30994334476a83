package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
	"github.com/shopspring/decimal"
)

type ItemService interface {
	Create(ctx context.Context, sellerUID, title, description string, price decimal.Decimal, currency string) (*model.Item, error)
	Get(ctx context.Context, id uint64) (*model.Item, error)
	List(ctx context.Context, limit, offset int) ([]model.Item, int64, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Item, error)
}

type itemService struct {
	repo            repository.ItemRepository
	defaultCurrency string
}

func NewItemService(repo repository.ItemRepository, defaultCurrency string) ItemService {
	return &itemService{repo: repo, defaultCurrency: strings.ToLower(defaultCurrency)}
}

var maxItemPrice = decimal.RequireFromString("9999999999.99")

func (s *itemService) Create(ctx context.Context, sellerUID, title, description string, price decimal.Decimal, currency string) (*model.Item, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	currency = strings.ToLower(strings.TrimSpace(currency))
	if sellerUID == "" {
		return nil, validationError("seller is required")
	}
	if title == "" || len(title) > 120 {
		return nil, validationError("invalid title")
	}
	if description == "" {
		return nil, validationError("invalid description")
	}
	if !price.IsPositive() || price.GreaterThan(maxItemPrice) || !price.Equal(price.Round(2)) {
		return nil, validationError("invalid price")
	}
	if currency == "" {
		currency = s.defaultCurrency
	}

	item := &model.Item{
		SellerUID:   sellerUID,
		Title:       title,
		Description: description,
		Price:       price,
		Currency:    currency,
		Status:      model.ItemStatusListed,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *itemService) Get(ctx context.Context, id uint64) (*model.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return item, nil
}

// List returns listed items only, newest first.
func (s *itemService) List(ctx context.Context, limit, offset int) ([]model.Item, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByStatus(ctx, model.ItemStatusListed, limit, offset)
}

func (s *itemService) ListBySeller(ctx context.Context, sellerUID string) ([]model.Item, error) {
	return s.repo.ListBySeller(ctx, sellerUID)
}
