package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/repository"
)

const maxReviewCommentLength = 1000

type SellerSummary struct {
	SellerUID string `json:"sellerUid"`
	Good      int64  `json:"good"`
	Bad       int64  `json:"bad"`
}

// ReviewService enforces one review per order, written by the order's buyer.
// Seller counts are computed from the review rows on every read.
type ReviewService interface {
	// Prepare validates input and builds the review row for an order; it does not persist.
	Prepare(ctx context.Context, order *model.Order, outcome model.ReviewOutcome, comment string) (*model.Review, error)
	// Attach persists a prepared review. Run it in the same transaction as the
	// order's terminal transition.
	Attach(ctx context.Context, rv *model.Review) error
	SellerSummary(ctx context.Context, sellerUID string) (*SellerSummary, error)
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Review, error)
	ListByReviewer(ctx context.Context, reviewerUID string) ([]model.Review, error)
	GetByOrder(ctx context.Context, orderID uint64) (*model.Review, error)
}

type reviewService struct {
	repo repository.ReviewRepository
}

func NewReviewService(repo repository.ReviewRepository) ReviewService {
	return &reviewService{repo: repo}
}

func (s *reviewService) Prepare(ctx context.Context, order *model.Order, outcome model.ReviewOutcome, comment string) (*model.Review, error) {
	if !outcome.Valid() {
		return nil, validationError("outcome must be good or bad")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, validationError("comment is required")
	}
	if utf8.RuneCountInString(comment) > maxReviewCommentLength {
		return nil, validationError("comment must be at most %d characters", maxReviewCommentLength)
	}
	exists, err := s.repo.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}
	return &model.Review{
		OrderID:     order.ID,
		ItemID:      order.ItemID,
		ReviewerUID: order.BuyerUID,
		SellerUID:   order.SellerUID,
		Outcome:     outcome,
		Comment:     comment,
	}, nil
}

func (s *reviewService) Attach(ctx context.Context, rv *model.Review) error {
	if err := s.repo.Create(ctx, rv); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return ErrAlreadyReviewed
		}
		return err
	}
	return nil
}

func (s *reviewService) SellerSummary(ctx context.Context, sellerUID string) (*SellerSummary, error) {
	if sellerUID == "" {
		return nil, validationError("seller is required")
	}
	counts, err := s.repo.CountOutcomes(ctx, sellerUID)
	if err != nil {
		return nil, err
	}
	return &SellerSummary{
		SellerUID: sellerUID,
		Good:      counts[model.ReviewOutcomeGood],
		Bad:       counts[model.ReviewOutcomeBad],
	}, nil
}

func (s *reviewService) ListBySeller(ctx context.Context, sellerUID string) ([]model.Review, error) {
	return s.repo.ListBySeller(ctx, sellerUID)
}

func (s *reviewService) ListByReviewer(ctx context.Context, reviewerUID string) ([]model.Review, error) {
	return s.repo.ListByReviewer(ctx, reviewerUID)
}

func (s *reviewService) GetByOrder(ctx context.Context, orderID uint64) (*model.Review, error) {
	rv, err := s.repo.FindByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rv, nil
}
