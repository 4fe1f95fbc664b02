package discount

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	discountrepo "storefront/internal/repository/discount"
)

type Service struct {
	repo discountrepo.Repository
	now  func() time.Time
}

func New(repo discountrepo.Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// Input is the admin payload for creating or replacing a discount.
type Input struct {
	Code      string
	Type      string
	Value     *decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time
	IsActive  *bool
}

// Validate looks a code up case-insensitively and checks it can be applied now.
func (s *Service) Validate(ctx context.Context, code string) (*domain.Discount, error) {
	if strings.TrimSpace(code) == "" {
		return nil, domain.NewValidationError("Discount code is required.")
	}
	d, err := s.repo.GetByCode(ctx, domain.NormalizeCode(code))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidDiscount
		}
		return nil, err
	}
	if err := d.CheckActive(s.now()); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Discount, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Discount, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Input) (*domain.Discount, error) {
	d, err := build(in)
	if err != nil {
		return nil, err
	}
	d.IsActive = true
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	return s.repo.Create(ctx, d)
}

// Update replaces every field of the discount; an omitted IsActive keeps the stored flag.
func (s *Service) Update(ctx context.Context, id string, in Input) (*domain.Discount, error) {
	d, err := build(in)
	if err != nil {
		return nil, err
	}
	d.ID = id
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	} else {
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		d.IsActive = existing.IsActive
	}
	return s.repo.Update(ctx, d)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func build(in Input) (domain.Discount, error) {
	code := domain.NormalizeCode(in.Code)
	if code == "" || strings.TrimSpace(in.Type) == "" || in.Value == nil {
		return domain.Discount{}, domain.NewValidationError("Code, Type, and Value are required")
	}
	value, err := domain.NewDiscountValue(in.Type, *in.Value)
	if err != nil {
		return domain.Discount{}, &domain.ValidationError{Message: err.Error()}
	}
	if err := value.Validate(); err != nil {
		return domain.Discount{}, &domain.ValidationError{Message: err.Error()}
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return domain.Discount{}, domain.NewValidationError("End date must not be before start date.")
	}
	return domain.Discount{
		Code:      code,
		Value:     value,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}, nil
}
