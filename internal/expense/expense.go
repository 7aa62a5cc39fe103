// Package expense manages free-standing bookkeeping entries that are not
// tied to a product (office supplies, postage, ...). Entries are local-only:
// they never take part in remote synchronization and their lifecycle is
// create and delete.
package expense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mbruckner/vinetrack/internal/fiscaldate"
)

var (
	ErrNotFound      = errors.New("expense not found")
	ErrInvalidAmount = errors.New("expense amount must be positive")
	ErrEmptyName     = errors.New("expense name must not be empty")
)

// Expense is one deductible entry. Amount is cents, strictly positive.
type Expense struct {
	ID     uuid.UUID       `json:"id"`
	Date   fiscaldate.Date `json:"date"`
	Name   string          `json:"name"`
	Amount int64           `json:"amount"`
}

const storageKey = "expenses"

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Expense, error) {
	list, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date.Before(list[j].Date)
		}

		return list[i].Name < list[j].Name
	})

	return list, nil
}

func (s *Service) Create(ctx context.Context, date fiscaldate.Date, name string, amount int64) (Expense, error) {
	if name == "" {
		return Expense{}, ErrEmptyName
	}

	if amount <= 0 {
		return Expense{}, ErrInvalidAmount
	}

	list, err := s.load(ctx)
	if err != nil {
		return Expense{}, err
	}

	exp := Expense{ID: uuid.New(), Date: date, Name: name, Amount: amount}
	list = append(list, exp)

	if err := s.save(ctx, list); err != nil {
		return Expense{}, err
	}

	return exp, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	list, err := s.load(ctx)
	if err != nil {
		return err
	}

	kept := list[:0]

	for _, e := range list {
		if e.ID != id {
			kept = append(kept, e)
		}
	}

	if len(kept) == len(list) {
		return ErrNotFound
	}

	return s.save(ctx, kept)
}

func (s *Service) load(ctx context.Context) ([]Expense, error) {
	raw, ok, err := s.store.Get(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("loading expenses: %w", err)
	}

	if !ok {
		return nil, nil
	}

	var list []Expense
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decoding expenses: %w", err)
	}

	return list, nil
}

func (s *Service) save(ctx context.Context, list []Expense) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding expenses: %w", err)
	}

	if err := s.store.Set(ctx, storageKey, raw); err != nil {
		return fmt.Errorf("saving expenses: %w", err)
	}

	return nil
}
