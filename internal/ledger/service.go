package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mbruckner/vinetrack/internal/product"
	"github.com/mbruckner/vinetrack/internal/settings"
)

const (
	snapshotKey   = "ledger/products"
	credentialKey = "remote/credential"
)

// ErrNoCredential is returned by remote-touching operations when no
// credential is configured.
var ErrNoCredential = errors.New("no remote credential configured")

// ErrInvalidCredential must be returned (possibly wrapped) by Remote
// implementations when the store rejects the credential. The service reacts
// by clearing the stored credential so the next interaction prompts
// re-entry.
var ErrInvalidCredential = errors.New("remote store rejected credential")

//go:generate mockgen -source=service.go -destination=service_mock.go -package=ledger
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PushStats is the remote store's per-record accounting of a push.
type PushStats struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}

// Remote is the consumed contract of the remote product store.
type Remote interface {
	FetchProducts(ctx context.Context, credential string) ([]product.Product, error)
	PushProducts(ctx context.Context, credential string, products []product.Product) (PushStats, error)
	FetchAlternateValuation(ctx context.Context, credential string) (map[string]int64, error)
	DeleteAll(ctx context.Context, credential string) error
}

// Service holds the authoritative in-memory product set and coordinates
// merging it with the remote store. All mutation is serialized through one
// mutex; the merge itself always operates on frozen copies.
type Service struct {
	store  Store
	remote Remote
	now    func() time.Time

	mu         sync.Mutex
	products   map[string]product.Product
	altValues  map[string]int64
	credential string
}

func NewService(store Store, remote Remote, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}

	return &Service{
		store:    store,
		remote:   remote,
		now:      now,
		products: make(map[string]product.Product),
	}
}

// Load restores the ledger snapshot and the stored credential. A missing
// snapshot is an empty ledger, not an error.
func (s *Service) Load(ctx context.Context) error {
	raw, ok, err := s.store.Get(ctx, snapshotKey)
	if err != nil {
		return fmt.Errorf("loading ledger snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok {
		var list []product.Product
		if err := json.Unmarshal(raw, &list); err != nil {
			return fmt.Errorf("decoding ledger snapshot: %w", err)
		}

		s.products = make(map[string]product.Product, len(list))
		for _, p := range list {
			s.products[p.ASIN] = p
		}
	}

	cred, ok, err := s.store.Get(ctx, credentialKey)
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}

	if ok {
		s.credential = string(cred)
	}

	return nil
}

// SetCredential stores (or, with an empty value, removes) the remote
// credential.
func (s *Service) SetCredential(ctx context.Context, credential string) error {
	s.mu.Lock()
	s.credential = credential
	s.mu.Unlock()

	if credential == "" {
		return s.store.Delete(ctx, credentialKey)
	}

	return s.store.Set(ctx, credentialKey, []byte(credential))
}

func (s *Service) HasCredential() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.credential != ""
}

// Products returns the filtered view of the ledger, sorted by ASIN.
func (s *Service) Products(fiscal settings.Fiscal) []product.Product {
	s.mu.Lock()
	list := make([]product.Product, 0, len(s.products))

	for _, p := range s.products {
		list = append(list, p)
	}

	alt := s.altValues
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ASIN < list[j].ASIN })

	return ApplyFilters(list, fiscal, alt)
}

// All returns every record unfiltered, sorted by ASIN. Invoice numbering
// must see hidden records too, because their frozen numbers stay reserved.
func (s *Service) All() []product.Product {
	s.mu.Lock()
	list := make([]product.Product, 0, len(s.products))

	for _, p := range s.products {
		list = append(list, p)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ASIN < list[j].ASIN })

	return list
}

// Get returns the raw (unfiltered) record for an ASIN.
func (s *Service) Get(asin string) (product.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[asin]

	return p, ok
}

// Upsert writes a record with a fresh LastUpdateTime and persists the
// snapshot. The bumped record is returned.
func (s *Service) Upsert(ctx context.Context, p product.Product) (product.Product, error) {
	p.LastUpdateTime = s.now().Unix()

	s.mu.Lock()
	s.products[p.ASIN] = p
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return product.Product{}, err
	}

	return p, nil
}

// Replace swaps the whole in-memory set (post-merge) and persists it.
func (s *Service) Replace(ctx context.Context, list []product.Product) error {
	s.mu.Lock()
	s.products = make(map[string]product.Product, len(list))

	for _, p := range list {
		s.products[p.ASIN] = p
	}
	s.mu.Unlock()

	return s.persist(ctx)
}

func (s *Service) persist(ctx context.Context) error {
	s.mu.Lock()
	list := make([]product.Product, 0, len(s.products))

	for _, p := range s.products {
		list = append(list, p)
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ASIN < list[j].ASIN })

	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding ledger snapshot: %w", err)
	}

	if err := s.store.Set(ctx, snapshotKey, raw); err != nil {
		return fmt.Errorf("persisting ledger snapshot: %w", err)
	}

	return nil
}

// SyncResult reports what a full synchronization did.
type SyncResult struct {
	Fetched int       `json:"fetched"`
	Merged  int       `json:"merged"`
	Push    PushStats `json:"push"`
}

// Sync runs a full round trip: fetch the remote set, reconcile it with the
// local one, persist the merged result locally and push it back, so both
// sides converge on the same state. A fetch failure leaves the local set
// untouched; an invalid credential additionally clears the stored one. A
// push failure after the local merge succeeded is reported, but local state
// keeps the merge (the next sync reconciles the stores again).
func (s *Service) Sync(ctx context.Context, fiscal settings.Fiscal) (SyncResult, error) {
	s.mu.Lock()
	credential := s.credential
	local := make([]product.Product, 0, len(s.products))

	for _, p := range s.products {
		local = append(local, p)
	}
	s.mu.Unlock()

	if credential == "" {
		return SyncResult{}, ErrNoCredential
	}

	remoteProducts, err := s.remote.FetchProducts(ctx, credential)
	if err != nil {
		s.handleRemoteError(ctx, err)
		return SyncResult{}, fmt.Errorf("fetching remote products: %w", err)
	}

	merged := Reconcile(local, remoteProducts)

	if fiscal.UseAltValuation {
		alt, altErr := s.remote.FetchAlternateValuation(ctx, credential)
		if altErr != nil {
			slog.Warn("alternate valuation fetch failed, keeping previous values", "error", altErr)
		} else {
			s.mu.Lock()
			s.altValues = alt
			s.mu.Unlock()
		}
	}

	if err := s.Replace(ctx, merged); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Fetched: len(remoteProducts), Merged: len(merged)}

	if len(merged) > 0 {
		stats, pushErr := s.remote.PushProducts(ctx, credential, merged)
		if pushErr != nil {
			s.handleRemoteError(ctx, pushErr)
			return result, fmt.Errorf("pushing merged products: %w", pushErr)
		}

		result.Push = stats
	}

	return result, nil
}

// ImportResult reports what a file import did.
type ImportResult struct {
	Processed int       `json:"processed"`
	Skipped   int       `json:"skipped"`
	Push      PushStats `json:"push"`
}

// Import merges records parsed from a file into the ledger under the same
// timestamp rule as Reconcile: a file record only replaces an existing one
// when it is at least as new. When a credential is configured the accepted
// records are also pushed to the remote store.
func (s *Service) Import(ctx context.Context, incoming []product.Product) (ImportResult, error) {
	s.mu.Lock()

	var accepted []product.Product

	result := ImportResult{}

	for _, in := range incoming {
		existing, ok := s.products[in.ASIN]
		if ok && in.LastUpdateTime < existing.LastUpdateTime {
			result.Skipped++
			continue
		}

		s.products[in.ASIN] = in
		accepted = append(accepted, in)
		result.Processed++
	}

	credential := s.credential
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return result, err
	}

	if credential != "" && len(accepted) > 0 {
		stats, err := s.remote.PushProducts(ctx, credential, accepted)
		if err != nil {
			s.handleRemoteError(ctx, err)
			return result, fmt.Errorf("pushing imported products: %w", err)
		}

		result.Push = stats
	}

	return result, nil
}

// PushOne uploads a single record, used after per-product edits when a
// credential is configured. Failure never rolls back local state.
func (s *Service) PushOne(ctx context.Context, p product.Product) error {
	s.mu.Lock()
	credential := s.credential
	s.mu.Unlock()

	if credential == "" {
		return ErrNoCredential
	}

	if _, err := s.remote.PushProducts(ctx, credential, []product.Product{p}); err != nil {
		s.handleRemoteError(ctx, err)
		return fmt.Errorf("pushing product %s: %w", p.ASIN, err)
	}

	return nil
}

// DeleteAll clears the ledger locally and, when a credential is configured,
// wipes the remote store too.
func (s *Service) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	s.products = make(map[string]product.Product)
	credential := s.credential
	s.mu.Unlock()

	if err := s.persist(ctx); err != nil {
		return err
	}

	if credential != "" {
		if err := s.remote.DeleteAll(ctx, credential); err != nil {
			s.handleRemoteError(ctx, err)
			return fmt.Errorf("wiping remote store: %w", err)
		}
	}

	return nil
}

func (s *Service) handleRemoteError(ctx context.Context, err error) {
	if !errors.Is(err, ErrInvalidCredential) {
		return
	}

	slog.Warn("remote credential rejected, clearing stored credential")

	if clearErr := s.SetCredential(ctx, ""); clearErr != nil {
		slog.Error("failed to clear stored credential", "error", clearErr)
	}
}
