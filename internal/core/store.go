package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"momentum/pkg/domain"
)

// Store keeps the authoritative in-memory collections and mirrors every
// committed transaction to the gateway. Memory is committed first; a gateway
// failure is reported but never rolls the commit back.
type Store struct {
	mu      sync.RWMutex
	state   collections
	engine  *RulesEngine
	gateway Gateway
	nowFn   func() time.Time

	// persistMu serializes gateway writes so a slower older write can never
	// overwrite a newer snapshot of the same key.
	persistMu sync.Mutex
}

// NewStore constructs a store over the gateway. A nil engine disables rules.
func NewStore(gateway Gateway, engine *RulesEngine) *Store {
	return &Store{
		state:   newCollections(),
		engine:  engine,
		gateway: gateway,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// Gateway returns the backing persistence gateway.
func (s *Store) Gateway() Gateway {
	return s.gateway
}

// RulesEngine exposes the engine evaluated on every commit.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

func (s *Store) newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Load replaces the in-memory state with the contents of every gateway key.
// Keys that were never written load as empty collections.
func (s *Store) Load(ctx context.Context) error {
	next := newCollections()
	for _, key := range domain.CollectionKeys {
		payload, found, err := s.gateway.Get(ctx, key)
		if err != nil {
			return &PersistenceError{Op: "get", Key: key, Err: err}
		}
		if !found || payload == "" {
			continue
		}
		if err := next.decode(key, payload); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
	return nil
}

// Transaction is a mutation set applied to a private copy of the state.
type Transaction struct {
	store   *Store
	state   collections
	changes []Change
	dirty   map[string]struct{}
	now     time.Time
}

// Now returns the timestamp shared by every write in the transaction.
func (tx *Transaction) Now() time.Time {
	return tx.now
}

// View exposes the transaction state to read helpers.
func (tx *Transaction) View() RuleView {
	return collectionView{state: &tx.state}
}

// Changes returns the recorded mutations.
func (tx *Transaction) Changes() []Change {
	return append([]Change(nil), tx.changes...)
}

func (tx *Transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *Transaction) markDirty(keys ...string) {
	for _, k := range keys {
		tx.dirty[k] = struct{}{}
	}
}

func (tx *Transaction) dirtyKeys() []string {
	keys := make([]string, 0, len(tx.dirty))
	for k := range tx.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RunInTransaction executes fn against a copy of the state, evaluates rules,
// commits the copy and then writes every dirty key to the gateway. When fn or
// a blocking rule fails nothing is committed or written.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) (Result, error) {
	s.mu.Lock()
	tx := &Transaction{
		store: s,
		state: s.state.clone(),
		dirty: make(map[string]struct{}),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		s.mu.Unlock()
		return Result{}, err
	}

	var result Result
	if s.engine != nil && len(tx.changes) > 0 {
		res, err := s.engine.Evaluate(ctx, collectionView{state: &tx.state}, tx.changes)
		if err != nil {
			s.mu.Unlock()
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			s.mu.Unlock()
			return res, RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	s.mu.Unlock()

	if err := s.persist(ctx, tx.dirtyKeys()); err != nil {
		return result, err
	}
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(RuleView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(collectionView{state: &snapshot})
}

// persist writes the current committed value of each key. Encoding happens
// after persistMu is held so the newest state always wins.
func (s *Store) persist(ctx context.Context, keys []string) error {
	if len(keys) == 0 || s.gateway == nil {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	payloads := make(map[string]string, len(keys))
	s.mu.RLock()
	for _, key := range keys {
		payload, err := s.state.encode(key)
		if err != nil {
			s.mu.RUnlock()
			return &PersistenceError{Op: "set", Key: key, Err: err}
		}
		payloads[key] = payload
	}
	s.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, key := range keys {
		payload := payloads[key]
		g.Go(func() error {
			if err := s.gateway.Set(gctx, key, payload); err != nil {
				return &PersistenceError{Op: "set", Key: key, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// Flush rewrites every collection to the gateway.
func (s *Store) Flush(ctx context.Context) error {
	return s.persist(ctx, domain.CollectionKeys)
}

// IsPersistenceError reports whether err came from the gateway after the
// in-memory commit succeeded.
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func notFound(entity EntityType, id string) error {
	return ErrNotFound{Entity: entity, ID: id}
}

func duplicateID(entity EntityType, id string) error {
	return fmt.Errorf("%s %q already exists", entity, id)
}
