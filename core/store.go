package core

import (
	"math/big"
	"sync"

	"kopiocore/crypto"
	"kopiocore/native/icdp"
	"kopiocore/native/scdp"
)

// Store is the in-memory state arena shared by both accounting engines. It
// satisfies the icdp and scdp state interfaces; all values are deep-copied on
// the way in and out so engines can never alias stored state.
type Store struct {
	mu           sync.RWMutex
	positions    map[string]*icdp.Position
	supplies     map[string]*big.Int
	poolAssets   map[string]*scdp.AssetState
	poolDeposits map[string]*scdp.DepositRecord
	poolFees     *scdp.FeeAccrual
}

func NewStore() *Store {
	return &Store{
		positions:    make(map[string]*icdp.Position),
		supplies:     make(map[string]*big.Int),
		poolAssets:   make(map[string]*scdp.AssetState),
		poolDeposits: make(map[string]*scdp.DepositRecord),
	}
}

func storeKey(addr crypto.Address) string { return string(addr.Bytes()) }

func depositKey(addr crypto.Address, ticker string) string {
	return string(addr.Bytes()) + "|" + ticker
}

func (s *Store) GetPosition(addr crypto.Address) (*icdp.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if position, ok := s.positions[storeKey(addr)]; ok {
		return position.Clone(), nil
	}
	return nil, nil
}

func (s *Store) PutPosition(position *icdp.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[storeKey(position.Address)] = position.Clone()
	return nil
}

func (s *Store) GetSupply(ticker string) (*big.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.supplies[ticker]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (s *Store) PutSupply(ticker string, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supplies[ticker] = new(big.Int).Set(amount)
	return nil
}

func (s *Store) GetAssetState(ticker string) (*scdp.AssetState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.poolAssets[ticker]; ok {
		return st.Clone(), nil
	}
	return nil, nil
}

func (s *Store) PutAssetState(st *scdp.AssetState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolAssets[st.Ticker] = st.Clone()
	return nil
}

func (s *Store) GetDeposit(addr crypto.Address, ticker string) (*scdp.DepositRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.poolDeposits[depositKey(addr, ticker)]; ok {
		return record.Clone(), nil
	}
	return nil, nil
}

func (s *Store) PutDeposit(record *scdp.DepositRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolDeposits[depositKey(record.Account, record.Ticker)] = record.Clone()
	return nil
}

func (s *Store) GetFeeAccrual() (*scdp.FeeAccrual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFeeAccrual(s.poolFees), nil
}

func (s *Store) PutFeeAccrual(fees *scdp.FeeAccrual) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.poolFees = cloneFeeAccrual(fees)
	return nil
}

func cloneFeeAccrual(fees *scdp.FeeAccrual) *scdp.FeeAccrual {
	if fees == nil {
		return nil
	}
	clone := &scdp.FeeAccrual{Amounts: make(map[string]*big.Int, len(fees.Amounts))}
	for ticker, amount := range fees.Amounts {
		clone.Amounts[ticker] = new(big.Int).Set(amount)
	}
	return clone
}

type storeSnapshot struct {
	positions    map[string]*icdp.Position
	supplies     map[string]*big.Int
	poolAssets   map[string]*scdp.AssetState
	poolDeposits map[string]*scdp.DepositRecord
	poolFees     *scdp.FeeAccrual
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := storeSnapshot{
		positions:    make(map[string]*icdp.Position, len(s.positions)),
		supplies:     make(map[string]*big.Int, len(s.supplies)),
		poolAssets:   make(map[string]*scdp.AssetState, len(s.poolAssets)),
		poolDeposits: make(map[string]*scdp.DepositRecord, len(s.poolDeposits)),
		poolFees:     cloneFeeAccrual(s.poolFees),
	}
	for key, position := range s.positions {
		snap.positions[key] = position.Clone()
	}
	for ticker, v := range s.supplies {
		snap.supplies[ticker] = new(big.Int).Set(v)
	}
	for ticker, st := range s.poolAssets {
		snap.poolAssets[ticker] = st.Clone()
	}
	for key, record := range s.poolDeposits {
		snap.poolDeposits[key] = record.Clone()
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = snap.positions
	s.supplies = snap.supplies
	s.poolAssets = snap.poolAssets
	s.poolDeposits = snap.poolDeposits
	s.poolFees = snap.poolFees
}
