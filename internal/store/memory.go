package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/fyexchange/internal/core"
)

var _ core.Store = (*Memory)(nil)

// Memory is an in-process core.Store. Transactions are serialized; a failed
// transaction restores the state captured when it began.
type Memory struct {
	mu     sync.Mutex
	nextID int64
	state  memState

	attachErr error
}

type memState struct {
	accounts  map[int64]core.Account
	journals  map[int64]core.Journal
	years     map[int64]core.FinancialYear
	exchanges map[int64]core.Exchange
	files     map[int64]core.ImportFile
	entries   []core.Entry
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{
		state: memState{
			accounts:  make(map[int64]core.Account),
			journals:  make(map[int64]core.Journal),
			years:     make(map[int64]core.FinancialYear),
			exchanges: make(map[int64]core.Exchange),
			files:     make(map[int64]core.ImportFile),
		},
	}
}

func (s memState) clone() memState {
	c := memState{
		accounts:  make(map[int64]core.Account, len(s.accounts)),
		journals:  make(map[int64]core.Journal, len(s.journals)),
		years:     make(map[int64]core.FinancialYear, len(s.years)),
		exchanges: make(map[int64]core.Exchange, len(s.exchanges)),
		files:     make(map[int64]core.ImportFile, len(s.files)),
		entries:   make([]core.Entry, len(s.entries)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.journals {
		c.journals[k] = v
	}
	for k, v := range s.years {
		c.years[k] = v
	}
	for k, v := range s.exchanges {
		c.exchanges[k] = v
	}
	for k, v := range s.files {
		c.files[k] = v
	}
	copy(c.entries, s.entries)
	return c
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// AddAccount seeds an account and returns it with its ID.
func (m *Memory) AddAccount(number, name string) core.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := core.Account{ID: m.id(), Number: number, Name: name}
	m.state.accounts[a.ID] = a
	return a
}

// AddJournal seeds a journal and returns it with its ID.
func (m *Memory) AddJournal(j core.Journal) core.Journal {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = m.id()
	m.state.journals[j.ID] = j
	return j
}

// AddFinancialYear seeds a financial year and returns it with its ID.
func (m *Memory) AddFinancialYear(fy core.FinancialYear) core.FinancialYear {
	m.mu.Lock()
	defer m.mu.Unlock()
	fy.ID = m.id()
	m.state.years[fy.ID] = fy
	return fy
}

// Entries returns the persisted entries in insertion order.
func (m *Memory) Entries() []core.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Entry, len(m.state.entries))
	copy(out, m.state.entries)
	return out
}

// FailAttach makes AttachImportFile fail with err until called with nil.
func (m *Memory) FailAttach(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachErr = err
}

// InTx runs fn with exclusive access to the store.
func (m *Memory) InTx(ctx context.Context, fn func(tx core.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	nextID := m.nextID

	if err := fn(&memTx{m: m}); err != nil {
		m.state = snapshot
		m.nextID = nextID
		return err
	}
	if err := ctx.Err(); err != nil {
		m.state = snapshot
		m.nextID = nextID
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (m *Memory) CreateExchange(_ context.Context, x core.Exchange) (core.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.years[x.FinancialYearID]; !ok {
		return core.Exchange{}, fmt.Errorf("%w: financial year %d does not exist", core.ErrConstraintViolation, x.FinancialYearID)
	}
	now := time.Now()
	x.ID = m.id()
	x.CreatedAt, x.UpdatedAt = now, now
	x.ImportFile = nil
	m.state.exchanges[x.ID] = x
	return x, nil
}

func (m *Memory) GetExchange(_ context.Context, id int64) (core.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchange(id)
}

func (m *Memory) exchange(id int64) (core.Exchange, error) {
	x, ok := m.state.exchanges[id]
	if !ok {
		return core.Exchange{}, core.ErrNotFound
	}
	if f, ok := m.state.files[id]; ok {
		meta := f
		meta.Data = nil
		x.ImportFile = &meta
	}
	return x, nil
}

func (m *Memory) GetFinancialYear(_ context.Context, id int64) (core.FinancialYear, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fy, ok := m.state.years[id]
	if !ok {
		return core.FinancialYear{}, core.ErrNotFound
	}
	return fy, nil
}

func (m *Memory) ExchangeByPublicToken(_ context.Context, token string, now time.Time) (core.Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.state.exchanges))
	for id := range m.state.exchanges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if m.state.exchanges[id].PublicTokenValid(token, now) {
			return m.exchange(id)
		}
	}
	return core.Exchange{}, core.ErrNotFound
}

func (m *Memory) UpdateExchangeState(_ context.Context, x core.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.state.exchanges[x.ID]
	if !ok {
		return core.ErrNotFound
	}
	cur.ClosedAt = x.ClosedAt
	cur.PublicToken = x.PublicToken
	cur.PublicTokenExpiredAt = x.PublicTokenExpiredAt
	cur.UpdatedAt = x.UpdatedAt
	m.state.exchanges[x.ID] = cur
	return nil
}

func (m *Memory) GetImportFile(_ context.Context, exchangeID int64) (core.ImportFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.state.files[exchangeID]
	if !ok {
		return core.ImportFile{}, core.ErrNotFound
	}
	return f, nil
}

// memTx runs with m.mu held by InTx.
type memTx struct {
	m *Memory
}

func journalField(j core.Journal, by core.JournalLookup) string {
	if by == core.LookupByIsacomptaCode {
		return j.IsacomptaCode
	}
	return j.Code
}

func (t *memTx) ExistingJournalCodes(_ context.Context, by core.JournalLookup, codes []string) ([]string, error) {
	known := make(map[string]struct{})
	for _, j := range t.m.state.journals {
		if v := journalField(j, by); v != "" {
			known[v] = struct{}{}
		}
	}
	var found []string
	for _, c := range codes {
		if _, ok := known[c]; ok {
			found = append(found, c)
		}
	}
	return found, nil
}

func (t *memTx) FindJournal(_ context.Context, accountantID int64, by core.JournalLookup, code string) (core.Journal, error) {
	var match *core.Journal
	for _, j := range t.m.state.journals {
		if j.AccountantID != accountantID || code == "" || journalField(j, by) != code {
			continue
		}
		if match == nil || j.ID < match.ID {
			jj := j
			match = &jj
		}
	}
	if match == nil {
		return core.Journal{}, core.ErrNotFound
	}
	return *match, nil
}

func (t *memTx) FindAccountByNumber(_ context.Context, number string) (core.Account, error) {
	for _, a := range t.m.state.accounts {
		if a.Number == number {
			return a, nil
		}
	}
	return core.Account{}, core.ErrNotFound
}

func (t *memTx) InsertEntry(_ context.Context, entry *core.Entry) error {
	if _, ok := t.m.state.journals[entry.JournalID]; !ok {
		return fmt.Errorf("%w: journal %d does not exist", core.ErrConstraintViolation, entry.JournalID)
	}
	for i, item := range entry.Items {
		if item.AccountID == nil {
			continue
		}
		if _, ok := t.m.state.accounts[*item.AccountID]; !ok {
			return fmt.Errorf("%w: item %d references missing account %d", core.ErrConstraintViolation, i+1, *item.AccountID)
		}
	}

	entry.ID = t.m.id()
	stored := *entry
	stored.Items = append([]core.EntryItem(nil), entry.Items...)
	t.m.state.entries = append(t.m.state.entries, stored)
	return nil
}

func (t *memTx) AttachImportFile(_ context.Context, exchangeID int64, file core.ImportFile) error {
	if t.m.attachErr != nil {
		return t.m.attachErr
	}
	x, ok := t.m.state.exchanges[exchangeID]
	if !ok {
		return core.ErrNotFound
	}
	if !x.Opened() {
		return core.ErrExchangeClosed
	}
	file.Data = append([]byte(nil), file.Data...)
	t.m.state.files[exchangeID] = file
	x.UpdatedAt = file.UpdatedAt
	t.m.state.exchanges[exchangeID] = x
	return nil
}
