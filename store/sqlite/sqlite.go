/*
Package sqlite provides the SQLite-backed implementation of domain.Store.

PURPOSE:
  Persists agents, customers, policies, and premium installments in SQLite.
  The same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  agents:     Operator accounts
  customers:  Write-once customer records; pan is UNIQUE
  policies:   Policy records; policy_number is UNIQUE; status mutates
  premiums:   Installment schedule rows; Pending rows transition or purge

STATE-GUARDED WRITES:
  MarkPremiumPaid and DeletePendingPremiums include "status = 'Pending'" in
  their WHERE clause, so the database itself refuses a double payment and
  never purges paid history.

CONSTRAINT MAPPING:
  UNIQUE violations on customers.pan / policies.policy_number are translated
  to domain.ConflictError so callers never see driver error strings.

DATE ENCODING:
  Calendar dates are stored as TEXT in YYYY-MM-DD form; lexicographic order
  equals chronological order, so BETWEEN and ORDER BY work unchanged.
  Timestamps (created_at) are RFC3339. Amounts are decimal strings.

CONCURRENCY:
  sync.RWMutex serializes writers; WAL mode keeps readers unblocked. WithTx
  holds the write lock for the whole transaction.

SEE ALSO:
  - domain/store.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/insurecrm/policy-engine/domain"
)

// Store implements domain.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ domain.Store = (*Store)(nil)

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Access is serialized by the store mutex; a single pooled connection
	// also keeps ":memory:" databases on one schema.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS agents (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		agent_id TEXT NOT NULL,
		pan TEXT NOT NULL UNIQUE,
		aadhar TEXT NOT NULL,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		income_bracket TEXT NOT NULL,
		parent_id TEXT,
		relationship TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY(agent_id) REFERENCES agents(id),
		FOREIGN KEY(parent_id) REFERENCES customers(id)
	);

	CREATE INDEX IF NOT EXISTS idx_customers_agent ON customers(agent_id);
	CREATE INDEX IF NOT EXISTS idx_customers_parent
		ON customers(parent_id) WHERE parent_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		policy_holder_id TEXT NOT NULL,
		policy_number TEXT NOT NULL UNIQUE,
		premium_amount TEXT NOT NULL,
		frequency TEXT NOT NULL,
		type TEXT NOT NULL,
		provider TEXT NOT NULL,
		coverage_type TEXT NOT NULL,
		nominee_name TEXT NOT NULL,
		nominee_pan TEXT,
		nominee_aadhar TEXT,
		beneficiary_name TEXT,
		beneficiary_pan TEXT,
		beneficiary_aadhar TEXT,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY(customer_id) REFERENCES customers(id),
		FOREIGN KEY(policy_holder_id) REFERENCES customers(id)
	);

	CREATE INDEX IF NOT EXISTS idx_policies_customer ON policies(customer_id);
	CREATE INDEX IF NOT EXISTS idx_policies_status ON policies(status);

	CREATE TABLE IF NOT EXISTS premiums (
		id TEXT PRIMARY KEY,
		policy_id TEXT NOT NULL,
		due_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		paid_date TEXT,
		FOREIGN KEY(policy_id) REFERENCES policies(id)
	);

	-- Hot path: pending lookups ordered by due date
	CREATE INDEX IF NOT EXISTS idx_premiums_policy_status_due
		ON premiums(policy_id, status, due_date);
	CREATE INDEX IF NOT EXISTS idx_premiums_status_due
		ON premiums(status, due_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the shared surface of *sql.DB and *sql.Tx the query helpers run on,
// so every operation works identically inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func isUniqueConstraintError(err error, column string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), column)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a transactional view of the store. A non-nil error
// from fn rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&txStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// txStore adapts *sql.Tx to domain.Store via the shared query helpers.
type txStore struct {
	tx *sql.Tx
}

var _ domain.Store = (*txStore)(nil)

func (t *txStore) InsertAgent(ctx context.Context, a domain.Agent) error {
	return insertAgent(ctx, t.tx, a)
}

func (t *txStore) GetAgent(ctx context.Context, id domain.AgentID) (*domain.Agent, error) {
	return getAgent(ctx, t.tx, id)
}

func (t *txStore) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	return listAgents(ctx, t.tx)
}

func (t *txStore) CountAgents(ctx context.Context) (int, error) {
	return countAgents(ctx, t.tx)
}

func (t *txStore) InsertCustomer(ctx context.Context, c domain.Customer) error {
	return insertCustomer(ctx, t.tx, c)
}

func (t *txStore) GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	return queryOneCustomer(ctx, t.tx,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
}

func (t *txStore) GetCustomerByPAN(ctx context.Context, pan string) (*domain.Customer, error) {
	return queryOneCustomer(ctx, t.tx,
		`SELECT `+customerColumns+` FROM customers WHERE pan = ?`, pan)
}

func (t *txStore) ListCustomersByParent(ctx context.Context, parentID domain.CustomerID) ([]domain.Customer, error) {
	return queryCustomers(ctx, t.tx,
		`SELECT `+customerColumns+` FROM customers WHERE parent_id = ? ORDER BY name`, parentID)
}

func (t *txStore) ListCustomers(ctx context.Context, agentID domain.AgentID) ([]domain.Customer, error) {
	return queryCustomers(ctx, t.tx,
		`SELECT `+customerColumns+` FROM customers WHERE agent_id = ? ORDER BY name`, agentID)
}

func (t *txStore) InsertPolicy(ctx context.Context, p domain.Policy) error {
	return insertPolicy(ctx, t.tx, p)
}

func (t *txStore) GetPolicy(ctx context.Context, id domain.PolicyID) (*domain.Policy, error) {
	return getPolicy(ctx, t.tx, id)
}

func (t *txStore) GetPolicyByNumber(ctx context.Context, number string) (*domain.Policy, error) {
	return queryOnePolicy(ctx, t.tx,
		`SELECT `+policyColumns+` FROM policies WHERE policy_number = ?`, number)
}

func (t *txStore) UpdatePolicyStatus(ctx context.Context, id domain.PolicyID, status domain.PolicyStatus) error {
	return updatePolicyStatus(ctx, t.tx, id, status)
}

func (t *txStore) ListPoliciesByCustomer(ctx context.Context, customerID domain.CustomerID) ([]domain.Policy, error) {
	return queryPolicies(ctx, t.tx,
		`SELECT `+policyColumns+` FROM policies WHERE customer_id = ? ORDER BY start_date DESC`,
		customerID)
}

func (t *txStore) ListAllPolicies(ctx context.Context) ([]domain.Policy, error) {
	return listAllPolicies(ctx, t.tx)
}

func (t *txStore) InsertPremiumBatch(ctx context.Context, batch []domain.PremiumInstallment) error {
	return insertPremiumBatch(ctx, t.tx, batch)
}

func (t *txStore) GetPremium(ctx context.Context, id domain.PremiumID) (*domain.PremiumInstallment, error) {
	return getPremium(ctx, t.tx, id)
}

func (t *txStore) ListPendingPremiums(ctx context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	return listPendingPremiums(ctx, t.tx, policyID)
}

func (t *txStore) ListPremiumsByPolicy(ctx context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	return queryPremiums(ctx, t.tx,
		`SELECT `+premiumColumns+` FROM premiums WHERE policy_id = ? ORDER BY due_date ASC`,
		policyID)
}

func (t *txStore) MarkPremiumPaid(ctx context.Context, id domain.PremiumID, paidOn domain.Date) error {
	return markPremiumPaid(ctx, t.tx, id, paidOn)
}

func (t *txStore) DeletePendingPremiums(ctx context.Context, policyID domain.PolicyID) (int, error) {
	return deletePendingPremiums(ctx, t.tx, policyID)
}

func (t *txStore) ListUpcomingPremiums(ctx context.Context, agentID domain.AgentID, today domain.Date, days int) ([]domain.UpcomingPremium, error) {
	return listUpcomingPremiums(ctx, t.tx, agentID, today, days)
}

// WithTx on a transaction reuses it; SQLite has no nested transactions.
func (t *txStore) WithTx(ctx context.Context, fn func(domain.Store) error) error {
	return fn(t)
}

// =============================================================================
// AGENTS
// =============================================================================

func (s *Store) InsertAgent(ctx context.Context, a domain.Agent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertAgent(ctx, s.db, a)
}

func insertAgent(ctx context.Context, q dbtx, a domain.Agent) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO agents (id, name, email, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Name, nullString(a.Email), nullString(a.Phone),
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert agent: %w", err)
	}
	return nil
}

func (s *Store) GetAgent(ctx context.Context, id domain.AgentID) (*domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAgent(ctx, s.db, id)
}

func getAgent(ctx context.Context, q dbtx, id domain.AgentID) (*domain.Agent, error) {
	var (
		a         domain.Agent
		email     sql.NullString
		phone     sql.NullString
		createdAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, name, email, phone, created_at FROM agents WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &email, &phone, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	a.Email = email.String
	a.Phone = phone.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (s *Store) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAgents(ctx, s.db)
}

func listAgents(ctx context.Context, q dbtx) ([]domain.Agent, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, name, email, phone, created_at FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		var (
			a         domain.Agent
			email     sql.NullString
			phone     sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.Name, &email, &phone, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		a.Email = email.String
		a.Phone = phone.String
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *Store) CountAgents(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countAgents(ctx, s.db)
}

func countAgents(ctx context.Context, q dbtx) (int, error) {
	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count agents: %w", err)
	}
	return count, nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

const customerColumns = `id, agent_id, pan, aadhar, name, phone, email,
	income_bracket, parent_id, relationship, created_at`

func (s *Store) InsertCustomer(ctx context.Context, c domain.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertCustomer(ctx, s.db, c)
}

func insertCustomer(ctx context.Context, q dbtx, c domain.Customer) error {
	var parentID, relationship any
	if c.ParentID != nil {
		parentID = string(*c.ParentID)
	}
	if c.Relationship != nil {
		relationship = string(*c.Relationship)
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO customers (`+customerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AgentID, c.PAN, c.Aadhar, c.Name, c.Phone, nullString(c.Email),
		c.Income, parentID, relationship, c.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err, "customers.pan") {
		return &domain.ConflictError{Field: "pan", Value: c.PAN}
	}
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (s *Store) GetCustomer(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryOneCustomer(ctx, s.db,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
}

func (s *Store) GetCustomerByPAN(ctx context.Context, pan string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryOneCustomer(ctx, s.db,
		`SELECT `+customerColumns+` FROM customers WHERE pan = ?`, pan)
}

func (s *Store) ListCustomersByParent(ctx context.Context, parentID domain.CustomerID) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryCustomers(ctx, s.db,
		`SELECT `+customerColumns+` FROM customers WHERE parent_id = ? ORDER BY name`, parentID)
}

func (s *Store) ListCustomers(ctx context.Context, agentID domain.AgentID) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryCustomers(ctx, s.db,
		`SELECT `+customerColumns+` FROM customers WHERE agent_id = ? ORDER BY name`, agentID)
}

func queryOneCustomer(ctx context.Context, q dbtx, query string, args ...any) (*domain.Customer, error) {
	customers, err := queryCustomers(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

func queryCustomers(ctx context.Context, q dbtx, query string, args ...any) ([]domain.Customer, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func scanCustomer(rows *sql.Rows) (domain.Customer, error) {
	var (
		c            domain.Customer
		email        sql.NullString
		parentID     sql.NullString
		relationship sql.NullString
		createdAt    string
	)
	err := rows.Scan(&c.ID, &c.AgentID, &c.PAN, &c.Aadhar, &c.Name, &c.Phone,
		&email, &c.Income, &parentID, &relationship, &createdAt)
	if err != nil {
		return c, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Email = email.String
	if parentID.Valid {
		id := domain.CustomerID(parentID.String)
		c.ParentID = &id
	}
	if relationship.Valid {
		rel := domain.Relationship(relationship.String)
		c.Relationship = &rel
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

// =============================================================================
// POLICIES
// =============================================================================

const policyColumns = `id, customer_id, policy_holder_id, policy_number,
	premium_amount, frequency, type, provider, coverage_type,
	nominee_name, nominee_pan, nominee_aadhar,
	beneficiary_name, beneficiary_pan, beneficiary_aadhar,
	start_date, end_date, status, created_at`

func (s *Store) InsertPolicy(ctx context.Context, p domain.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPolicy(ctx, s.db, p)
}

func insertPolicy(ctx context.Context, q dbtx, p domain.Policy) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO policies (`+policyColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.InsuredID, p.HolderID, p.Number,
		p.Premium.Value.String(), p.Frequency, p.Type, p.Provider, p.CoverageType,
		p.Nominee.Name, nullString(p.Nominee.PAN), nullString(p.Nominee.Aadhar),
		nullString(p.Beneficiary.Name), nullString(p.Beneficiary.PAN), nullString(p.Beneficiary.Aadhar),
		p.Start.String(), p.End.String(), p.Status,
		p.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err, "policies.policy_number") {
		return &domain.ConflictError{Field: "policy_number", Value: p.Number}
	}
	if err != nil {
		return fmt.Errorf("failed to insert policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, id domain.PolicyID) (*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPolicy(ctx, s.db, id)
}

func getPolicy(ctx context.Context, q dbtx, id domain.PolicyID) (*domain.Policy, error) {
	return queryOnePolicy(ctx, q,
		`SELECT `+policyColumns+` FROM policies WHERE id = ?`, id)
}

func (s *Store) GetPolicyByNumber(ctx context.Context, number string) (*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryOnePolicy(ctx, s.db,
		`SELECT `+policyColumns+` FROM policies WHERE policy_number = ?`, number)
}

func (s *Store) UpdatePolicyStatus(ctx context.Context, id domain.PolicyID, status domain.PolicyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePolicyStatus(ctx, s.db, id, status)
}

func updatePolicyStatus(ctx context.Context, q dbtx, id domain.PolicyID, status domain.PolicyStatus) error {
	res, err := q.ExecContext(ctx,
		`UPDATE policies SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update policy status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "policy", ID: string(id)}
	}
	return nil
}

func (s *Store) ListPoliciesByCustomer(ctx context.Context, customerID domain.CustomerID) ([]domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPolicies(ctx, s.db,
		`SELECT `+policyColumns+` FROM policies WHERE customer_id = ? ORDER BY start_date DESC`,
		customerID)
}

func (s *Store) ListAllPolicies(ctx context.Context) ([]domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAllPolicies(ctx, s.db)
}

func listAllPolicies(ctx context.Context, q dbtx) ([]domain.Policy, error) {
	return queryPolicies(ctx, q,
		`SELECT `+policyColumns+` FROM policies ORDER BY policy_number`)
}

func queryOnePolicy(ctx context.Context, q dbtx, query string, args ...any) (*domain.Policy, error) {
	policies, err := queryPolicies(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return nil, nil
	}
	return &policies[0], nil
}

func queryPolicies(ctx context.Context, q dbtx, query string, args ...any) ([]domain.Policy, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query policies: %w", err)
	}
	defer rows.Close()

	var policies []domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

func scanPolicy(rows *sql.Rows) (domain.Policy, error) {
	var (
		p             domain.Policy
		amount        string
		nomineePAN    sql.NullString
		nomineeAadhar sql.NullString
		benefName     sql.NullString
		benefPAN      sql.NullString
		benefAadhar   sql.NullString
		start, end    string
		createdAt     string
	)
	err := rows.Scan(&p.ID, &p.InsuredID, &p.HolderID, &p.Number,
		&amount, &p.Frequency, &p.Type, &p.Provider, &p.CoverageType,
		&p.Nominee.Name, &nomineePAN, &nomineeAadhar,
		&benefName, &benefPAN, &benefAadhar,
		&start, &end, &p.Status, &createdAt)
	if err != nil {
		return p, fmt.Errorf("failed to scan policy: %w", err)
	}

	if p.Premium, err = domain.MoneyFromString(amount); err != nil {
		return p, err
	}
	p.Nominee.PAN = nomineePAN.String
	p.Nominee.Aadhar = nomineeAadhar.String
	p.Beneficiary.Name = benefName.String
	p.Beneficiary.PAN = benefPAN.String
	p.Beneficiary.Aadhar = benefAadhar.String
	if p.Start, err = domain.ParseDate(start); err != nil {
		return p, fmt.Errorf("failed to parse start date: %w", err)
	}
	if p.End, err = domain.ParseDate(end); err != nil {
		return p, fmt.Errorf("failed to parse end date: %w", err)
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// =============================================================================
// PREMIUMS
// =============================================================================

const premiumColumns = `id, policy_id, due_date, amount, status, paid_date`

func (s *Store) InsertPremiumBatch(ctx context.Context, batch []domain.PremiumInstallment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPremiumBatch(ctx, s.db, batch)
}

func insertPremiumBatch(ctx context.Context, q dbtx, batch []domain.PremiumInstallment) error {
	for _, inst := range batch {
		var paidDate any
		if inst.PaidDate != nil {
			paidDate = inst.PaidDate.String()
		}
		_, err := q.ExecContext(ctx,
			`INSERT INTO premiums (`+premiumColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			inst.ID, inst.PolicyID, inst.DueDate.String(),
			inst.Amount.Value.String(), inst.Status, paidDate,
		)
		if err != nil {
			return fmt.Errorf("failed to insert premium %s: %w", inst.ID, err)
		}
	}
	return nil
}

func (s *Store) GetPremium(ctx context.Context, id domain.PremiumID) (*domain.PremiumInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPremium(ctx, s.db, id)
}

func getPremium(ctx context.Context, q dbtx, id domain.PremiumID) (*domain.PremiumInstallment, error) {
	premiums, err := queryPremiums(ctx, q,
		`SELECT `+premiumColumns+` FROM premiums WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(premiums) == 0 {
		return nil, nil
	}
	return &premiums[0], nil
}

func (s *Store) ListPendingPremiums(ctx context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPendingPremiums(ctx, s.db, policyID)
}

func listPendingPremiums(ctx context.Context, q dbtx, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	return queryPremiums(ctx, q,
		`SELECT `+premiumColumns+` FROM premiums
		 WHERE policy_id = ? AND status = 'Pending' ORDER BY due_date ASC`, policyID)
}

func (s *Store) ListPremiumsByPolicy(ctx context.Context, policyID domain.PolicyID) ([]domain.PremiumInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPremiums(ctx, s.db,
		`SELECT `+premiumColumns+` FROM premiums WHERE policy_id = ? ORDER BY due_date ASC`,
		policyID)
}

func (s *Store) MarkPremiumPaid(ctx context.Context, id domain.PremiumID, paidOn domain.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markPremiumPaid(ctx, s.db, id, paidOn)
}

func markPremiumPaid(ctx context.Context, q dbtx, id domain.PremiumID, paidOn domain.Date) error {
	res, err := q.ExecContext(ctx,
		`UPDATE premiums SET status = 'Paid', paid_date = ?
		 WHERE id = ? AND status = 'Pending'`,
		paidOn.String(), id)
	if err != nil {
		return fmt.Errorf("failed to mark premium paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "premium", ID: string(id)}
	}
	return nil
}

func (s *Store) DeletePendingPremiums(ctx context.Context, policyID domain.PolicyID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePendingPremiums(ctx, s.db, policyID)
}

func deletePendingPremiums(ctx context.Context, q dbtx, policyID domain.PolicyID) (int, error) {
	res, err := q.ExecContext(ctx,
		`DELETE FROM premiums WHERE policy_id = ? AND status = 'Pending'`, policyID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending premiums: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *Store) ListUpcomingPremiums(ctx context.Context, agentID domain.AgentID, today domain.Date, days int) ([]domain.UpcomingPremium, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUpcomingPremiums(ctx, s.db, agentID, today, days)
}

func listUpcomingPremiums(ctx context.Context, q dbtx, agentID domain.AgentID, today domain.Date, days int) ([]domain.UpcomingPremium, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT pr.id, p.id, p.policy_number, c.name, holder.name, pr.due_date, pr.amount
		 FROM premiums pr
		 JOIN policies p ON pr.policy_id = p.id
		 JOIN customers c ON p.customer_id = c.id
		 JOIN customers holder ON p.policy_holder_id = holder.id
		 WHERE c.agent_id = ? AND pr.status = 'Pending'
		   AND pr.due_date BETWEEN ? AND ?
		 ORDER BY pr.due_date ASC`,
		agentID, today.String(), today.AddDays(days).String())
	if err != nil {
		return nil, fmt.Errorf("failed to query upcoming premiums: %w", err)
	}
	defer rows.Close()

	var result []domain.UpcomingPremium
	for rows.Next() {
		var (
			up      domain.UpcomingPremium
			dueDate string
			amount  string
		)
		if err := rows.Scan(&up.PremiumID, &up.PolicyID, &up.PolicyNumber,
			&up.CustomerName, &up.HolderName, &dueDate, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan upcoming premium: %w", err)
		}
		if up.DueDate, err = domain.ParseDate(dueDate); err != nil {
			return nil, fmt.Errorf("failed to parse due date: %w", err)
		}
		if up.Amount, err = domain.MoneyFromString(amount); err != nil {
			return nil, err
		}
		result = append(result, up)
	}
	return result, rows.Err()
}

func queryPremiums(ctx context.Context, q dbtx, query string, args ...any) ([]domain.PremiumInstallment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query premiums: %w", err)
	}
	defer rows.Close()

	var premiums []domain.PremiumInstallment
	for rows.Next() {
		var (
			inst     domain.PremiumInstallment
			dueDate  string
			amount   string
			paidDate sql.NullString
		)
		if err := rows.Scan(&inst.ID, &inst.PolicyID, &dueDate, &amount,
			&inst.Status, &paidDate); err != nil {
			return nil, fmt.Errorf("failed to scan premium: %w", err)
		}
		if inst.DueDate, err = domain.ParseDate(dueDate); err != nil {
			return nil, fmt.Errorf("failed to parse due date: %w", err)
		}
		if inst.Amount, err = domain.MoneyFromString(amount); err != nil {
			return nil, err
		}
		if paidDate.Valid {
			d, err := domain.ParseDate(paidDate.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse paid date: %w", err)
			}
			inst.PaidDate = &d
		}
		premiums = append(premiums, inst)
	}
	return premiums, rows.Err()
}
