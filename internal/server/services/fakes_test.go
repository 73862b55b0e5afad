package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sic/internal/common"
	"github.com/dmitrijs2005/sic/internal/dbx"
	"github.com/dmitrijs2005/sic/internal/logging"
	"github.com/dmitrijs2005/sic/internal/server/audit"
	"github.com/dmitrijs2005/sic/internal/server/auth"
	"github.com/dmitrijs2005/sic/internal/server/config"
	"github.com/dmitrijs2005/sic/internal/server/models"
	"github.com/dmitrijs2005/sic/internal/server/passwords"
	"github.com/dmitrijs2005/sic/internal/server/repositories/appeals"
	"github.com/dmitrijs2005/sic/internal/server/repositories/devices"
	"github.com/dmitrijs2005/sic/internal/server/repositories/users"
	"github.com/dmitrijs2005/sic/internal/server/sitestate"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

// memStore is an in-memory backing for the fake repositories. Writes are
// applied immediately; transaction boundaries are checked through sqlmock.
type memStore struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	devices map[int64]*models.Device
	appeals map[int64]*models.Appeal
	nextID  int64

	// failOn makes the named repository method return errBoom.
	failOn map[string]bool
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[int64]*models.User{},
		devices: map[int64]*models.Device{},
		appeals: map[int64]*models.Appeal{},
		failOn:  map[string]bool{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) fail(name string) error {
	if m.failOn[name] {
		return errBoom
	}
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.BlockedCode != nil {
		code := *u.BlockedCode
		c.BlockedCode = &code
	}
	return &c
}

// --- users ---

type fakeUsers struct{ m *memStore }

func (r fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range r.m.users {
		if existing.UserName == u.UserName || existing.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	u.ID = r.m.id()
	u.CreatedAt = time.Now()
	r.m.users[u.ID] = cloneUser(u)
	return u, nil
}

func (r fakeUsers) get(id int64) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.Get"); err != nil {
		return nil, err
	}
	u, ok := r.m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) { return r.get(id) }

func (r fakeUsers) GetByIDForUpdate(_ context.Context, id int64) (*models.User, error) {
	return r.get(id)
}

func (r fakeUsers) GetByUsername(_ context.Context, name string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.Get"); err != nil {
		return nil, err
	}
	for _, u := range r.m.users {
		if u.UserName == name {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r fakeUsers) ExistsByUsernameOrEmail(_ context.Context, name, email string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.UserName == name || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeUsers) UpdateModeration(_ context.Context, u *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.UpdateModeration"); err != nil {
		return err
	}
	stored, ok := r.m.users[u.ID]
	if !ok {
		return common.ErrNotFound
	}
	stored.Blocked = u.Blocked
	stored.BlockedCode = cloneUser(u).BlockedCode
	stored.PermanentlyBanned = u.PermanentlyBanned
	return nil
}

func (r fakeUsers) UpdateSecretKey(_ context.Context, id int64, secret string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("users.UpdateSecretKey"); err != nil {
		return err
	}
	stored, ok := r.m.users[id]
	if !ok {
		return common.ErrNotFound
	}
	stored.SecretKey = secret
	return nil
}

// --- devices ---

type fakeDevices struct{ m *memStore }

func (r fakeDevices) Create(_ context.Context, d *models.Device) (*models.Device, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("devices.Create"); err != nil {
		return nil, err
	}
	d.ID = r.m.id()
	d.CreatedAt = time.Now()
	c := *d
	r.m.devices[d.ID] = &c
	return d, nil
}

func (r fakeDevices) GetByID(_ context.Context, id int64) (*models.Device, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.devices[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *d
	return &c, nil
}

func (r fakeDevices) GetByIDForUpdate(ctx context.Context, id int64) (*models.Device, error) {
	return r.GetByID(ctx, id)
}

func (r fakeDevices) SetAuthorized(_ context.Context, id int64, authorized bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("devices.SetAuthorized"); err != nil {
		return err
	}
	d, ok := r.m.devices[id]
	if !ok {
		return common.ErrNotFound
	}
	d.Authorized = authorized
	return nil
}

func (r fakeDevices) DeauthorizeByOwner(_ context.Context, ownerID int64) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("devices.DeauthorizeByOwner"); err != nil {
		return 0, err
	}
	var n int64
	for _, d := range r.m.devices {
		if d.OwnerID == ownerID && d.Authorized {
			d.Authorized = false
			n++
		}
	}
	return n, nil
}

func (r fakeDevices) ListByOwner(_ context.Context, ownerID int64) ([]models.Device, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("devices.ListByOwner"); err != nil {
		return nil, err
	}
	var out []models.Device
	for _, d := range r.m.devices {
		if d.OwnerID == ownerID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- appeals ---

type fakeAppeals struct{ m *memStore }

func (r fakeAppeals) Create(_ context.Context, a *models.Appeal) (*models.Appeal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("appeals.Create"); err != nil {
		return nil, err
	}
	a.ID = r.m.id()
	a.CreatedAt = time.Now()
	c := *a
	r.m.appeals[a.ID] = &c
	return a, nil
}

func (r fakeAppeals) GetByIDForUpdate(_ context.Context, id int64) (*models.Appeal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.appeals[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (r fakeAppeals) MarkResolved(_ context.Context, a *models.Appeal) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.appeals[a.ID]
	if !ok || stored.Resolved {
		return common.ErrConflict
	}
	stored.Resolved = true
	stored.Approved = a.Approved
	stored.ResolvedAt = a.ResolvedAt
	stored.ResolvedBy = a.ResolvedBy
	a.Resolved = true
	return nil
}

func (r fakeAppeals) ListPending(_ context.Context) ([]models.PendingAppeal, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.PendingAppeal
	for _, a := range r.m.appeals {
		if a.Resolved {
			continue
		}
		u := r.m.users[a.UserID]
		out = append(out, models.PendingAppeal{
			AppealID:    a.ID,
			UserID:      a.UserID,
			UserName:    u.UserName,
			Email:       u.Email,
			Reason:      a.Reason,
			BlockedCode: cloneUser(u).BlockedCode,
			CreatedAt:   a.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppealID < out[j].AppealID })
	return out, nil
}

// --- manager ---

type fakeRepoManager struct{ m *memStore }

func (f *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(dbx.DBTX) users.Repository          { return fakeUsers{f.m} }
func (f *fakeRepoManager) Devices(dbx.DBTX) devices.Repository      { return fakeDevices{f.m} }
func (f *fakeRepoManager) Appeals(dbx.DBTX) appeals.Repository      { return fakeAppeals{f.m} }

// --- audit ---

type recordingSink struct {
	mu      sync.Mutex
	records []audit.Record
	err     error
}

func (s *recordingSink) Append(_ context.Context, rec audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Action)
	}
	return out
}

// --- environment ---

type testEnv struct {
	mem      *memStore
	mock     sqlmock.Sqlmock
	runner   *dbx.SQLRunner
	authn    *Authenticator
	accounts *AccountService
	dog      *WatcherDog
	site     *sitestate.MemoryStore
	sink     *recordingSink
	now      time.Time
}

func newTestEnv(t *testing.T, mode config.SigningMode) *testEnv {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
		db.Close()
	})

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SigningMode = mode
	cfg.SecretKey = "global-test-secret"

	mem := newMemStore()
	repos := &fakeRepoManager{m: mem}
	runner := dbx.NewSQLRunner(db, nil)
	authn := NewAuthenticator(cfg, auth.NewTokenService(time.Hour), runner, repos)
	hasher := passwords.NewHasher(bcrypt.MinCost)
	site := sitestate.NewMemoryStore()
	sink := &recordingSink{}

	env := &testEnv{
		mem:      mem,
		mock:     mock,
		runner:   runner,
		authn:    authn,
		accounts: NewAccountService(runner, repos, authn, hasher, cfg.UserSecretLength, logging.Nop{}),
		dog:      NewWatcherDog(runner, repos, authn, site, sink, cfg.UserSecretLength, logging.Nop{}),
		site:     site,
		sink:     sink,
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	env.dog.now = func() time.Time { return env.now }
	return env
}

// seedUser stores a user directly and returns it with a valid token.
func (e *testEnv) seedUser(t *testing.T, name string, admin bool) (*models.User, string) {
	t.Helper()

	secret, err := common.MakeRandHexString(32)
	require.NoError(t, err)

	u := &models.User{
		UserName:  name,
		Email:     name + "@example.com",
		SecretKey: secret,
		IsAdmin:   admin,
	}
	_, err = fakeUsers{e.mem}.Create(context.Background(), u)
	require.NoError(t, err)

	tok, err := e.authn.Issue(u)
	require.NoError(t, err)
	return u, tok
}

func (e *testEnv) seedDevice(t *testing.T, owner *models.User, name string) *models.Device {
	t.Helper()
	d, err := fakeDevices{e.mem}.Create(context.Background(), &models.Device{Name: name, OwnerID: owner.ID, Authorized: true})
	require.NoError(t, err)
	return d
}

func (e *testEnv) user(id int64) *models.User {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	return cloneUser(e.mem.users[id])
}

func (e *testEnv) device(id int64) models.Device {
	e.mem.mu.Lock()
	defer e.mem.mu.Unlock()
	return *e.mem.devices[id]
}

func (e *testEnv) expectCommit() {
	e.mock.ExpectBegin()
	e.mock.ExpectCommit()
}

func (e *testEnv) expectRollback() {
	e.mock.ExpectBegin()
	e.mock.ExpectRollback()
}
