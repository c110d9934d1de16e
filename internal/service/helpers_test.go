package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tiisu/eco-action-hub/internal/domain"
	"github.com/Tiisu/eco-action-hub/internal/security/audit"
	"github.com/Tiisu/eco-action-hub/internal/security/auth"
	"log/slog"
)

// In-memory repository fakes mirroring the Postgres semantics the services
// rely on: single-shot transitions, guarded increments, transactional
// redemption.

type memProfileRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Profile
	byEmail map[string]*domain.Profile
	nextID  int
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{byID: map[string]*domain.Profile{}, byEmail: map[string]*domain.Profile{}}
}

func (m *memProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[p.Email]; ok {
		return domain.ErrEmailTaken
	}
	if p.ID == "" {
		m.nextID++
		p.ID = fmt.Sprintf("p-%d", m.nextID)
	}
	p.IsActive = true
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.byID[p.ID] = p
	m.byEmail[p.Email] = p
	return nil
}

func (m *memProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byEmail[email]; ok && p.IsActive {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memProfileRepo) Update(ctx context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[p.ID]
	if !ok || !stored.IsActive {
		return domain.ErrNotFound
	}
	stored.FirstName = p.FirstName
	stored.LastName = p.LastName
	stored.CompanyName = p.CompanyName
	stored.LicenseNumber = p.LicenseNumber
	stored.AvatarURL = p.AvatarURL
	stored.PasswordHash = p.PasswordHash
	stored.UpdatedAt = time.Now()
	p.UpdatedAt = stored.UpdatedAt
	return nil
}

func (m *memProfileRepo) SetApproved(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if p.Role != domain.RoleAgent || p.Approved || !p.IsActive {
		return domain.ErrInvalidStateTransition
	}
	p.Approved = true
	return nil
}

func (m *memProfileRepo) Deactivate(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if !p.IsActive {
		return domain.ErrInvalidStateTransition
	}
	p.IsActive = false
	return nil
}

func (m *memProfileRepo) IncrementPoints(ctx context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || !p.IsActive {
		return domain.ErrNotFound
	}
	if p.Points+delta < 0 {
		return domain.ErrInsufficientPoints
	}
	p.Points += delta
	return nil
}

func (m *memProfileRepo) ListPendingAgents(ctx context.Context) ([]*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Profile
	for _, p := range m.byID {
		if p.Role == domain.RoleAgent && !p.Approved && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memProfileRepo) TopByPoints(ctx context.Context, limit int) ([]*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Profile
	for _, p := range m.byID {
		if p.Role == domain.RoleUser && p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Points > out[i].Points {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memReportRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.WasteReport
	profiles *memProfileRepo
	nextID   int
}

func newMemReportRepo(profiles *memProfileRepo) *memReportRepo {
	return &memReportRepo{byID: map[string]*domain.WasteReport{}, profiles: profiles}
}

func (m *memReportRepo) Create(ctx context.Context, r *domain.WasteReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		m.nextID++
		r.ID = fmt.Sprintf("r-%d", m.nextID)
	}
	r.Status = domain.ReportPending
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	m.byID[r.ID] = r
	return nil
}

func (m *memReportRepo) GetByID(ctx context.Context, id string) (*domain.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memReportRepo) ListByUser(ctx context.Context, userID string) ([]*domain.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.WasteReport
	for _, r := range m.byID {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReportRepo) ListByStatus(ctx context.Context, status domain.ReportStatus) ([]*domain.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.WasteReport
	for _, r := range m.byID {
		if r.Status == status {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReportRepo) List(ctx context.Context) ([]*domain.WasteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.WasteReport
	for _, r := range m.byID {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memReportRepo) Decide(ctx context.Context, reportID string, status domain.ReportStatus, agentID string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[reportID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Status != domain.ReportPending {
		return domain.ErrInvalidStateTransition
	}
	r.Status = status
	r.AgentID = agentID
	r.UpdatedAt = time.Now()
	if status == domain.ReportApproved && points > 0 {
		if err := m.profiles.IncrementPoints(ctx, r.UserID, points); err != nil {
			return err
		}
	}
	return nil
}

type memRewardRepo struct {
	mu          sync.Mutex
	byID        map[string]*domain.Reward
	redemptions []*domain.Redemption
	profiles    *memProfileRepo
	nextID      int
}

func newMemRewardRepo(profiles *memProfileRepo) *memRewardRepo {
	return &memRewardRepo{byID: map[string]*domain.Reward{}, profiles: profiles}
}

func (m *memRewardRepo) Create(ctx context.Context, r *domain.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		m.nextID++
		r.ID = fmt.Sprintf("rw-%d", m.nextID)
	}
	m.byID[r.ID] = r
	return nil
}

func (m *memRewardRepo) GetByID(ctx context.Context, id string) (*domain.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.byID[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memRewardRepo) ListAvailable(ctx context.Context) ([]*domain.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reward
	for _, r := range m.byID {
		if r.Quantity > 0 {
			cp := *r
			out = append(out, &cp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].PointsRequired < out[i].PointsRequired {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *memRewardRepo) List(ctx context.Context) ([]*domain.Reward, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reward
	for _, r := range m.byID {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRewardRepo) Update(ctx context.Context, r *domain.Reward) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[r.ID]; !ok {
		return domain.ErrNotFound
	}
	m.byID[r.ID] = r
	return nil
}

func (m *memRewardRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrNotFound
	}
	for _, red := range m.redemptions {
		if red.RewardID == id {
			return fmt.Errorf("%w: reward has redemptions", domain.ErrInvalidStateTransition)
		}
	}
	delete(m.byID, id)
	return nil
}

func (m *memRewardRepo) Redeem(ctx context.Context, red *domain.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[red.RewardID]
	if !ok {
		return domain.ErrNotFound
	}
	if r.Quantity <= 0 {
		return domain.ErrOutOfStock
	}
	if err := m.profiles.IncrementPoints(ctx, red.UserID, -red.PointsSpent); err != nil {
		return err
	}
	r.Quantity--
	if red.ID == "" {
		m.nextID++
		red.ID = fmt.Sprintf("rd-%d", m.nextID)
	}
	red.CreatedAt = time.Now()
	m.redemptions = append(m.redemptions, red)
	return nil
}

func (m *memRewardRepo) ListRedemptionsByUser(ctx context.Context, userID string) ([]*domain.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Redemption
	for _, red := range m.redemptions {
		if red.UserID == userID {
			cp := *red
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memSettingRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{values: map[string]string{}}
}

func (m *memSettingRepo) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", domain.ErrNotFound
}

func (m *memSettingRepo) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memSettingRepo) List(ctx context.Context) ([]*domain.SystemSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.SystemSetting
	for k, v := range m.values {
		out = append(out, &domain.SystemSetting{Key: k, Value: v})
	}
	return out, nil
}

// recordingNotifier captures approval notifications for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []struct {
		AgentID  string
		Approved bool
	}
}

func (n *recordingNotifier) NotifyApproval(agentID string, approved bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, struct {
		AgentID  string
		Approved bool
	}{agentID, approved})
}

// recordingInvalidator counts ranking invalidations.
type recordingInvalidator struct {
	calls int
}

func (r *recordingInvalidator) Invalidate(ctx context.Context) {
	r.calls++
}

func testAudit() *audit.Logger {
	return audit.NewLogger(slog.Default())
}

func testSettings(repo domain.SettingRepository) *SettingService {
	return NewSettingService(repo, 1, false, nil)
}

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager("test-secret", "test", time.Hour)
}
