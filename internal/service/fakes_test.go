package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/token"
)

// In-memory fakes for the repository interfaces, in the style of the
// service tests this package's dependencies get elsewhere.

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]domain.Ticket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	t.ID = fmt.Sprintf("ticket-%d", r.seq)
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	r.tickets[t.ID] = *t
	return nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[t.ID]; !ok {
		return pgx.ErrNoRows
	}
	t.UpdatedAt = time.Now()
	r.tickets[t.ID] = *t
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := t
	return &copied, nil
}

func (r *fakeTicketRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeTicketRepo) GetByToken(ctx context.Context, tok string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.Token != nil && *t.Token == tok {
			copied := t
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) TokenExists(ctx context.Context, tok string) (bool, error) {
	_, err := r.GetByToken(ctx, tok)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeTicketRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, t := range r.tickets {
		if t.OwnerID != nil && *t.OwnerID == ownerID && t.DeletedAt == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Append(ctx context.Context, e *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	e.ID = fmt.Sprintf("history-%d", r.seq)
	e.CreatedAt = time.Now()
	r.entries = append(r.entries, *e)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TicketHistory
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	seq           int
	notifications []domain.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	n.ID = fmt.Sprintf("notification-%d", r.seq)
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.RecipientID != recipientID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, recipientID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		n := &r.notifications[i]
		if n.ID == id && n.RecipientID == recipientID && n.ReadAt == nil {
			n.ReadAt = &at
		}
	}
	return nil
}

func (r *fakeNotificationRepo) MarkReadForTicket(ctx context.Context, recipientID, ticketID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.notifications {
		n := &r.notifications[i]
		if n.RecipientID == recipientID && n.TicketID != nil && *n.TicketID == ticketID && n.ReadAt == nil {
			n.ReadAt = &at
		}
	}
	return nil
}

func (r *fakeNotificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	list, _ := r.ListByRecipient(ctx, recipientID, true, 1000, 0)
	return len(list), nil
}

func (r *fakeNotificationRepo) byType(t domain.NotificationType) []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Notification
	for _, n := range r.notifications {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type fakeChatMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages map[string]domain.ChatMessage
}

func newFakeChatMessageRepo() *fakeChatMessageRepo {
	return &fakeChatMessageRepo{messages: make(map[string]domain.ChatMessage)}
}

func (r *fakeChatMessageRepo) Create(ctx context.Context, m *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	m.ID = fmt.Sprintf("message-%d", r.seq)
	m.CreatedAt = time.Now()
	r.messages[m.ID] = *m
	return nil
}

func (r *fakeChatMessageRepo) GetByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := m
	copied.ReadBy = append([]string(nil), m.ReadBy...)
	return &copied, nil
}

func (r *fakeChatMessageRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range r.messages {
		if m.TicketID == ticketID && m.DeletedAt == nil {
			copied := m
			copied.ReadBy = append([]string(nil), m.ReadBy...)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (r *fakeChatMessageRepo) AddReader(ctx context.Context, messageID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, id := range m.ReadBy {
		if id == userID {
			return nil
		}
	}
	m.ReadBy = append(m.ReadBy, userID)
	r.messages[messageID] = m
	return nil
}

func (r *fakeChatMessageRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok || m.DeletedAt != nil {
		return pgx.ErrNoRows
	}
	m.DeletedAt = &at
	r.messages[id] = m
	return nil
}

type fakeChatAttachmentRepo struct {
	mu          sync.Mutex
	seq         int
	attachments map[string]domain.ChatAttachment
}

func newFakeChatAttachmentRepo() *fakeChatAttachmentRepo {
	return &fakeChatAttachmentRepo{attachments: make(map[string]domain.ChatAttachment)}
}

func (r *fakeChatAttachmentRepo) Create(ctx context.Context, a *domain.ChatAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	a.ID = fmt.Sprintf("attachment-%d", r.seq)
	a.CreatedAt = time.Now()
	r.attachments[a.ID] = *a
	return nil
}

func (r *fakeChatAttachmentRepo) GetByID(ctx context.Context, id string) (*domain.ChatAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := a
	return &copied, nil
}

func (r *fakeChatAttachmentRepo) ListByMessage(ctx context.Context, messageID string) ([]domain.ChatAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatAttachment
	for _, a := range r.attachments {
		if a.MessageID == messageID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeChatAttachmentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.attachments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.attachments, id)
	return nil
}

type fakeFeedbackRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.Feedback
}

func (r *fakeFeedbackRepo) Create(ctx context.Context, f *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	f.ID = fmt.Sprintf("feedback-%d", r.seq)
	f.CreatedAt = time.Now()
	r.entries = append(r.entries, *f)
	return nil
}

func (r *fakeFeedbackRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Feedback
	for _, f := range r.entries {
		if f.TicketID == ticketID {
			out = append(out, f)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := u
	return &copied, nil
}

func (r *fakeUserRepo) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeCategoryRepo struct {
	categories    map[string]bool
	subcategories map[string]string // sub id -> category id
}

func newFakeCategoryRepo(categoryIDs ...string) *fakeCategoryRepo {
	r := &fakeCategoryRepo{categories: make(map[string]bool), subcategories: make(map[string]string)}
	for _, id := range categoryIDs {
		r.categories[id] = true
	}
	return r
}

func (r *fakeCategoryRepo) Exists(ctx context.Context, id string) (bool, error) {
	return r.categories[id], nil
}

func (r *fakeCategoryRepo) SubCategoryExists(ctx context.Context, id, categoryID string) (bool, error) {
	return r.subcategories[id] == categoryID, nil
}

type fakeRevealCache struct {
	mu       sync.Mutex
	revealed map[string]bool
}

func newFakeRevealCache() *fakeRevealCache {
	return &fakeRevealCache{revealed: make(map[string]bool)}
}

func (c *fakeRevealCache) MarkRevealed(ctx context.Context, ticketID, actorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revealed[ticketID+"|"+actorID] = true
	return nil
}

func (c *fakeRevealCache) Revealed(ctx context.Context, ticketID, actorID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revealed[ticketID+"|"+actorID], nil
}

type fakePasswordVerifier struct {
	passwords map[string]string // user id -> plaintext
}

func (v *fakePasswordVerifier) VerifyPassword(ctx context.Context, userID, plaintext string) (bool, error) {
	return v.passwords[userID] == plaintext, nil
}

// harness bundles all fakes behind a ready-to-use service pair.
type harness struct {
	tickets       *fakeTicketRepo
	history       *fakeHistoryRepo
	notifications *fakeNotificationRepo
	messages      *fakeChatMessageRepo
	attachments   *fakeChatAttachmentRepo
	feedback      *fakeFeedbackRepo
	users         *fakeUserRepo
	categories    *fakeCategoryRepo
	reveal        *fakeRevealCache
	passwords     *fakePasswordVerifier
	lifecycle     *LifecycleService
	chat          *ChatService
}

func newHarness(users ...domain.User) *harness {
	h := &harness{
		tickets:       newFakeTicketRepo(),
		history:       &fakeHistoryRepo{},
		notifications: &fakeNotificationRepo{},
		messages:      newFakeChatMessageRepo(),
		attachments:   newFakeChatAttachmentRepo(),
		feedback:      &fakeFeedbackRepo{},
		users:         newFakeUserRepo(users...),
		categories:    newFakeCategoryRepo("cat-1"),
		reveal:        newFakeRevealCache(),
		passwords:     &fakePasswordVerifier{passwords: map[string]string{}},
	}
	logger := zap.NewNop()
	notifier := NewNotificationService(h.users, h.notifications, logger)
	tokens := token.NewService(h.tickets.TokenExists)
	h.lifecycle = NewLifecycleService(LifecycleDependencies{
		TicketRepo:       h.tickets,
		HistoryRepo:      h.history,
		FeedbackRepo:     h.feedback,
		UserRepo:         h.users,
		CategoryRepo:     h.categories,
		NotificationRepo: h.notifications,
		Notifier:         notifier,
		Tokens:           tokens,
		Reveal:           h.reveal,
		Passwords:        h.passwords,
		Tx:               passthroughTx{},
		Logger:           logger,
	})
	h.chat = NewChatService(ChatDependencies{
		TicketRepo:     h.tickets,
		MessageRepo:    h.messages,
		AttachmentRepo: h.attachments,
		Notifier:       notifier,
		Tx:             passthroughTx{},
		Logger:         logger,
	})
	return h
}

var _ repository.TicketRepository = (*fakeTicketRepo)(nil)
var _ repository.TicketHistoryRepository = (*fakeHistoryRepo)(nil)
var _ repository.NotificationRepository = (*fakeNotificationRepo)(nil)
var _ repository.ChatMessageRepository = (*fakeChatMessageRepo)(nil)
var _ repository.ChatAttachmentRepository = (*fakeChatAttachmentRepo)(nil)
var _ repository.FeedbackRepository = (*fakeFeedbackRepo)(nil)
var _ repository.UserRepository = (*fakeUserRepo)(nil)
var _ repository.CategoryRepository = (*fakeCategoryRepo)(nil)
