package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memData is the state of memRepo. Rows are held by value so callers never
// alias stored data.
type memData struct {
	products      map[string]models.Product
	orders        map[string]models.Order
	events        []models.OrderEvent
	verifications map[string]models.VerificationRequest
	tickets       map[string]models.SupportTicket
	profiles      map[string]models.UserProfile
	notifications map[string]models.Notification
	nextEventID   int64
}

func (d *memData) clone() *memData {
	c := &memData{
		products:      make(map[string]models.Product, len(d.products)),
		orders:        make(map[string]models.Order, len(d.orders)),
		events:        append([]models.OrderEvent(nil), d.events...),
		verifications: make(map[string]models.VerificationRequest, len(d.verifications)),
		tickets:       make(map[string]models.SupportTicket, len(d.tickets)),
		profiles:      make(map[string]models.UserProfile, len(d.profiles)),
		notifications: make(map[string]models.Notification, len(d.notifications)),
		nextEventID:   d.nextEventID,
	}
	for k, v := range d.products {
		c.products[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.verifications {
		c.verifications[k] = v
	}
	for k, v := range d.tickets {
		c.tickets[k] = v
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = v
	}
	return c
}

// memRepo is an in-memory store.Repository. WithTx snapshots the data and
// restores it when fn fails.
type memRepo struct {
	mu   sync.Mutex
	data *memData
	// fail makes the named operation return an error.
	fail map[string]error
	// locked records every row lock taken, as "<table>:<id>".
	locked []string
}

func newMemRepo() *memRepo {
	return &memRepo{
		data: (&memData{
			products:      map[string]models.Product{},
			orders:        map[string]models.Order{},
			verifications: map[string]models.VerificationRequest{},
			tickets:       map[string]models.SupportTicket{},
			profiles:      map[string]models.UserProfile{},
			notifications: map[string]models.Notification{},
		}),
		fail: map[string]error{},
	}
}

var _ store.Repository = (*memRepo)(nil)

func (r *memRepo) check(op string) error {
	return r.fail[op]
}

func missing(what, id string) error {
	return fmt.Errorf("%s %s: %w", what, id, models.ErrNotFound)
}

func (r *memRepo) WithTx(ctx context.Context, fn func(tx store.Repository) error) error {
	r.mu.Lock()
	snapshot := r.data.clone()
	r.mu.Unlock()

	if err := fn(r); err != nil {
		r.mu.Lock()
		r.data = snapshot
		r.mu.Unlock()
		return err
	}
	return nil
}

func (r *memRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.products[p.ID] = *p
	return nil
}

func (r *memRepo) UpdateProduct(ctx context.Context, p *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.products[p.ID]; !ok {
		return missing("product", p.ID)
	}
	r.data.products[p.ID] = *p
	return nil
}

func (r *memRepo) DeleteProduct(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.products[id]; !ok {
		return missing("product", id)
	}
	delete(r.data.products, id)
	return nil
}

func (r *memRepo) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.products[id]
	if !ok {
		return nil, missing("product", id)
	}
	return &p, nil
}

func (r *memRepo) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Product{}
	for _, p := range r.data.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if !p.Visible && !filter.IncludeHidden {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.check("CreateOrder"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.orders[order.ID]; ok {
		return fmt.Errorf("duplicate order %s", order.ID)
	}
	r.data.orders[order.ID] = *order
	return nil
}

func (r *memRepo) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.data.orders[id]
	if !ok {
		return nil, missing("order", id)
	}
	return &o, nil
}

func (r *memRepo) lock(row string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = append(r.locked, row)
}

func (r *memRepo) LockOrder(ctx context.Context, id string) (*models.Order, error) {
	r.lock("order:" + id)
	return r.GetOrderByID(ctx, id)
}

func (r *memRepo) UpdateOrder(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.orders[order.ID]; !ok {
		return missing("order", order.ID)
	}
	r.data.orders[order.ID] = *order
	return nil
}

func (r *memRepo) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Order{}
	for _, o := range r.data.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Phone != "" && o.CustomerPhone != filter.Phone {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) AppendOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.nextEventID++
	event.ID = r.data.nextEventID
	r.data.events = append(r.data.events, *event)
	return nil
}

func (r *memRepo) ListOrderEvents(ctx context.Context, orderID string) ([]models.OrderEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.OrderEvent{}
	for _, e := range r.data.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memRepo) DeleteOrdersByPhone(ctx context.Context, phone string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, o := range r.data.orders {
		if o.CustomerPhone != phone {
			continue
		}
		n++
		delete(r.data.orders, id)

		kept := r.data.events[:0]
		for _, e := range r.data.events {
			if e.OrderID != id {
				kept = append(kept, e)
			}
		}
		r.data.events = kept
		for vid, v := range r.data.verifications {
			if v.OrderID != nil && *v.OrderID == id {
				delete(r.data.verifications, vid)
			}
		}
		for nid, nt := range r.data.notifications {
			if nt.OrderID != nil && *nt.OrderID == id {
				delete(r.data.notifications, nid)
			}
		}
	}
	return n, nil
}

func (r *memRepo) CreateVerification(ctx context.Context, req *models.VerificationRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.OrderID != nil && req.Status == models.VerificationStatusPending {
		for _, v := range r.data.verifications {
			if v.OrderID != nil && *v.OrderID == *req.OrderID && v.Status == models.VerificationStatusPending {
				return fmt.Errorf("order %s: %w", *req.OrderID, models.ErrDuplicatePending)
			}
		}
	}
	r.data.verifications[req.ID] = *req
	return nil
}

func (r *memRepo) GetVerificationByID(ctx context.Context, id string) (*models.VerificationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data.verifications[id]
	if !ok {
		return nil, missing("verification request", id)
	}
	return &v, nil
}

func (r *memRepo) LockVerification(ctx context.Context, id string) (*models.VerificationRequest, error) {
	r.lock("verification:" + id)
	return r.GetVerificationByID(ctx, id)
}

func (r *memRepo) LockTicket(ctx context.Context, id string) (*models.SupportTicket, error) {
	r.lock("ticket:" + id)
	return r.GetTicketByID(ctx, id)
}

func (r *memRepo) ListVerifications(ctx context.Context, status models.VerificationStatus) ([]models.VerificationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.VerificationRequest{}
	for _, v := range r.data.verifications {
		if status == "" || v.Status == status {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestDate.After(out[j].RequestDate) })
	return out, nil
}

func (r *memRepo) HasPendingVerification(ctx context.Context, orderID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.data.verifications {
		if v.OrderID != nil && *v.OrderID == orderID && v.Status == models.VerificationStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) HasPendingSubscription(ctx context.Context, phone, planName string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.data.verifications {
		if v.Type == models.VerificationTypeSubscription && v.Phone == phone &&
			v.PlanName == planName && v.Status == models.VerificationStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRepo) ResolveVerification(ctx context.Context, id string, status models.VerificationStatus, actor, note string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.data.verifications[id]
	if !ok || v.Status != models.VerificationStatusPending {
		return false, nil
	}
	v.Status = status
	v.ResolvedBy = actor
	v.ResolutionNote = note
	v.ResolvedAt = &at
	r.data.verifications[id] = v
	return true, nil
}

func (r *memRepo) DeleteSubscriptionVerificationsByPhone(ctx context.Context, phone string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, v := range r.data.verifications {
		if v.Type == models.VerificationTypeSubscription && v.Phone == phone {
			delete(r.data.verifications, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CreateTicket(ctx context.Context, t *models.SupportTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.tickets[t.ID] = *t
	return nil
}

func (r *memRepo) GetTicketByID(ctx context.Context, id string) (*models.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data.tickets[id]
	if !ok {
		return nil, missing("ticket", id)
	}
	return &t, nil
}

func (r *memRepo) ListTickets(ctx context.Context, status models.TicketStatus) ([]models.SupportTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.SupportTicket{}
	for _, t := range r.data.tickets {
		if status == "" || t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepo) UpdateTicketStatus(ctx context.Context, id string, status models.TicketStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data.tickets[id]
	if !ok {
		return missing("ticket", id)
	}
	t.Status = status
	t.UpdatedAt = at
	r.data.tickets[id] = t
	return nil
}

func (r *memRepo) DeleteTicketsByPhone(ctx context.Context, phone string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.data.tickets {
		if t.Phone == phone {
			delete(r.data.tickets, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) GetProfile(ctx context.Context, phone string) (*models.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.data.profiles[phone]
	if !ok {
		return nil, missing("profile", phone)
	}
	return &p, nil
}

func (r *memRepo) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.profiles[p.Phone] = *p
	return nil
}

func (r *memRepo) DeleteProfile(ctx context.Context, phone string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.data.profiles[phone]
	delete(r.data.profiles, phone)
	return ok, nil
}

func (r *memRepo) EnqueueNotification(ctx context.Context, n *models.Notification) error {
	if err := r.check("EnqueueNotification"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data.notifications[n.ID] = *n
	return nil
}

func (r *memRepo) GetNotificationByID(ctx context.Context, id string) (*models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.data.notifications[id]
	if !ok {
		return nil, missing("notification", id)
	}
	return &n, nil
}

func (r *memRepo) UpdateNotification(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data.notifications[n.ID]; !ok {
		return missing("notification", n.ID)
	}
	r.data.notifications[n.ID] = *n
	return nil
}

func (r *memRepo) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.data.notifications {
		if n.Status == models.NotificationStatusPending && !n.NextAttemptAt.After(now) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memRepo) ListNotifications(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.data.notifications {
		if filter.Status != "" && n.Status != filter.Status {
			continue
		}
		if filter.OrderID != "" && (n.OrderID == nil || *n.OrderID != filter.OrderID) {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// notificationsFor lists the outbox rows of one kind for an order.
func (r *memRepo) notificationsFor(orderID string, kind models.NotificationKind) []models.Notification {
	all, _ := r.ListNotifications(context.Background(), models.NotificationFilter{OrderID: orderID})
	var out []models.Notification
	for _, n := range all {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// memSessions is an in-memory SessionStore. Values round-trip through JSON
// the way they do in Redis.
type memSessions struct {
	mu       sync.Mutex
	carts    map[string][]byte
	sessions map[string][]byte
	idem     map[string]string
	locks    map[string]bool
	codes    map[string]string
	attempts map[string]int64
	// fail makes SaveSession or SetIdempotencyKey return an error.
	fail map[string]error
}

func newMemSessions() *memSessions {
	return &memSessions{
		carts:    map[string][]byte{},
		sessions: map[string][]byte{},
		idem:     map[string]string{},
		locks:    map[string]bool{},
		codes:    map[string]string{},
		attempts: map[string]int64{},
		fail:     map[string]error{},
	}
}

func (m *memSessions) SaveCart(ctx context.Context, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[cart.ID] = data
	return nil
}

func (m *memSessions) GetCart(ctx context.Context, cartID string) (*models.Cart, error) {
	m.mu.Lock()
	data, ok := m.carts[cartID]
	m.mu.Unlock()
	if !ok {
		return nil, missing("cart", cartID)
	}
	var cart models.Cart
	return &cart, json.Unmarshal(data, &cart)
}

func (m *memSessions) DeleteCart(ctx context.Context, cartID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, cartID)
	return nil
}

func (m *memSessions) SaveSession(ctx context.Context, session *models.CheckoutSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["SaveSession"]; err != nil {
		return err
	}
	m.sessions[session.ID] = data
	return nil
}

func (m *memSessions) GetSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	m.mu.Lock()
	data, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, missing("checkout session", sessionID)
	}
	var session models.CheckoutSession
	return &session, json.Unmarshal(data, &session)
}

func (m *memSessions) SetIdempotencyKey(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail["SetIdempotencyKey"]; err != nil {
		return err
	}
	m.idem[key] = value
	return nil
}

func (m *memSessions) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.idem[key]
	return v, ok, nil
}

func (m *memSessions) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[lockKey] {
		return false, nil
	}
	m.locks[lockKey] = true
	return true, nil
}

func (m *memSessions) ReleaseLock(ctx context.Context, lockKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, lockKey)
	return nil
}

func (m *memSessions) SaveLoginCode(ctx context.Context, phone, codeHash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[phone] = codeHash
	delete(m.attempts, phone)
	return nil
}

func (m *memSessions) GetLoginCode(ctx context.Context, phone string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.codes[phone]
	return hash, ok, nil
}

func (m *memSessions) DeleteLoginCode(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, phone)
	delete(m.attempts, phone)
	return nil
}

func (m *memSessions) IncrLoginAttempts(ctx context.Context, phone string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[phone]++
	return m.attempts[phone], nil
}

// recordingPublisher keeps every published event type in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) record(eventType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return p.err
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, e *models.OrderPlacedEvent) error {
	return p.record(e.EventType)
}

func (p *recordingPublisher) PublishOrderStatusChanged(ctx context.Context, e *models.OrderStatusChangedEvent) error {
	return p.record(e.EventType)
}

func (p *recordingPublisher) PublishVerification(ctx context.Context, e *models.VerificationEvent) error {
	return p.record(e.EventType)
}

func (p *recordingPublisher) PublishTicketCreated(ctx context.Context, e *models.TicketCreatedEvent) error {
	return p.record(e.EventType)
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e == eventType {
			n++
		}
	}
	return n
}

type fakeUploader struct {
	calls int
	err   error
}

func (u *fakeUploader) Upload(ctx context.Context, prefix, contentType string, data []byte) (string, error) {
	u.calls++
	if u.err != nil {
		return "", u.err
	}
	return fmt.Sprintf("https://cdn.test/%s/%d.png", prefix, u.calls), nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	sent []string
	err  func(n *models.Notification) error
}

func (d *fakeDispatcher) Send(ctx context.Context, n *models.Notification) error {
	if d.err != nil {
		if err := d.err(n); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n.ID)
	return nil
}

var errGatewayDown = errors.New("gateway down")

// fixedClock returns a clock pinned to t that tests can move.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }

func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fixedClock {
	return &fixedClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

// env wires every service against the in-memory fakes.
type env struct {
	repo          *memRepo
	sessions      *memSessions
	publisher     *recordingPublisher
	uploader      *fakeUploader
	dispatcher    *fakeDispatcher
	clock         *fixedClock
	notifications *NotificationService
	catalog       *CatalogService
	carts         *CartService
	checkout      *CheckoutService
	orders        *OrderService
	verifications *VerificationService
	tickets       *TicketService
	accounts      *AccountService
	customers     *CustomerAuthService
}

func newEnv() *env {
	e := &env{
		repo:       newMemRepo(),
		sessions:   newMemSessions(),
		publisher:  &recordingPublisher{},
		uploader:   &fakeUploader{},
		dispatcher: &fakeDispatcher{},
		clock:      newClock(),
	}

	e.notifications = NewNotificationService(e.repo, e.dispatcher, NotificationConfig{
		AdminNumber: "9000000000",
		CountryCode: "91",
		MaxAttempts: 3,
		BaseBackoff: time.Minute,
	})
	e.notifications.now = e.clock.now

	e.catalog = NewCatalogService(e.repo)
	e.catalog.now = e.clock.now
	e.carts = NewCartService(e.repo, e.sessions)
	e.carts.now = e.clock.now
	e.checkout = NewCheckoutService(e.repo, e.sessions, e.uploader, e.publisher, e.notifications, CheckoutConfig{
		ShippingFee: decimal.Zero,
		Payment: PaymentConfig{
			PayeeHandle: "store@upi",
			PayeeName:   "Divine Store",
			QRBaseURL:   "https://qr.test/?data=",
		},
	})
	e.checkout.now = e.clock.now
	e.orders = NewOrderService(e.repo, e.publisher, e.notifications)
	e.orders.now = e.clock.now
	e.verifications = NewVerificationService(e.repo, e.uploader, e.publisher, e.notifications)
	e.verifications.now = e.clock.now
	e.tickets = NewTicketService(e.repo, e.publisher)
	e.tickets.now = e.clock.now
	e.accounts = NewAccountService(e.repo)
	e.accounts.now = e.clock.now

	customers, err := NewCustomerAuthService(e.repo, e.sessions, e.notifications, CustomerAuthConfig{
		Secret:      "customer-key",
		TokenTTL:    30 * time.Minute,
		CodeTTL:     10 * time.Minute,
		MaxAttempts: 3,
	})
	if err != nil {
		panic(err)
	}
	customers.now = e.clock.now
	customers.newCode = func() (string, error) { return "482913", nil }
	e.customers = customers
	return e
}

func (e *env) addProduct(p models.Product) models.Product {
	p.ID = uuid.NewString()
	p.Visible = true
	if p.Category == "" {
		p.Category = models.CategoryRudraksha
	}
	if p.ProductType == "" {
		p.ProductType = models.ProductTypePhysical
	}
	if err := p.Validate(); err != nil {
		panic(err)
	}
	e.repo.data.products[p.ID] = p
	return p
}

func (e *env) physical(name string, mrp, discount int64) models.Product {
	return e.addProduct(models.Product{
		Name:               name,
		MRP:                decimal.NewFromInt(mrp),
		DiscountPercentage: decimal.NewFromInt(discount),
	})
}

func (e *env) digital(name string, mrp int64, link string) models.Product {
	return e.addProduct(models.Product{
		Name:         name,
		MRP:          decimal.NewFromInt(mrp),
		Category:     models.CategoryEbooks,
		ProductType:  models.ProductTypeDigital,
		DeliveryLink: link,
	})
}

// cartWith builds a cart holding qty of each product.
func (e *env) cartWith(qty int, products ...models.Product) string {
	ctx := context.Background()
	cart, err := e.carts.CreateCart(ctx)
	if err != nil {
		panic(err)
	}
	for _, p := range products {
		if _, err := e.carts.AddItem(ctx, cart.ID, CartItemRequest{ProductID: p.ID, Quantity: qty}); err != nil {
			panic(err)
		}
	}
	return cart.ID
}

func physicalDetails() models.CustomerDetails {
	return models.CustomerDetails{
		Name: "Asha", Phone: "98765 43210",
		Address: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
	}
}

func digitalDetails() models.CustomerDetails {
	return models.CustomerDetails{
		Name: "Asha", Phone: "9876543210", Email: "asha@example.com", WhatsApp: "9876543210",
	}
}

func mixedDetails() models.CustomerDetails {
	d := physicalDetails()
	d.Email = "asha@example.com"
	d.WhatsApp = "9876543210"
	return d
}

func screenshot() *Screenshot {
	return &Screenshot{ContentType: "image/png", Data: []byte("png")}
}

// placePrepaid runs a full prepaid checkout and returns the order.
func (e *env) placePrepaid(details models.CustomerDetails, products ...models.Product) *models.Order {
	ctx := context.Background()
	session, err := e.checkout.StartCheckout(ctx, e.cartWith(1, products...))
	if err != nil {
		panic(err)
	}
	session, err = e.checkout.SubmitDetails(ctx, session.ID, details)
	if err != nil {
		panic(err)
	}
	if session.Phase == models.CheckoutPhaseMethod {
		if _, err := e.checkout.ChooseMethod(ctx, session.ID, models.PaymentMethodPrepaid); err != nil {
			panic(err)
		}
	}
	res, err := e.checkout.SubmitPayment(ctx, session.ID, "1234-5678-9012", screenshot())
	if err != nil {
		panic(err)
	}
	return res.Order
}

// placeCOD runs a full cash-on-delivery checkout and returns the order.
func (e *env) placeCOD(details models.CustomerDetails, products ...models.Product) *models.Order {
	ctx := context.Background()
	session, err := e.checkout.StartCheckout(ctx, e.cartWith(1, products...))
	if err != nil {
		panic(err)
	}
	if _, err = e.checkout.SubmitDetails(ctx, session.ID, details); err != nil {
		panic(err)
	}
	res, err := e.checkout.ChooseMethod(ctx, session.ID, models.PaymentMethodCOD)
	if err != nil {
		panic(err)
	}
	return res.Order
}

// pendingRequestFor finds the pending verification request of an order.
func (e *env) pendingRequestFor(orderID string) *models.VerificationRequest {
	reqs, _ := e.repo.ListVerifications(context.Background(), models.VerificationStatusPending)
	for _, r := range reqs {
		if r.OrderID != nil && *r.OrderID == orderID {
			return &r
		}
	}
	return nil
}
