package billing

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metinatakli/hospital-payments/internal/domain"
	"github.com/metinatakli/hospital-payments/internal/payment"
)

// fakeStore is an in-memory ledger whose conditional writes behave like the
// Postgres ones: status guards and uniqueness are checked atomically.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int
	receiptSeq   int64
	payments     map[int]*domain.Payment
	receipts     map[int]*domain.Receipt
	appointments map[int]*domain.Appointment
	users        map[int]*domain.User
	doctors      map[int]*domain.Doctor
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		payments:     make(map[int]*domain.Payment),
		receipts:     make(map[int]*domain.Receipt),
		appointments: make(map[int]*domain.Appointment),
		users:        make(map[int]*domain.User),
		doctors:      make(map[int]*domain.Doctor),
	}
}

func (f *fakeStore) seed() {
	f.users[1] = &domain.User{ID: 1, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com"}
	f.users[2] = &domain.User{ID: 2, FirstName: "John", LastName: "Roe", Email: "john@example.com"}
	f.doctors[10] = &domain.Doctor{ID: 10, FirstName: "Gregory", LastName: "House", Specialization: "Diagnostics"}
	f.appointments[100] = &domain.Appointment{
		ID: 100, PatientID: 1, DoctorID: 10, Status: domain.AppointmentStatusScheduled,
		ScheduledAt: time.Date(2026, 10, 20, 9, 30, 0, 0, time.UTC), Reason: "Annual check-up",
	}
	f.appointments[101] = &domain.Appointment{
		ID: 101, PatientID: 1, DoctorID: 10, Status: domain.AppointmentStatusCancelled,
		ScheduledAt: time.Date(2026, 10, 21, 9, 30, 0, 0, time.UTC),
	}
	f.appointments[102] = &domain.Appointment{
		ID: 102, PatientID: 2, DoctorID: 10, Status: domain.AppointmentStatusScheduled,
		ScheduledAt: time.Date(2026, 10, 22, 9, 30, 0, 0, time.UTC),
	}
}

func (f *fakeStore) payment(id int) domain.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.payments[id]
}

func (f *fakeStore) appointment(id int) domain.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.appointments[id]
}

func (f *fakeStore) receiptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.receipts)
}

func (f *fakeStore) completedFor(appointmentID int) bool {
	for _, p := range f.payments {
		if p.AppointmentID == appointmentID && p.Status == domain.PaymentStatusCompleted {
			return true
		}
	}
	return false
}

type fakePaymentRepo struct{ *fakeStore }

func (r fakePaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.completedFor(p.AppointmentID) {
		return domain.ErrAlreadyPaid
	}

	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	stored := *p
	r.payments[p.ID] = &stored

	return nil
}

func (r fakePaymentRepo) GetById(_ context.Context, id int) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	copied := *p
	return &copied, nil
}

func (r fakePaymentRepo) GetByProviderPaymentId(_ context.Context, reference string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.payments {
		if p.ProviderPaymentID != nil && *p.ProviderPaymentID == reference {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (r fakePaymentRepo) GetByUserId(_ context.Context, userId int, pg domain.Pagination) ([]domain.Payment, *domain.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.Payment
	for _, p := range r.payments {
		if p.UserID == userId {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	end := min(pg.Offset()+pg.Limit(), len(all))
	if pg.Offset() >= len(all) {
		return []domain.Payment{}, domain.NewMetadata(len(all), pg.Page, pg.PageSize), nil
	}
	return all[pg.Offset():end], domain.NewMetadata(len(all), pg.Page, pg.PageSize), nil
}

func (r fakePaymentRepo) GetByAppointmentId(_ context.Context, appointmentId int) ([]domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.Payment
	for _, p := range r.payments {
		if p.AppointmentID == appointmentId {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (r fakePaymentRepo) HasCompletedForAppointment(_ context.Context, appointmentId int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completedFor(appointmentId), nil
}

func (r fakePaymentRepo) SetProviderPaymentId(_ context.Context, id int, reference string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok || p.ProviderPaymentID != nil || p.Status != domain.PaymentStatusPending {
		return domain.ErrEditConflict
	}
	p.ProviderPaymentID = &reference
	return nil
}

func (r fakePaymentRepo) Complete(_ context.Context, id int, transactionId string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return nil, domain.ErrEditConflict
	}
	if r.completedFor(p.AppointmentID) {
		return nil, domain.ErrAlreadyPaid
	}

	now := time.Now()
	p.Status = domain.PaymentStatusCompleted
	p.TransactionID = &transactionId
	p.PaymentDate = &now
	copied := *p
	return &copied, nil
}

func (r fakePaymentRepo) Fail(_ context.Context, id int, errMsg string) (*domain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return nil, domain.ErrEditConflict
	}

	p.Status = domain.PaymentStatusFailed
	p.ErrorMsg = &errMsg
	copied := *p
	return &copied, nil
}

func (r fakePaymentRepo) RecordError(_ context.Context, id int, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok || p.Status != domain.PaymentStatusPending {
		return domain.ErrEditConflict
	}

	p.ErrorMsg = &errMsg
	return nil
}

type fakeReceiptRepo struct{ *fakeStore }

func (r fakeReceiptRepo) NextReceiptSequence(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receiptSeq++
	return r.receiptSeq, nil
}

func (r fakeReceiptRepo) CreateOrGet(_ context.Context, receipt *domain.Receipt) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.receipts[receipt.PaymentID]; ok {
		*receipt = *existing
		return false, nil
	}

	r.nextID++
	receipt.ID = r.nextID
	stored := *receipt
	r.receipts[receipt.PaymentID] = &stored
	return true, nil
}

func (r fakeReceiptRepo) GetByNumber(_ context.Context, number string) (*domain.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rc := range r.receipts {
		if rc.ReceiptNumber == number {
			copied := *rc
			return &copied, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (r fakeReceiptRepo) GetByPaymentId(_ context.Context, paymentId int) (*domain.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rc, ok := r.receipts[paymentId]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	copied := *rc
	return &copied, nil
}

func (r fakeReceiptRepo) GetByUserId(_ context.Context, userId int, pg domain.Pagination) ([]domain.Receipt, *domain.Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var all []domain.Receipt
	for _, rc := range r.receipts {
		if rc.UserID == userId {
			all = append(all, *rc)
		}
	}
	return all, domain.NewMetadata(len(all), pg.Page, pg.PageSize), nil
}

type fakeAppointmentRepo struct{ *fakeStore }

func (r fakeAppointmentRepo) GetById(_ context.Context, id int) (*domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	copied := *a
	return &copied, nil
}

func (r fakeAppointmentRepo) CompleteIfScheduled(_ context.Context, id int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.appointments[id]
	if !ok || a.Status != domain.AppointmentStatusScheduled {
		return false, nil
	}
	a.Status = domain.AppointmentStatusCompleted
	return true, nil
}

type fakeUserRepo struct{ *fakeStore }

func (r fakeUserRepo) GetById(_ context.Context, id int) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return u, nil
}

func (r fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

type fakeDoctorRepo struct{ *fakeStore }

func (r fakeDoctorRepo) GetById(_ context.Context, id int) (*domain.Doctor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.doctors[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return d, nil
}

type memLocker struct {
	mu    sync.Mutex
	held  map[string]string
	count int
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string)}
}

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.count++
	token := "owner-" + strconv.Itoa(l.count)
	l.held[key] = token
	return token, true, nil
}

func (l *memLocker) Unlock(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[key] == token {
		delete(l.held, key)
	}
	return nil
}

// countingGateway wraps the simulated gateway and counts remote calls.
type countingGateway struct {
	*payment.SimulatedGateway
	creates  atomic.Int32
	captures atomic.Int32
	delay    time.Duration
}

func (g *countingGateway) CreateCharge(ctx context.Context, req domain.ChargeRequest) (*domain.Charge, error) {
	g.creates.Add(1)
	return g.SimulatedGateway.CreateCharge(ctx, req)
}

func (g *countingGateway) CaptureCharge(ctx context.Context, req domain.CaptureRequest) (*domain.Capture, error) {
	g.captures.Add(1)
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	return g.SimulatedGateway.CaptureCharge(ctx, req)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	var types []domain.EventType
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type billingFixture struct {
	store     *fakeStore
	gateway   *countingGateway
	locker    *memLocker
	publisher *recordingPublisher
	payments  *PaymentService
	receipts  *ReceiptIssuer
}

func newBillingFixture() *billingFixture {
	store := newFakeStore()
	store.seed()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gateway := &countingGateway{SimulatedGateway: payment.NewSimulatedGateway("http://localhost:4000")}
	locker := newMemLocker()
	publisher := &recordingPublisher{}

	cfg := PaymentConfig{
		Currency:       "USD",
		PaymentMethod:  "card",
		ReturnURL:      "http://localhost:4000/checkout/success",
		CancelURL:      "http://localhost:4000/checkout/cancel",
		GatewayTimeout: time.Second,
		LockWait:       2 * time.Second,
	}

	synchronizer := NewAppointmentSynchronizer(fakeAppointmentRepo{store}, logger)

	return &billingFixture{
		store:     store,
		gateway:   gateway,
		locker:    locker,
		publisher: publisher,
		payments: NewPaymentService(cfg, logger,
			fakePaymentRepo{store}, fakeAppointmentRepo{store}, fakeUserRepo{store}, fakeDoctorRepo{store},
			gateway, locker, synchronizer, publisher),
		receipts: NewReceiptIssuer(logger,
			fakeReceiptRepo{store}, fakePaymentRepo{store}, fakeAppointmentRepo{store}, fakeUserRepo{store},
			fakeDoctorRepo{store}, publisher),
	}
}
