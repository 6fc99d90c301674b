package visitor

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/evcraddock/frontdesk/internal/auth"
	"github.com/evcraddock/frontdesk/internal/notify"
)

func TestServiceRegisterNotifiesHost(t *testing.T) {
	svc, env, sent, _ := testService(t)
	host := env.addUser(t, "host")

	v, err := svc.Register(env.ctx, RegisterInput{
		Details: Details{FullName: "Ada", Phone: "555", Purpose: "Interview"},
		HostID:  host,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if v.Status != Pending {
		t.Errorf("status = %q, want pending", v.Status)
	}
	if len(*sent) != 1 || (*sent)[0].To[0] != "host@example.com" {
		t.Errorf("sent = %+v, want one message to host", *sent)
	}
}

func TestServiceFailureSendsNothing(t *testing.T) {
	svc, env, sent, rec := testService(t)
	host := env.addUser(t, "host")
	other := env.addUser(t, "other")

	v, err := svc.Register(env.ctx, RegisterInput{
		Details: Details{FullName: "Ada", Email: "ada@example.com", Purpose: "Interview"},
		HostID:  host,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	*sent = nil

	_, err = svc.Approve(env.ctx, auth.Caller{ID: other, Role: auth.RoleEmployee}, v.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v, want ErrForbidden", err)
	}
	if len(*sent) != 0 {
		t.Errorf("sent = %+v, want nothing", *sent)
	}
	if rec.counts["approve/forbidden"] != 1 {
		t.Errorf("recorded = %v, want approve/forbidden", rec.counts)
	}
}

func TestServiceLifecycle(t *testing.T) {
	svc, env, sent, rec := testService(t)
	host := env.addUser(t, "host")
	caller := auth.Caller{ID: host, Role: auth.RoleEmployee}
	clock := time.Date(2025, 4, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }

	v, err := svc.Register(env.ctx, RegisterInput{
		Details: Details{FullName: "Ada", Email: "ada@example.com", Purpose: "Interview"},
		HostID:  host,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Approve(env.ctx, caller, v.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	v, outcome, err := svc.CheckIn(env.ctx, v.ID)
	if err != nil || outcome != Performed {
		t.Fatalf("check in: %v %s", err, outcome)
	}
	if !v.CheckInTime.Equal(clock) {
		t.Errorf("check_in_time = %v, want %v", v.CheckInTime, clock)
	}

	clock = clock.Add(time.Hour)
	if _, outcome, err := svc.CheckIn(env.ctx, v.ID); err != nil || outcome != AlreadyDone {
		t.Errorf("repeat check in: %v %s", err, outcome)
	}
	if _, outcome, err := svc.CheckOut(env.ctx, v.ID); err != nil || outcome != Performed {
		t.Errorf("check out: %v %s", err, outcome)
	}

	subjects := make([]string, 0, len(*sent))
	for _, m := range *sent {
		subjects = append(subjects, m.Subject)
	}
	// Host notice, approval, thank-you.
	if len(subjects) != 3 {
		t.Errorf("sent subjects = %v, want 3", subjects)
	}

	for key, want := range map[string]int{
		"approve/performed":     1,
		"check_in/performed":    1,
		"check_in/already_done": 1,
		"check_out/performed":   1,
	} {
		if rec.counts[key] != want {
			t.Errorf("recorded %s = %d, want %d", key, rec.counts[key], want)
		}
	}
}

func TestServiceCheckedOutRefusesDecision(t *testing.T) {
	svc, env, _, _ := testService(t)
	host := env.addUser(t, "host")
	caller := auth.Caller{ID: host, Role: auth.RoleAdmin}
	v := env.checkedIn(t, host, time.Now())
	if _, _, err := svc.CheckOut(env.ctx, v.ID); err != nil {
		t.Fatalf("check out: %v", err)
	}

	for name, fn := range map[string]func(context.Context, auth.Caller, int64) (*Visitor, error){
		"approve": svc.Approve,
		"reject":  svc.Reject,
	} {
		_, err := fn(env.ctx, caller, v.ID)
		var te *TransitionError
		if !errors.As(err, &te) || te.From != CheckedOut {
			t.Errorf("%s after check-out: err = %v, want TransitionError from checked_out", name, err)
		}
	}
	if got := env.get(t, v.ID); got.Status != CheckedOut {
		t.Errorf("status = %q, want checked_out", got.Status)
	}
}

// concurrently runs fn from n goroutines and tallies the outcomes.
func concurrently(t *testing.T, n int, fn func() (*Visitor, Outcome, error)) map[Outcome]int {
	t.Helper()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[Outcome]int{}
		errs     []error
	)
	start := make(chan struct{})
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, outcome, err := fn()
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			outcomes[outcome]++
		}()
	}
	close(start)
	wg.Wait()

	for _, err := range errs {
		t.Errorf("concurrent call: %v", err)
	}
	return outcomes
}

func TestServiceConcurrentCheckInAndOut(t *testing.T) {
	const workers = 16
	svc, env, sent, rec := testService(t)
	env.db.SetMaxOpenConns(8)
	host := env.addUser(t, "host")

	v, err := svc.Register(env.ctx, RegisterInput{
		Details: Details{FullName: "Ada", Email: "ada@example.com", Purpose: "Interview"},
		HostID:  host,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Approve(env.ctx, auth.Caller{ID: host, Role: auth.RoleEmployee}, v.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	*sent = nil

	in := concurrently(t, workers, func() (*Visitor, Outcome, error) { return svc.CheckIn(env.ctx, v.ID) })
	if in[Performed] != 1 || in[AlreadyDone] != workers-1 {
		t.Errorf("check in outcomes = %v, want 1 performed and %d already done", in, workers-1)
	}
	checkedIn := env.get(t, v.ID)
	if checkedIn.Status != CheckedIn || checkedIn.CheckInTime == nil {
		t.Fatalf("after check in: %+v", checkedIn)
	}

	out := concurrently(t, workers, func() (*Visitor, Outcome, error) { return svc.CheckOut(env.ctx, v.ID) })
	if out[Performed] != 1 || out[AlreadyDone] != workers-1 {
		t.Errorf("check out outcomes = %v, want 1 performed and %d already done", out, workers-1)
	}
	final := env.get(t, v.ID)
	if final.Status != CheckedOut || !final.CheckInTime.Equal(*checkedIn.CheckInTime) {
		t.Errorf("after check out: status %q, check_in_time %v (was %v)", final.Status, final.CheckInTime, checkedIn.CheckInTime)
	}

	// Only the single performed check-out sends the thank-you.
	if len(*sent) != 1 {
		t.Errorf("sent %d messages, want 1", len(*sent))
	}
	if rec.counts["check_in/performed"] != 1 || rec.counts["check_out/performed"] != 1 {
		t.Errorf("recorded = %v", rec.counts)
	}
}

func TestServiceGetRespectsScope(t *testing.T) {
	svc, env, _, _ := testService(t)
	alice := env.addUser(t, "alice")
	bob := env.addUser(t, "bob")
	v := env.register(t, alice)

	if _, err := svc.Get(env.ctx, ScopeFor(auth.RoleEmployee, alice), v.ID); err != nil {
		t.Errorf("host read: %v", err)
	}
	if _, err := svc.Get(env.ctx, ScopeFor(auth.RoleSecurity, bob), v.ID); err != nil {
		t.Errorf("security read: %v", err)
	}
	if _, err := svc.Get(env.ctx, ScopeFor(auth.RoleEmployee, bob), v.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("other employee read: err = %v, want ErrNotFound", err)
	}
}

type fakeNotifier struct {
	mu   *sync.Mutex
	sent *[]notify.Message
}

func (n fakeNotifier) Notify(_ context.Context, msg notify.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	*n.sent = append(*n.sent, msg)
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *fakeRecorder) RecordTransition(action, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[action+"/"+outcome]++
}

type dbDirectory struct {
	dbHosts
}

func (d dbDirectory) EmailOf(ctx context.Context, id int64) (string, error) {
	var email string
	err := d.db.QueryRowContext(ctx, "SELECT email FROM users WHERE id = ?", id).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return email, err
}

func testService(t *testing.T) (*Service, *testEnv, *[]notify.Message, *fakeRecorder) {
	t.Helper()
	env := newTestEnv(t)
	sent := &[]notify.Message{}
	rec := &fakeRecorder{counts: map[string]int{}}
	svc := NewService(env.db, &seqBadges{n: map[string]int{}}, dbDirectory{dbHosts{db: env.db}}, fakeNotifier{mu: &sync.Mutex{}, sent: sent}, rec)
	return svc, env, sent, rec
}
