package linkservice

import (
	"context"
	"errors"
	"sort"
	"time"

	linkdb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/infrastructure/repositories"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/uptrace/bun"
)

// FakeLinkRepository is an in-memory linkdb.Repository keyed by tag.
type FakeLinkRepository struct {
	trace    []string
	accounts map[string]linkdb.LinkedAccount

	// Err, when set, fails every call.
	Err error
}

var _ linkdb.Repository = (*FakeLinkRepository)(nil)

func NewFakeLinkRepository(accounts ...linkdb.LinkedAccount) *FakeLinkRepository {
	f := &FakeLinkRepository{trace: []string{}, accounts: map[string]linkdb.LinkedAccount{}}
	for _, a := range accounts {
		f.accounts[a.Tag] = a
	}
	return f
}

func (f *FakeLinkRepository) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeLinkRepository) record(step string) error {
	f.trace = append(f.trace, step)
	return f.Err
}

func (f *FakeLinkRepository) sorted(keep func(linkdb.LinkedAccount) bool) []linkdb.LinkedAccount {
	out := []linkdb.LinkedAccount{}
	for _, a := range f.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Order < out[j].Order
	})
	return out
}

func (f *FakeLinkRepository) Get(_ context.Context, _ bun.IDB, tag string) (*linkdb.LinkedAccount, error) {
	if err := f.record("Get"); err != nil {
		return nil, err
	}
	a, ok := f.accounts[tag]
	if !ok {
		return nil, linkdb.ErrNotFound
	}
	return &a, nil
}

func (f *FakeLinkRepository) Save(_ context.Context, _ bun.IDB, account *linkdb.LinkedAccount) error {
	if err := f.record("Save"); err != nil {
		return err
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}
	f.accounts[account.Tag] = *account
	return nil
}

func (f *FakeLinkRepository) Delete(_ context.Context, _ bun.IDB, userID, tag string) error {
	if err := f.record("Delete"); err != nil {
		return err
	}
	a, ok := f.accounts[tag]
	if !ok || a.UserID != userID {
		return linkdb.ErrNoRowsAffected
	}
	delete(f.accounts, tag)
	return nil
}

func (f *FakeLinkRepository) SetVerified(_ context.Context, _ bun.IDB, tag string, verified bool) error {
	if err := f.record("SetVerified"); err != nil {
		return err
	}
	a, ok := f.accounts[tag]
	if !ok {
		return linkdb.ErrNoRowsAffected
	}
	a.Verified = verified
	f.accounts[tag] = a
	return nil
}

func (f *FakeLinkRepository) SetOrder(_ context.Context, _ bun.IDB, userID, tag string, order int) error {
	if err := f.record("SetOrder"); err != nil {
		return err
	}
	a, ok := f.accounts[tag]
	if !ok || a.UserID != userID {
		return linkdb.ErrNoRowsAffected
	}
	a.Order = order
	f.accounts[tag] = a
	return nil
}

func (f *FakeLinkRepository) NextOrder(_ context.Context, _ bun.IDB, userID string) (int, error) {
	if err := f.record("NextOrder"); err != nil {
		return 0, err
	}
	next := 0
	for _, a := range f.accounts {
		if a.UserID == userID && a.Order >= next {
			next = a.Order + 1
		}
	}
	return next, nil
}

func (f *FakeLinkRepository) ListByUser(_ context.Context, _ bun.IDB, userID string) ([]linkdb.LinkedAccount, error) {
	if err := f.record("ListByUser"); err != nil {
		return nil, err
	}
	return f.sorted(func(a linkdb.LinkedAccount) bool { return a.UserID == userID }), nil
}

func (f *FakeLinkRepository) FindByUserIDs(_ context.Context, _ bun.IDB, userIDs []string) ([]linkdb.LinkedAccount, error) {
	if err := f.record("FindByUserIDs"); err != nil {
		return nil, err
	}
	want := map[string]bool{}
	for _, id := range userIDs {
		want[id] = true
	}
	return f.sorted(func(a linkdb.LinkedAccount) bool { return want[a.UserID] }), nil
}

func (f *FakeLinkRepository) FindByGameTags(_ context.Context, _ bun.IDB, tags []string) ([]linkdb.LinkedAccount, error) {
	if err := f.record("FindByGameTags"); err != nil {
		return nil, err
	}
	owners := map[string]bool{}
	for _, t := range tags {
		if a, ok := f.accounts[t]; ok {
			owners[a.UserID] = true
		}
	}
	return f.sorted(func(a linkdb.LinkedAccount) bool { return owners[a.UserID] }), nil
}

// FakePublisher records published messages.
type FakePublisher struct {
	Messages []*message.Message
	Topics   []string
	Err      error
}

func (p *FakePublisher) Publish(topic string, messages ...*message.Message) error {
	if p.Err != nil {
		return p.Err
	}
	for _, m := range messages {
		p.Topics = append(p.Topics, topic)
		p.Messages = append(p.Messages, m)
	}
	return nil
}

func (p *FakePublisher) Close() error { return nil }

var errPublish = errors.New("nats unavailable")

// FakeMetrics counts recorded operations.
type FakeMetrics struct {
	attempts, successes, failures int
}

func (m *FakeMetrics) RecordOperationAttempt(context.Context, string, string) { m.attempts++ }
func (m *FakeMetrics) RecordOperationSuccess(context.Context, string, string) { m.successes++ }
func (m *FakeMetrics) RecordOperationFailure(context.Context, string, string) { m.failures++ }
func (m *FakeMetrics) RecordOperationDuration(context.Context, string, string, time.Duration) {}
