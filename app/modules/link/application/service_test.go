package linkservice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	linkevents "github.com/Black-And-White-Club/clan-sync-bot/app/events/link"
	linkdb "github.com/Black-And-White-Club/clan-sync-bot/app/modules/link/infrastructure/repositories"
	rolesyncdomain "github.com/Black-And-White-Club/clan-sync-bot/app/modules/rolesync/domain"
	"github.com/Black-And-White-Club/clan-sync-bot/app/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestService(repo *FakeLinkRepository) (*LinkService, *FakePublisher, *FakeMetrics) {
	pub := &FakePublisher{}
	metrics := &FakeMetrics{}
	s := NewLinkService(repo, nil, pub, observability.NewNopLogger(), metrics, noop.NewTracerProvider().Tracer("test"))
	s.runInTx = func(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
		return fn(ctx, nil)
	}
	return s, pub, metrics
}

func decodeChange(t *testing.T, pub *FakePublisher, i int) linkevents.AccountChangedPayloadV1 {
	t.Helper()
	require.Greater(t, len(pub.Messages), i)
	var p linkevents.AccountChangedPayloadV1
	require.NoError(t, json.Unmarshal(pub.Messages[i].Payload, &p))
	return p
}

func TestLinkAccount(t *testing.T) {
	tests := []struct {
		name        string
		seed        []linkdb.LinkedAccount
		userID      rolesyncdomain.UserID
		tag         rolesyncdomain.PlayerTag
		wantFailure error
		wantOrder   int
	}{
		{name: "first account", userID: "u1", tag: "p1", wantOrder: 0},
		{
			name:      "appended after existing",
			seed:      []linkdb.LinkedAccount{{Tag: "#A", UserID: "u1", Order: 0}, {Tag: "#B", UserID: "u1", Order: 3}},
			userID:    "u1",
			tag:       "#p1",
			wantOrder: 4,
		},
		{
			name:      "relink keeps order",
			seed:      []linkdb.LinkedAccount{{Tag: "#P1", UserID: "u1", Order: 2}},
			userID:    "u1",
			tag:       "#P1",
			wantOrder: 2,
		},
		{
			name:        "owned by someone else",
			seed:        []linkdb.LinkedAccount{{Tag: "#P1", UserID: "u2"}},
			userID:      "u1",
			tag:         "#P1",
			wantFailure: ErrAlreadyLinked,
		},
		{name: "missing user", tag: "#P1", wantFailure: ErrInvalidUserID},
		{name: "blank tag", userID: "u1", tag: " ", wantFailure: ErrInvalidTag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeLinkRepository(tt.seed...)
			s, pub, _ := newTestService(repo)

			res, err := s.LinkAccount(context.Background(), tt.userID, tt.tag, "Chief")
			require.NoError(t, err)

			if tt.wantFailure != nil {
				require.NotNil(t, res.Failure)
				assert.ErrorIs(t, *res.Failure, tt.wantFailure)
				assert.Empty(t, pub.Messages)
				return
			}
			require.NotNil(t, res.Success)
			assert.Equal(t, rolesyncdomain.PlayerTag("#P1"), res.Success.Tag)
			assert.Equal(t, "Chief", res.Success.Name)
			assert.Equal(t, tt.wantOrder, res.Success.Order)

			require.Len(t, pub.Messages, 1)
			assert.Equal(t, linkevents.AccountChangedV1, pub.Topics[0])
			assert.Equal(t, linkevents.AccountChangedPayloadV1{UserID: "u1", Tag: "#P1", Action: linkevents.ActionLinked}, decodeChange(t, pub, 0))
		})
	}
}

func TestLinkAccount_PublishFailureKeepsLink(t *testing.T) {
	repo := NewFakeLinkRepository()
	s, pub, _ := newTestService(repo)
	pub.Err = errPublish

	res, err := s.LinkAccount(context.Background(), "u1", "#P1", "")
	require.NoError(t, err)
	require.NotNil(t, res.Success)
	assert.Contains(t, repo.accounts, "#P1")
}

func TestUnlinkAccount(t *testing.T) {
	repo := NewFakeLinkRepository(linkdb.LinkedAccount{Tag: "#P1", UserID: "u1"})
	s, pub, _ := newTestService(repo)
	ctx := context.Background()

	res, err := s.UnlinkAccount(ctx, "u2", "#P1")
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, ErrAccountNotLinked)

	res, err = s.UnlinkAccount(ctx, "u1", "p1")
	require.NoError(t, err)
	require.NotNil(t, res.Success)
	assert.Equal(t, linkevents.ActionUnlinked, decodeChange(t, pub, 0).Action)
	assert.Empty(t, repo.accounts)
}

func TestVerifyAccount(t *testing.T) {
	repo := NewFakeLinkRepository(linkdb.LinkedAccount{Tag: "#P1", UserID: "u1"})
	s, pub, _ := newTestService(repo)
	ctx := context.Background()

	res, err := s.VerifyAccount(ctx, "#P1", true)
	require.NoError(t, err)
	require.NotNil(t, res.Success)
	assert.True(t, res.Success.Verified)
	assert.Equal(t, linkevents.AccountChangedPayloadV1{UserID: "u1", Tag: "#P1", Action: linkevents.ActionVerified}, decodeChange(t, pub, 0))

	res, err = s.VerifyAccount(ctx, "#NOPE", true)
	require.NoError(t, err)
	require.NotNil(t, res.Failure)
	assert.ErrorIs(t, *res.Failure, ErrAccountNotLinked)
}

func TestReorderAccounts(t *testing.T) {
	seed := []linkdb.LinkedAccount{
		{Tag: "#A", UserID: "u1", Order: 0},
		{Tag: "#B", UserID: "u1", Order: 1},
		{Tag: "#C", UserID: "u1", Order: 2},
	}

	tests := []struct {
		name        string
		tags        []rolesyncdomain.PlayerTag
		wantFailure error
		wantTags    []rolesyncdomain.PlayerTag
	}{
		{name: "permutation", tags: []rolesyncdomain.PlayerTag{"c", "#A", "#b"}, wantTags: []rolesyncdomain.PlayerTag{"#C", "#A", "#B"}},
		{name: "missing tag", tags: []rolesyncdomain.PlayerTag{"#A", "#B"}, wantFailure: ErrInvalidOrder},
		{name: "foreign tag", tags: []rolesyncdomain.PlayerTag{"#A", "#B", "#D"}, wantFailure: ErrInvalidOrder},
		{name: "duplicate", tags: []rolesyncdomain.PlayerTag{"#A", "#A", "#B"}, wantFailure: ErrInvalidOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewFakeLinkRepository(seed...)
			s, pub, _ := newTestService(repo)

			res, err := s.ReorderAccounts(context.Background(), "u1", tt.tags)
			require.NoError(t, err)

			if tt.wantFailure != nil {
				require.NotNil(t, res.Failure)
				assert.ErrorIs(t, *res.Failure, tt.wantFailure)
				assert.NotContains(t, repo.Trace(), "SetOrder")
				assert.Empty(t, pub.Messages)
				return
			}
			require.NotNil(t, res.Success)
			var got []rolesyncdomain.PlayerTag
			for _, a := range *res.Success {
				got = append(got, a.Tag)
			}
			assert.Equal(t, tt.wantTags, got)
			assert.Equal(t, linkevents.ActionReordered, decodeChange(t, pub, 0).Action)
		})
	}
}

func TestLookups(t *testing.T) {
	repo := NewFakeLinkRepository(
		linkdb.LinkedAccount{Tag: "#A1", UserID: "u1", Order: 0},
		linkdb.LinkedAccount{Tag: "#A2", UserID: "u1", Order: 1, Verified: true},
		linkdb.LinkedAccount{Tag: "#B1", UserID: "u2"},
	)
	s, _, _ := newTestService(repo)
	ctx := context.Background()

	byTag, err := s.FindByGameTags(ctx, []rolesyncdomain.PlayerTag{"a1", ""})
	require.NoError(t, err)
	assert.Equal(t, []rolesyncdomain.LinkedAccount{
		{UserID: "u1", Tag: "#A1"},
		{UserID: "u1", Tag: "#A2", Verified: true, Order: 1},
	}, byTag)

	byUser, err := s.FindByUserIDs(ctx, []rolesyncdomain.UserID{"u2", ""})
	require.NoError(t, err)
	assert.Equal(t, []rolesyncdomain.LinkedAccount{{UserID: "u2", Tag: "#B1"}}, byUser)
}

func TestLookups_RepositoryError(t *testing.T) {
	repo := NewFakeLinkRepository()
	repo.Err = errors.New("connection reset")
	s, _, metrics := newTestService(repo)

	_, err := s.FindByUserIDs(context.Background(), []rolesyncdomain.UserID{"u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FindByUserIDs")
	assert.Equal(t, 1, metrics.failures)
}
