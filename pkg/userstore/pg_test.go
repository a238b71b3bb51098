package userstore

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelcrypto/referral-ledger/pkg/pgutil"
	mghelper "github.com/angelcrypto/referral-ledger/pkg/pgutil/migrations"
	"github.com/angelcrypto/referral-ledger/pkg/user"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()
	pgutil.RequireDockerAccess(t)

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := mghelper.CreateSchema(ctx, db, &UserDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	return ctx, NewStore(db)
}

func assertDecimalEqual(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()

	wantDec, err := decimal.NewFromString(want)
	if err != nil {
		t.Fatalf("failed to parse want decimal %q: %v", want, err)
	}
	if !got.Equal(wantDec) {
		t.Fatalf("decimal mismatch: got %s want %s", got.String(), wantDec.String())
	}
}

func TestUserPGStore_CreateUserAndConstraints(t *testing.T) {
	ctx, s := setupStore(t)

	u := user.New("0x1111111111111111111111111111111111111111", nil)
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if u.ID == 0 {
		t.Fatalf("expected assigned user ID")
	}

	exists, err := s.UserExists(ctx, u.WalletAddress)
	if err != nil {
		t.Fatalf("UserExists() failed: %v", err)
	}
	if !exists {
		t.Fatalf("expected user to exist")
	}

	dup := user.New(u.WalletAddress, nil)
	err = s.CreateUser(ctx, dup)
	if !errors.Is(err, ErrWalletExists) {
		t.Fatalf("expected ErrWalletExists for duplicate wallet, got: %v", err)
	}
}

func TestUserPGStore_GetUserLookups(t *testing.T) {
	ctx, s := setupStore(t)

	u := user.New("0x3333333333333333333333333333333333333333", nil)
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	byID, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if byID.WalletAddress != u.WalletAddress {
		t.Fatalf("wallet mismatch: got %s want %s", byID.WalletAddress, u.WalletAddress)
	}

	byWallet, err := s.GetUserByWallet(ctx, u.WalletAddress)
	if err != nil {
		t.Fatalf("GetUserByWallet() failed: %v", err)
	}
	if byWallet.ID != u.ID {
		t.Fatalf("id mismatch: got %d want %d", byWallet.ID, u.ID)
	}
	assertDecimalEqual(t, byWallet.AngelBalance, "0")
	assertDecimalEqual(t, byWallet.TotalEarned, "0")

	_, err = s.GetUserByWallet(ctx, "0x4444444444444444444444444444444444444444")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	_, err = s.GetUserByID(ctx, u.ID+1000)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserPGStore_ClaimReferral(t *testing.T) {
	ctx, s := setupStore(t)

	inviter := user.New("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", nil)
	invitee := user.New("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", nil)
	other := user.New("0xcccccccccccccccccccccccccccccccccccccccc", nil)
	for _, u := range []*user.User{inviter, invitee, other} {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}

	claimed, err := s.ClaimReferral(ctx, invitee.ID, inviter.ID)
	if err != nil {
		t.Fatalf("ClaimReferral() failed: %v", err)
	}
	if !claimed {
		t.Fatalf("expected first claim to win")
	}

	claimed, err = s.ClaimReferral(ctx, invitee.ID, other.ID)
	if err != nil {
		t.Fatalf("ClaimReferral() failed: %v", err)
	}
	if claimed {
		t.Fatalf("expected second claim to lose")
	}

	got, err := s.GetUserByID(ctx, invitee.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if got.ReferredBy == nil || *got.ReferredBy != inviter.ID {
		t.Fatalf("expected referred_by to stay %d, got %v", inviter.ID, got.ReferredBy)
	}
}

func TestUserPGStore_InvitesAndBalances(t *testing.T) {
	ctx, s := setupStore(t)

	u := user.New("0x9999999999999999999999999999999999999999", nil)
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.IncrementInvitesCount(ctx, u.ID); err != nil {
			t.Fatalf("IncrementInvitesCount() failed: %v", err)
		}
	}

	if err := s.CreditBalance(ctx, u.ID, decimal.RequireFromString("100")); err != nil {
		t.Fatalf("CreditBalance() failed: %v", err)
	}
	if err := s.CreditBalance(ctx, u.ID, decimal.RequireFromString("50.5")); err != nil {
		t.Fatalf("CreditBalance() failed: %v", err)
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() failed: %v", err)
	}
	if got.InvitesCount != 3 {
		t.Fatalf("unexpected invites count: got %d want 3", got.InvitesCount)
	}
	assertDecimalEqual(t, got.AngelBalance, "150.5")
	assertDecimalEqual(t, got.TotalEarned, "150.5")
}

func TestUserPGStore_ListUsersReferredBy(t *testing.T) {
	ctx, s := setupStore(t)

	inviter := user.New("0x1212121212121212121212121212121212121212", nil)
	if err := s.CreateUser(ctx, inviter); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	invitees := []*user.User{
		user.New("0x3434343434343434343434343434343434343434", &inviter.ID),
		user.New("0x5656565656565656565656565656565656565656", &inviter.ID),
	}
	for _, u := range invitees {
		if err := s.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}

	unrelated := user.New("0x7878787878787878787878787878787878787878", nil)
	if err := s.CreateUser(ctx, unrelated); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}

	got, err := s.ListUsersReferredBy(ctx, inviter.ID)
	if err != nil {
		t.Fatalf("ListUsersReferredBy() failed: %v", err)
	}
	if len(got) != len(invitees) {
		t.Fatalf("unexpected referred count: got %d want %d", len(got), len(invitees))
	}
	for i, u := range got {
		if u.ID != invitees[i].ID {
			t.Fatalf("unexpected order: got id %d want %d at index %d", u.ID, invitees[i].ID, i)
		}
	}
}
