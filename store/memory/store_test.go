package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/liftoffhq/outreach"
	"github.com/liftoffhq/outreach/id"
	"github.com/liftoffhq/outreach/lead"
)

func newLead(name string) *lead.Lead {
	return lead.New(name, name+"@example.com")
}

// ---------------------------------------------------------------------------
// Save / Get / Delete
// ---------------------------------------------------------------------------

func TestSaveLead_RoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := newLead("ada")

	if err := s.SaveLead(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetLead(ctx, l.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Email != "ada@example.com" {
		t.Errorf("email = %q", got.Email)
	}
	if got.Status != lead.StatusIdentified {
		t.Errorf("status = %q", got.Status)
	}
}

func TestSaveLead_UpdateInPlace(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := newLead("ada")
	if err := s.SaveLead(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	l.EmailVerified = true
	if err := s.SaveLead(ctx, l); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.GetLead(ctx, l.ID)
	if !got.EmailVerified {
		t.Error("update lost EmailVerified")
	}
	if n, _ := s.CountLeads(ctx, lead.CountOpts{}); n != 1 {
		t.Errorf("count = %d after update, want 1", n)
	}
}

func TestSaveLead_DuplicateEmailRejected(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.SaveLead(ctx, newLead("ada")); err != nil {
		t.Fatalf("save: %v", err)
	}
	dup := lead.New("Other Ada", "ADA@Example.com")
	if err := s.SaveLead(ctx, dup); !errors.Is(err, outreach.ErrLeadAlreadyExists) {
		t.Fatalf("err = %v, want ErrLeadAlreadyExists", err)
	}
}

func TestGetLeadByEmail_Normalized(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := newLead("ada")
	if err := s.SaveLead(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetLeadByEmail(ctx, "  ADA@EXAMPLE.COM ")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.ID != l.ID {
		t.Error("wrong lead returned")
	}
}

func TestGetLead_NotFound(t *testing.T) {
	s := New()
	if _, err := s.GetLead(context.Background(), id.NewLeadID()); !errors.Is(err, outreach.ErrLeadNotFound) {
		t.Fatalf("err = %v, want ErrLeadNotFound", err)
	}
}

func TestDeleteLead_RemovesEmailIndex(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := newLead("ada")
	if err := s.SaveLead(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := s.DeleteLead(ctx, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetLeadByEmail(ctx, l.Email); !errors.Is(err, outreach.ErrLeadNotFound) {
		t.Fatalf("email index survived delete: %v", err)
	}

	// Re-inserting the same email must succeed now.
	if err := s.SaveLead(ctx, lead.New("ada again", "ada@example.com")); err != nil {
		t.Fatalf("re-insert after delete: %v", err)
	}
}

func TestDeleteLead_NotFound(t *testing.T) {
	s := New()
	if err := s.DeleteLead(context.Background(), id.NewLeadID()); !errors.Is(err, outreach.ErrLeadNotFound) {
		t.Fatalf("err = %v, want ErrLeadNotFound", err)
	}
}

// ---------------------------------------------------------------------------
// Listing and counting
// ---------------------------------------------------------------------------

func TestListLeads_OrderAndPagination(t *testing.T) {
	s := New()
	ctx := context.Background()

	for i := range 5 {
		if err := s.SaveLead(ctx, newLead(fmt.Sprintf("lead%d", i))); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	all, err := s.ListLeads(ctx, lead.ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("list = %d leads, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.Before(all[i-1].CreatedAt) {
			t.Fatal("list not ordered by creation time")
		}
	}

	page, err := s.ListLeads(ctx, lead.ListOpts{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page = %d leads, want 2", len(page))
	}
	if page[0].ID != all[1].ID {
		t.Error("offset not applied")
	}

	past, err := s.ListLeads(ctx, lead.ListOpts{Offset: 10})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(past) != 0 {
		t.Fatalf("offset past end returned %d leads", len(past))
	}
}

func TestListLeadsByStatus(t *testing.T) {
	s := New()
	ctx := context.Background()

	verified := newLead("verified")
	verified.Status = lead.StatusVerified
	if err := s.SaveLead(ctx, verified); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveLead(ctx, newLead("identified")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.ListLeadsByStatus(ctx, lead.StatusVerified, lead.ListOpts{})
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(got) != 1 || got[0].Name != "verified" {
		t.Fatalf("got %d leads, want the verified one", len(got))
	}
}

func TestCountLeads_Filters(t *testing.T) {
	s := New()
	ctx := context.Background()

	a := lead.New("a", "a@alpha.test")
	a.Status = lead.StatusSent
	b := lead.New("b", "b@alpha.test")
	c := lead.New("c", "c@beta.test")
	for _, l := range []*lead.Lead{a, b, c} {
		if err := s.SaveLead(ctx, l); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	if n, _ := s.CountLeads(ctx, lead.CountOpts{}); n != 3 {
		t.Errorf("total = %d, want 3", n)
	}
	if n, _ := s.CountLeads(ctx, lead.CountOpts{Domain: "alpha.test"}); n != 2 {
		t.Errorf("alpha.test = %d, want 2", n)
	}
	if n, _ := s.CountLeads(ctx, lead.CountOpts{Status: lead.StatusSent}); n != 1 {
		t.Errorf("sent = %d, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// Companies
// ---------------------------------------------------------------------------

func TestSaveCompany_List(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := lead.NewCompany("Alpha", "alpha.test")
	second := lead.NewCompany("Beta", "beta.test")
	if err := s.SaveCompany(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveCompany(ctx, second); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.ListCompanies(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("companies = %d, want 2", len(got))
	}
	if got[0].Name != "Alpha" {
		t.Errorf("first company = %q, want Alpha", got[0].Name)
	}
}

// ---------------------------------------------------------------------------
// Isolation
// ---------------------------------------------------------------------------

func TestStore_CopiesOnReadAndWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	l := newLead("ada")
	if err := s.SaveLead(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy after save must not affect the store.
	l.Name = "mutated"
	got, _ := s.GetLead(ctx, l.ID)
	if got.Name != "ada" {
		t.Error("store shares memory with caller's lead")
	}

	// Mutating a read result must not affect the store either.
	got.Name = "mutated again"
	fresh, _ := s.GetLead(ctx, l.ID)
	if fresh.Name != "ada" {
		t.Error("store shares memory with read results")
	}
}

func TestLifecycle_NoOps(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Migrate(ctx); err != nil {
		t.Errorf("migrate: %v", err)
	}
	if err := s.Ping(ctx); err != nil {
		t.Errorf("ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}
