package store

import (
	"context"
	"testing"
)

func TestFlatCreateAddsCreator(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	alice, _ := s.Users.Create(ctx, "alice@example.com", "Alice", "")
	flat, err := s.Flats.Create(ctx, "Hauptstraße 5", alice.ID)
	if err != nil {
		t.Fatalf("create flat: %v", err)
	}
	if flat.Name != "Hauptstraße 5" {
		t.Errorf("name = %q", flat.Name)
	}

	ok, err := s.Flats.IsMember(ctx, flat.ID, alice.ID)
	if err != nil {
		t.Fatalf("is member: %v", err)
	}
	if !ok {
		t.Error("creator should be a member")
	}
}

func TestFlatMembership(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	alice, _ := s.Users.Create(ctx, "alice@example.com", "Alice", "")
	bob, _ := s.Users.Create(ctx, "bob@example.com", "Bob", "")
	flat, _ := s.Flats.Create(ctx, "WG", alice.ID)

	if err := s.Flats.AddMember(ctx, flat.ID, bob.ID); err != nil {
		t.Fatalf("add member: %v", err)
	}
	// Joining twice is a no-op.
	if err := s.Flats.AddMember(ctx, flat.ID, bob.ID); err != nil {
		t.Fatalf("add member again: %v", err)
	}

	members, err := s.Flats.ListMembers(ctx, flat.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}

	flats, err := s.Flats.ListForUser(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list for user: %v", err)
	}
	if len(flats) != 1 || flats[0].ID != flat.ID {
		t.Errorf("flats = %+v", flats)
	}

	changed, err := s.Tasks.RemoveFromFlat(ctx, flat.ID, bob.ID, nil)
	if err != nil {
		t.Fatalf("remove from flat: %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("changed = %+v, want none", changed)
	}
	ok, _ := s.Flats.IsMember(ctx, flat.ID, bob.ID)
	if ok {
		t.Error("bob should no longer be a member")
	}

	ids, err := s.Flats.ListIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != flat.ID {
		t.Errorf("ids = %v", ids)
	}
}
