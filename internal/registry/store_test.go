package registry_test

import (
	"context"
	"strings"
	"testing"

	"batchdl/internal/registry"
	"batchdl/internal/testsupport"
)

func TestHarvestPagesInIdentifierOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"ark:/13030/c", "ark:/13030/a", "ark:/13030/b", "doi:10.1/x"} {
		if err := reg.PutIdentifier(ctx, registry.Record{Identifier: id, Owner: "u1", Metadata: map[string]string{"_p": "erc"}}); err != nil {
			t.Fatalf("PutIdentifier failed: %v", err)
		}
	}
	if err := reg.PutIdentifier(ctx, registry.Record{Identifier: "ark:/13030/other", Owner: "u2"}); err != nil {
		t.Fatalf("PutIdentifier failed: %v", err)
	}

	page, err := reg.Harvest(ctx, "u1", "", 2)
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if len(page) != 2 || page[0].Identifier != "ark:/13030/a" || page[1].Identifier != "ark:/13030/b" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if page[0].Metadata["_p"] != "erc" {
		t.Fatalf("expected metadata to round trip, got %v", page[0].Metadata)
	}

	page, err = reg.Harvest(ctx, "u1", page[1].Identifier, 2)
	if err != nil {
		t.Fatalf("Harvest failed: %v", err)
	}
	if len(page) != 2 || page[0].Identifier != "ark:/13030/c" || page[1].Identifier != "doi:10.1/x" {
		t.Fatalf("unexpected second page: %+v", page)
	}

	page, err = reg.Harvest(ctx, "u1", "doi:10.1/x", 2)
	if err != nil || len(page) != 0 {
		t.Fatalf("expected exhausted owner, got %+v %v", page, err)
	}
}

func TestImportIdentifiers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	input := strings.Join([]string{
		`{"identifier":"ark:/99999/fk4a","owner":"u1","metadata":{"_c":"100"}}`,
		``,
		`{"identifier":"ark:/99999/fk4b","owner":"u1","metadata":{"_c":"200"}}`,
	}, "\n")
	n, err := reg.ImportIdentifiers(ctx, strings.NewReader(input))
	if err != nil {
		t.Fatalf("ImportIdentifiers failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 imported, got %d", n)
	}

	if _, err := reg.ImportIdentifiers(ctx, strings.NewReader(`{"identifier":"x"}`)); err == nil {
		t.Fatal("expected error for record without owner")
	}
}

func TestUsersAndGroups(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := testsupport.MustOpenRegistry(t, cfg)
	ctx := context.Background()

	if err := reg.AddGroup(ctx, registry.Group{ID: "g1", Name: "lab"}); err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}
	for _, u := range []registry.User{
		{ID: "u2", Username: "bob", Group: "lab"},
		{ID: "u1", Username: "alice", Group: "lab", GroupAdmin: true},
		{ID: "u3", Username: "carol", Group: "other"},
	} {
		if err := reg.AddUser(ctx, u); err != nil {
			t.Fatalf("AddUser failed: %v", err)
		}
	}

	alice, err := reg.UserByUsername(ctx, "alice")
	if err != nil || alice == nil || alice.ID != "u1" || !alice.GroupAdmin {
		t.Fatalf("unexpected alice: %#v %v", alice, err)
	}
	byID, err := reg.UserByID(ctx, "u3")
	if err != nil || byID == nil || byID.Username != "carol" {
		t.Fatalf("unexpected user by id: %#v %v", byID, err)
	}
	missing, err := reg.UserByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing user, got %#v %v", missing, err)
	}

	group, err := reg.GroupByName(ctx, "lab")
	if err != nil || group == nil || group.ID != "g1" {
		t.Fatalf("unexpected group: %#v %v", group, err)
	}
	members, err := reg.GroupMembers(ctx, "lab")
	if err != nil {
		t.Fatalf("GroupMembers failed: %v", err)
	}
	if len(members) != 2 || members[0].Username != "alice" || members[1].Username != "bob" {
		t.Fatalf("unexpected members: %+v", members)
	}
}

func TestDownloadPolicy(t *testing.T) {
	alice := registry.User{ID: "u1", Username: "alice", Group: "lab", GroupAdmin: true}
	bob := registry.User{ID: "u2", Username: "bob", Group: "lab"}
	carol := registry.User{ID: "u3", Username: "carol", Group: "other"}
	root := registry.User{ID: "u0", Username: "root", Superuser: true}
	anon := registry.User{ID: "anon", Username: registry.AnonymousName}
	lab := registry.Group{ID: "g1", Name: "lab"}

	cases := []struct {
		name string
		got  bool
		want bool
	}{
		{"self", registry.CanDownloadOwner(bob, bob), true},
		{"other user", registry.CanDownloadOwner(bob, carol), false},
		{"group admin same group", registry.CanDownloadOwner(alice, bob), true},
		{"group admin other group", registry.CanDownloadOwner(alice, carol), false},
		{"superuser", registry.CanDownloadOwner(root, carol), true},
		{"anonymous", registry.CanDownloadOwner(anon, anon), false},
		{"group admin own group", registry.CanDownloadGroup(alice, lab), true},
		{"member not admin", registry.CanDownloadGroup(bob, lab), false},
		{"superuser group", registry.CanDownloadGroup(root, lab), true},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, tc.got, tc.want)
		}
	}
}
