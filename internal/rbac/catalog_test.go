package rbac

import (
	"testing"
)

func TestCatalogLevels(t *testing.T) {
	catalog := NewCatalog()

	expected := map[Role]int{
		RolePlatformAdmin:      1000,
		RoleBusinessOwner:      900,
		RoleBusinessAdmin:      800,
		RoleLocationManager:    700,
		RoleDepartmentHead:     600,
		RoleSeniorPractitioner: 500,
		RolePractitioner:       400,
		RoleJuniorPractitioner: 300,
		RoleReceptionist:       250,
		RoleScheduler:          200,
		RoleAssistant:          150,
		RoleCorporateClient:    100,
		RoleVIPClient:          80,
		RoleClient:             50,
		RoleGuest:              10,
	}
	for role, level := range expected {
		if got := catalog.LevelOf(role); got != level {
			t.Errorf("LevelOf(%s) = %d, want %d", role, got, level)
		}
	}
	if len(catalog.AllRoles()) != len(expected) {
		t.Fatalf("catalog has %d roles, want %d", len(catalog.AllRoles()), len(expected))
	}
	if catalog.TopLevel() != 1000 {
		t.Fatalf("TopLevel() = %d, want 1000", catalog.TopLevel())
	}
}

func TestCatalogAllRolesDescending(t *testing.T) {
	catalog := NewCatalog()

	roles := catalog.AllRoles()
	for i := 1; i < len(roles); i++ {
		if catalog.LevelOf(roles[i-1]) <= catalog.LevelOf(roles[i]) {
			t.Fatalf("roles not in descending level order at %d: %s before %s", i, roles[i-1], roles[i])
		}
	}
	if roles[0] != RolePlatformAdmin {
		t.Fatalf("first role = %s, want %s", roles[0], RolePlatformAdmin)
	}
}

func TestCatalogDelegableExcludesOwnLevel(t *testing.T) {
	catalog := NewCatalog()

	delegable := catalog.Delegable(900)
	for _, role := range delegable {
		if catalog.LevelOf(role) >= 900 {
			t.Fatalf("Delegable(900) returned %s at level %d", role, catalog.LevelOf(role))
		}
	}
	// 13 roles sit strictly below BUSINESS_OWNER.
	if len(delegable) != 13 {
		t.Fatalf("Delegable(900) returned %d roles, want 13", len(delegable))
	}
	if delegable[0] != RoleBusinessAdmin {
		t.Fatalf("Delegable(900)[0] = %s, want %s", delegable[0], RoleBusinessAdmin)
	}

	if got := catalog.Delegable(10); len(got) != 0 {
		t.Fatalf("Delegable(10) returned %d roles, want 0", len(got))
	}
}

func TestCatalogUnknownRolePanics(t *testing.T) {
	catalog := NewCatalog()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown role")
		}
	}()
	catalog.LevelOf(Role("MYSTERY_ROLE"))
}

func TestCatalogPermissionsOfReturnsCopy(t *testing.T) {
	catalog := NewCatalog()

	perms := catalog.PermissionsOf(RoleClient)
	if len(perms) == 0 {
		t.Fatal("expected permissions for CLIENT")
	}
	perms[0] = "mutated"
	if catalog.PermissionsOf(RoleClient)[0] == "mutated" {
		t.Fatal("PermissionsOf leaked internal slice")
	}
}

func TestCatalogKnown(t *testing.T) {
	catalog := NewCatalog()

	if !catalog.Known(RoleScheduler) {
		t.Fatal("SCHEDULER should be known")
	}
	if catalog.Known(Role("SUPER_DUPER_ADMIN")) {
		t.Fatal("made-up role should not be known")
	}
}
