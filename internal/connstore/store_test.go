/*-------------------------------------------------------------------------
 *
 * DB Chat - Natural Language Database Query Tool
 *
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package connstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dbchat/internal/crypto"
	"dbchat/internal/database"
)

func newTestStore(t *testing.T) (*Store, string, *crypto.EncryptionKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	path := filepath.Join(t.TempDir(), "connections.yaml")
	store, err := Open(path, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store, path, key
}

func TestStoreAddResolve(t *testing.T) {
	store, path, key := newTestStore(t)

	params := database.Params{
		Host:     "db.example.com",
		Port:     5432,
		Database: "sales",
		User:     "alice",
		Password: "s3cret",
		SSLMode:  "require",
	}
	if err := store.Add("prod", database.TypePostgres, params, "production sales db"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	engine, resolved, err := store.Resolve("prod")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if engine != database.TypePostgres {
		t.Errorf("engine = %q", engine)
	}
	if resolved.Password != "s3cret" {
		t.Errorf("password = %q, decryption roundtrip broken", resolved.Password)
	}
	if resolved.Host != "db.example.com" || resolved.Database != "sales" {
		t.Errorf("unexpected params: %+v", resolved)
	}

	// The file on disk must never hold the plaintext password
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(data), "s3cret") {
		t.Error("plaintext password written to disk")
	}

	// A fresh store over the same file and key resolves the same profile
	reopened, err := Open(path, key)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	_, again, err := reopened.Resolve("prod")
	if err != nil {
		t.Fatalf("Resolve after reopen: %v", err)
	}
	if again.Password != "s3cret" {
		t.Errorf("password after reopen = %q", again.Password)
	}
}

func TestStoreRejectsDuplicates(t *testing.T) {
	store, _, _ := newTestStore(t)
	params := database.Params{Path: "/tmp/app.db"}
	if err := store.Add("local", database.TypeSQLite, params, ""); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Add("local", database.TypeSQLite, params, ""); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestStoreValidation(t *testing.T) {
	store, _, _ := newTestStore(t)
	if err := store.Add("", database.TypeSQLite, database.Params{}, ""); err == nil {
		t.Error("expected error for empty name")
	}
	if err := store.Add("bad", database.Type("oracle"), database.Params{}, ""); err == nil {
		t.Error("expected error for unknown engine")
	}
}

func TestStoreRemove(t *testing.T) {
	store, _, _ := newTestStore(t)
	if err := store.Add("gone", database.TypeSQLite, database.Params{Path: "x.db"}, ""); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := store.Remove("gone"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, _, err := store.Resolve("gone"); err == nil {
		t.Error("resolved a removed profile")
	}
	if err := store.Remove("gone"); err == nil {
		t.Error("expected error removing missing profile")
	}
}

func TestStoreListSorted(t *testing.T) {
	store, _, _ := newTestStore(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := store.Add(name, database.TypeSQLite, database.Params{Path: name + ".db"}, ""); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}
	profiles := store.List()
	if len(profiles) != 3 {
		t.Fatalf("List returned %d profiles", len(profiles))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if profiles[i].Name != want {
			t.Errorf("profiles[%d] = %q, want %q", i, profiles[i].Name, want)
		}
	}
	if store.Count() != 3 {
		t.Errorf("Count = %d", store.Count())
	}
}

func TestStoreWrongKey(t *testing.T) {
	store, path, _ := newTestStore(t)
	params := database.Params{Host: "h", Port: 5432, Database: "d", User: "u", Password: "topsecret"}
	if err := store.Add("prod", database.TypePostgres, params, ""); err != nil {
		t.Fatalf("Add: %v", err)
	}

	otherKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	reopened, err := Open(path, otherKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, _, err := reopened.Resolve("prod"); err == nil {
		t.Error("expected decryption failure with the wrong key")
	}
}
