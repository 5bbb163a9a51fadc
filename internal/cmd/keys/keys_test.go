package keyscmd

import (
	"testing"

	"github.com/rzbill/pulse/internal/auth"
)

func runKeys(t *testing.T, args ...string) {
	t.Helper()
	cmd := NewKeysCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("keys %v: %v", args, err)
	}
}

func TestGenerateRevokeLifecycle(t *testing.T) {
	dir := t.TempDir()

	runKeys(t, "generate", "--data-dir", dir, "--description", "ci", "--rate-limit", "5")

	rt, err := openRuntime(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	keys, err := rt.OpenKeyStore().List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("want one key, got %d", len(keys))
	}
	k := keys[0]
	if k.Status != auth.StatusActive || k.RateLimit != 5 || k.Description != "ci" {
		t.Fatalf("unexpected key: %+v", k)
	}
	_ = rt.Close()

	runKeys(t, "revoke", k.KeyID, "--data-dir", dir)

	rt, err = openRuntime(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer rt.Close()
	got, err := rt.OpenKeyStore().GetByID(k.KeyID)
	if err != nil || got == nil {
		t.Fatalf("get after revoke: %v %v", got, err)
	}
	if got.Status != auth.StatusRevoked {
		t.Fatalf("status: %s", got.Status)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	dir := t.TempDir()
	runKeys(t, "generate", "--data-dir", dir)

	rt, err := openRuntime(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	keys, err := rt.OpenKeyStore().List()
	if err != nil || len(keys) != 1 {
		t.Fatalf("list: %v (%d)", err, len(keys))
	}
	_ = rt.Close()

	cmd := NewKeysCommand()
	cmd.SetArgs([]string{"update", keys[0].KeyID, "--data-dir", dir, "--status", "bogus"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("bogus status should be rejected")
	}
}
