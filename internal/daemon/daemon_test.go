package daemon

import (
	"path/filepath"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nerimity/nerimity-go/internal/bus"
	"github.com/nerimity/nerimity-go/internal/gateway"
	"github.com/nerimity/nerimity-go/internal/session"
	"github.com/nerimity/nerimity-go/internal/status"
	"github.com/nerimity/nerimity-go/internal/store"
)

func testCredentials(t *testing.T) *session.Credentials {
	t.Helper()
	dir := t.TempDir()
	creds, err := session.OpenCredentials(
		filepath.Join(dir, "credentials.db"),
		filepath.Join(dir, "credentials.key"),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = creds.Close() })
	return creds
}

func TestFxModuleWiring(t *testing.T) {
	// Validates the dependency graph without executing providers, so no
	// session directory or lock is touched.
	if err := fx.ValidateApp(Module(Params{SessionName: "fxtest"})); err != nil {
		t.Fatalf("fx graph invalid: %v", err)
	}
}

func TestTokenSource(t *testing.T) {
	creds := testCredentials(t)
	source := tokenSource(creds)

	if got := source(); got != "" {
		t.Errorf("token = %q, want empty before login", got)
	}
	if err := creds.SetToken("tok-1"); err != nil {
		t.Fatal(err)
	}
	if got := source(); got != "tok-1" {
		t.Errorf("token = %q, want tok-1", got)
	}
}

func TestLogoutWipesCredentialsAndCache(t *testing.T) {
	creds := testCredentials(t)
	if err := creds.SetToken("tok-1"); err != nil {
		t.Fatal(err)
	}
	if err := creds.SetUserID("me"); err != nil {
		t.Fatal(err)
	}

	b := bus.New()
	machine := status.NewMachine(b)
	gw := gateway.New("http://127.0.0.1:1", tokenSource(creds), b, machine, zap.NewNop())
	st := store.New(b, store.Options{})
	st.Users.AddCache(store.RawUser{ID: "u1"})
	st.Account.SetToken("tok-1")

	client := NewClient(gw, st, creds, zap.NewNop())
	if err := client.Logout(); err != nil {
		t.Fatal(err)
	}

	if token, _ := creds.Token(); token != "" {
		t.Errorf("token = %q, want wiped", token)
	}
	if userID, _ := creds.UserID(); userID != "" {
		t.Errorf("user id = %q, want wiped", userID)
	}
	if st.Users.Get("u1") != nil || st.Account.Token() != "" {
		t.Error("cache not reset on logout")
	}
}
