package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/labkeeper/internal/auth"
	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/dmitrijs2005/labkeeper/internal/config"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

const testCatalog = "Codigo,Nombre,Categoria,Precio_MXN,Activo\n" +
	"QS01,Glucosa,Quimica,120,1\n" +
	"QS02,Urea,Quimica,80.5,1\n" +
	"QS03,Perfil tiroideo,Hormonas,900,0\n"

func readerFromLines(lines ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	t.Setenv("FERNET_KEY", "")

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	cfg.SessionSecret = "test-secret"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.DataDir, cfg.CatalogFile), []byte(testCatalog), 0o600))

	a, err := NewApp(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	var out bytes.Buffer
	a.out = &out
	a.reader = readerFromLines()
	return a, &out
}

// as starts a session for username without going through the vault.
func as(t *testing.T, a *App, username string, role auth.Role) {
	t.Helper()
	token, err := a.sessions.Issue(auth.Identity{Username: username, Role: role})
	require.NoError(t, err)
	a.token, a.userName = token, username
}

func stubPasswords(t *testing.T, pws ...string) {
	t.Helper()
	orig := getPassword
	getPassword = func(string, io.Writer) ([]byte, error) {
		if len(pws) == 0 {
			return nil, errors.New("no password scripted")
		}
		pw := pws[0]
		pws = pws[1:]
		return []byte(pw), nil
	}
	t.Cleanup(func() { getPassword = orig })
}

func createOrder(t *testing.T, a *App, folio, name string) {
	t.Helper()
	a.reader = readerFromLines(
		folio,
		"2025-07-01",
		name,
		"35",
		"F",
		"5512345678",
		"Av. Juárez 10",
		"contacto@example.com, paciente@example.com",
		"",
		"Glucosa, Urea",
		"ayuno de 8 horas",
		"",
	)
	require.NoError(t, a.NewOrder(context.Background()))
}

func TestApp_LoginBootstrapAdmin(t *testing.T) {
	a, out := newTestApp(t)
	a.reader = readerFromLines("admin@lab.local")
	stubPasswords(t, "admin123")

	require.NoError(t, a.Login(context.Background()))
	require.True(t, a.isLoggedIn())
	require.Equal(t, "(admin@lab.local)", a.getStatus())
	require.Contains(t, out.String(), "Logged in as admin@lab.local (admin)")

	out.Reset()
	require.NoError(t, a.WhoAmI(context.Background()))
	require.Equal(t, "admin@lab.local (admin)\n", out.String())

	require.NoError(t, a.Logout(context.Background()))
	require.False(t, a.isLoggedIn())
	require.ErrorIs(t, a.Logout(context.Background()), common.ErrorUnauthorized)
}

func TestApp_LoginWrongPassword(t *testing.T) {
	a, _ := newTestApp(t)
	a.reader = readerFromLines("admin@lab.local")
	stubPasswords(t, "nope")

	err := a.Login(context.Background())
	require.ErrorIs(t, err, common.ErrorUnauthorized)
	require.False(t, a.isLoggedIn())
}

func TestApp_CommandsRequireSession(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	require.ErrorIs(t, a.Folios(ctx, nil), common.ErrorUnauthorized)
	require.ErrorIs(t, a.NewOrder(ctx), common.ErrorUnauthorized)
	require.ErrorIs(t, a.Users(ctx), common.ErrorUnauthorized)
}

func TestApp_ExpiredSessionLogsOut(t *testing.T) {
	a, _ := newTestApp(t)
	a.sessions = auth.NewSessions([]byte("test-secret"), -time.Minute)
	as(t, a, "lab@lab.local", auth.RoleLab)

	err := a.Folios(context.Background(), nil)
	require.ErrorIs(t, err, common.ErrTokenExpired)
	require.False(t, a.isLoggedIn())
}

func TestApp_OrderLifecycle(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()

	as(t, a, "recepcion@lab.local", auth.RoleReception)
	createOrder(t, a, "F-1", "Ana López")
	require.Contains(t, out.String(), "Available studies: Glucosa, Urea")
	require.Contains(t, out.String(), "Order F-1 registered")

	require.ErrorIs(t, a.Capture(ctx, []string{"F-1"}, false), common.ErrForbidden)

	as(t, a, "lab@lab.local", auth.RoleLab)
	require.ErrorIs(t, a.NewOrder(ctx), common.ErrForbidden)

	out.Reset()
	a.reader = readerFromLines(`{"glucosa": {"valor": 90, "unidad": "mg/dL", "rango": "70-100"}}`, "")
	require.NoError(t, a.Capture(ctx, []string{"F-1"}, true))
	require.Contains(t, out.String(), "Order F-1 is now firmado")

	out.Reset()
	require.NoError(t, a.Show(ctx, []string{"F-1"}))
	shown := out.String()
	require.Contains(t, shown, "Ana López")
	require.Contains(t, shown, "+525512345678")
	require.Contains(t, shown, "contacto@example.com; paciente@example.com")
	require.Contains(t, shown, "Glucosa; Urea")
	require.Contains(t, shown, "firmado")

	out.Reset()
	require.NoError(t, a.Report(ctx, []string{"F-1"}))
	require.Contains(t, out.String(), "glucosa")
	require.Contains(t, out.String(), "mg/dL")
	require.Contains(t, out.String(), "70-100")

	require.ErrorIs(t, a.Show(ctx, []string{"missing"}), common.ErrorNotFound)
}

func TestApp_AutoCostFromCatalog(t *testing.T) {
	a, out := newTestApp(t)
	as(t, a, "admin@lab.local", auth.RoleAdmin)
	createOrder(t, a, "F-2", "Luis Pérez")

	out.Reset()
	require.NoError(t, a.Export(context.Background(), []string{"F-2"}))
	require.Contains(t, out.String(), "Exported 1 order(s)")

	entries, err := os.ReadDir(a.config.Path(a.config.ExportDir))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(a.config.Path(a.config.ExportDir), entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(data), "200.5")
	require.Contains(t, string(data), "Luis Pérez")
}

func TestApp_FoliosSearchAndHistory(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	as(t, a, "recepcion@lab.local", auth.RoleReception)
	createOrder(t, a, "F-1", "Ana López")
	createOrder(t, a, "F-2", "Luis Pérez")

	out.Reset()
	require.NoError(t, a.Folios(ctx, []string{"pendiente"}))
	require.Equal(t, "F-1\nF-2\n", out.String())

	out.Reset()
	require.NoError(t, a.Folios(ctx, []string{"firmado"}))
	require.Equal(t, "No orders\n", out.String())

	require.ErrorIs(t, a.Folios(ctx, []string{"archivado"}), common.ErrorValidation)

	out.Reset()
	require.NoError(t, a.Search(ctx, []string{"LOPEZ"}))
	require.Contains(t, out.String(), "F-1")
	require.NotContains(t, out.String(), "F-2")
	require.Contains(t, out.String(), "1 order(s)")

	out.Reset()
	require.NoError(t, a.History(ctx, []string{"F-1"}))
	require.Contains(t, out.String(), "order_created")
	require.Contains(t, out.String(), "recepcion@lab.local")

	out.Reset()
	require.NoError(t, a.Studies(ctx))
	require.Equal(t, "Glucosa\nUrea\n", out.String())
}

func TestApp_UserManagement(t *testing.T) {
	a, out := newTestApp(t)
	ctx := context.Background()
	as(t, a, "admin@lab.local", auth.RoleAdmin)

	a.reader = readerFromLines("lab@lab.local", "Química Laura", "LAB")
	stubPasswords(t, "secret1", "secret1")
	require.NoError(t, a.AddUser(ctx))

	out.Reset()
	require.NoError(t, a.Users(ctx))
	require.Contains(t, out.String(), "admin@lab.local")
	require.Contains(t, out.String(), "lab@lab.local")
	require.Contains(t, out.String(), "Química Laura")

	out.Reset()
	require.NoError(t, a.TempPass(ctx, []string{"lab@lab.local"}))
	require.Contains(t, out.String(), "Temporary password for lab@lab.local: ")

	require.ErrorIs(t, a.DelUser(ctx, []string{"admin@lab.local"}), common.ErrSelfDelete)
	require.ErrorIs(t, a.DelUser(ctx, []string{"ghost@lab.local"}), common.ErrorNotFound)
	require.NoError(t, a.DelUser(ctx, []string{"lab@lab.local"}))

	as(t, a, "lab@lab.local", auth.RoleLab)
	require.ErrorIs(t, a.Users(ctx), common.ErrForbidden)
}

func TestApp_AddUserPasswordMismatch(t *testing.T) {
	a, _ := newTestApp(t)
	as(t, a, "admin@lab.local", auth.RoleAdmin)

	a.reader = readerFromLines("lab@lab.local", "", "lab")
	stubPasswords(t, "secret1", "secret2")
	require.ErrorIs(t, a.AddUser(context.Background()), common.ErrPasswordMismatch)
}

func TestApp_Passwd(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	as(t, a, "lab@lab.local", auth.RoleLab)
	require.ErrorIs(t, a.Passwd(ctx, []string{"admin@lab.local"}), common.ErrForbidden)

	as(t, a, "admin@lab.local", auth.RoleAdmin)
	stubPasswords(t, "short", "short")
	require.ErrorIs(t, a.Passwd(ctx, nil), common.ErrPasswordTooShort)

	stubPasswords(t, "newsecret", "newsecret")
	require.NoError(t, a.Passwd(ctx, nil))

	a.reader = readerFromLines("admin@lab.local")
	stubPasswords(t, "newsecret")
	require.NoError(t, a.Login(ctx))
}
