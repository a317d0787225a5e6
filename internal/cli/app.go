package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/labkeeper/internal/audit"
	"github.com/dmitrijs2005/labkeeper/internal/auth"
	"github.com/dmitrijs2005/labkeeper/internal/catalog"
	"github.com/dmitrijs2005/labkeeper/internal/common"
	"github.com/dmitrijs2005/labkeeper/internal/config"
	"github.com/dmitrijs2005/labkeeper/internal/credentials"
	"github.com/dmitrijs2005/labkeeper/internal/cryptox"
	"github.com/dmitrijs2005/labkeeper/internal/filex"
	"github.com/dmitrijs2005/labkeeper/internal/logging"
	"github.com/dmitrijs2005/labkeeper/internal/metrics"
	"github.com/dmitrijs2005/labkeeper/internal/orders"
)

type userService interface {
	Login(ctx context.Context, username, password string) (auth.Identity, error)
	List(ctx context.Context) ([]credentials.Account, error)
	Upsert(ctx context.Context, req credentials.UpsertRequest) error
	SetPassword(ctx context.Context, username, password, confirm string) error
	ResetTemporaryPassword(ctx context.Context, username string) (string, error)
	Delete(ctx context.Context, actor, username string) error
}

type orderService interface {
	CreateOrder(ctx context.Context, in orders.NewOrder) (string, error)
	CaptureResults(ctx context.Context, folio, results string, release bool) (orders.Status, error)
	ListFolios(ctx context.Context, statuses ...orders.Status) ([]string, error)
	GetSummary(ctx context.Context, folio string) (*orders.Summary, error)
	Search(ctx context.Context, query string) ([]orders.ViewRow, error)
	ExportFile(ctx context.Context, dir, query string) (string, int, error)
	Report(ctx context.Context, folio string) (*orders.Report, error)
}

type studyCatalog interface {
	ListNames(ctx context.Context, activeOnly bool) ([]string, error)
}

type auditTrail interface {
	History(ctx context.Context, subject string, limit int) ([]audit.Event, error)
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

var errNotLoggedIn = fmt.Errorf("%w: not logged in", common.ErrorUnauthorized)

type App struct {
	config   *config.Config
	users    userService
	orders   orderService
	catalog  studyCatalog
	audit    auditTrail
	sessions *auth.Sessions
	logger   logging.Logger

	reader *bufio.Reader
	out    io.Writer

	token    string
	userName string

	db *sql.DB
}

// NewApp opens every store under cfg.DataDir and wires the services. The
// bootstrap admin is created when the credential file holds no users.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	dataDir, err := filex.EnsureDir(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	cfg.DataDir = dataDir

	cipher, err := cryptox.LoadCipher(cfg.Path(cfg.KeyFile))
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "cipher key loaded", "source", string(cipher.Source()))

	db, err := audit.InitDatabase(ctx, cfg.Path(cfg.AuditDB))
	if err != nil {
		return nil, err
	}
	trail := audit.NewService(audit.NewSQLiteRepository(db), logger.With("component", "audit"))

	users := credentials.NewService(
		credentials.NewFileRepository(cfg.Path(cfg.UsersFile), logger.With("component", "users-file")),
		trail,
		logger.With("component", "credentials"),
	)
	if _, err := users.Bootstrap(ctx, cfg.BootstrapAdmin, cfg.BootstrapPassword); err != nil {
		db.Close()
		return nil, err
	}

	studies := catalog.NewSource(cfg.Path(cfg.CatalogFile))

	repo := orders.NewCSVRepository(cfg.Path(cfg.OrdersFile), logger.With("component", "store"))
	if err := repo.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	orderSvc := orders.NewService(repo, cipher, trail, logger.With("component", "orders"), orders.Options{
		StrictLifecycle: cfg.StrictLifecycle,
		CountryCode:     cfg.DefaultCountryCode,
		Prices:          studies,
	})

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = common.GenerateRandByteArray(32)
	}

	return &App{
		config:   cfg,
		users:    users,
		orders:   orderSvc,
		catalog:  studies,
		audit:    trail,
		sessions: auth.NewSessions(secret, cfg.SessionTTL),
		logger:   logger,
		reader:   bufio.NewReader(stdin),
		out:      stdout,
		db:       db,
	}, nil
}

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

// Run prompts for a login and serves commands until the user exits or
// input ends. The metrics listener, when configured, lives as long as ctx.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	if a.config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, a.config.MetricsAddr, a.logger); err != nil {
				a.logger.Error(ctx, "metrics listener stopped", "error", err)
			}
		}()
	}

	printlnFn("Welcome to LabKeeper (type 'help' for commands)")
	if err := a.Login(ctx); err != nil {
		printlnFn("Error:", err)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
	return nil
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

func (a *App) isLoggedIn() bool {
	return a.token != ""
}

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// session checks the current token and, when action is set, the caller's
// role. The returned context carries the identity for audit records. An
// expired token logs the user out.
func (a *App) session(ctx context.Context, action auth.Action) (context.Context, auth.Identity, error) {
	if a.token == "" {
		return ctx, auth.Identity{}, errNotLoggedIn
	}

	id, err := a.sessions.Parse(a.token)
	if err != nil {
		a.token, a.userName = "", ""
		if errors.Is(err, common.ErrTokenExpired) {
			return ctx, auth.Identity{}, fmt.Errorf("session expired, please log in again: %w", err)
		}
		return ctx, auth.Identity{}, err
	}

	if action != "" {
		if err := auth.Authorize(id.Role, action); err != nil {
			return ctx, auth.Identity{}, err
		}
	}
	return auth.WithIdentity(ctx, id), id, nil
}

func (a *App) ask(prompt string) (string, error) {
	return getSimpleText(a.reader, prompt, a.out)
}

func (a *App) askPassword(prompt string) (string, error) {
	pw, err := getPassword(prompt, a.out)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(pw)
	return string(pw), nil
}

// argOrAsk returns args[0] or prompts for it.
func (a *App) argOrAsk(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	v, err := a.ask(prompt)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", fmt.Errorf("%w: %s is required", common.ErrorValidation, prompt)
	}
	return v, nil
}
