package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Julie-03/Kapee/internal/authclient"
	"github.com/Julie-03/Kapee/internal/cart"
	"github.com/Julie-03/Kapee/internal/cartclient"
	"github.com/Julie-03/Kapee/internal/catalogclient"
	"github.com/Julie-03/Kapee/internal/config"
	"github.com/Julie-03/Kapee/internal/util"
	"github.com/Julie-03/Kapee/pkg/domain"
	"github.com/Julie-03/Kapee/pkg/session"
)

// Config holds runtime configuration for the storefront client.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	TokenStore     string
	DataDir        string
	RedisAddr      string
	RedisPassword  string
	RedisKeyPrefix string
	// Sessions overrides the storage selected by TokenStore.
	Sessions session.KV
	// HTTPClient overrides the per-service clients built from RequestTimeout.
	HTTPClient *http.Client
}

// ConfigFromFile maps the loaded file config onto Config.
func ConfigFromFile(cfg config.FileConfig) Config {
	return Config{
		APIBaseURL:     cfg.APIBaseURL,
		RequestTimeout: cfg.Timeout(),
		TokenStore:     cfg.TokenStore,
		DataDir:        cfg.DataDir,
		RedisAddr:      cfg.RedisAddr,
		RedisPassword:  cfg.RedisPassword,
		RedisKeyPrefix: cfg.RedisKeyPrefix,
	}
}

// App wires the session store, the backend clients and the cart engine,
// and owns the session transitions that touch more than one of them.
type App struct {
	sessions *session.Store
	kv       session.KV
	auth     *authclient.Client
	catalog  *catalogclient.Client
	carts    *cartclient.Client
	cart     *cart.Engine
}

// New constructs the application. When a persisted session is found the
// server cart is loaded once before New returns.
func New(ctx context.Context, cfg Config) (*App, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, errors.New("api base URL required")
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	kv := cfg.Sessions
	if kv == nil {
		var err error
		kv, err = newSessionKV(cfg)
		if err != nil {
			return nil, err
		}
	}
	sessions, err := session.Open(kv)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	authHTTP, catalogHTTP, cartHTTP := cfg.HTTPClient, cfg.HTTPClient, cfg.HTTPClient
	if cfg.HTTPClient == nil {
		authHTTP = util.NewHTTPClient("auth", cfg.RequestTimeout)
		catalogHTTP = util.NewHTTPClient("catalog", cfg.RequestTimeout)
		cartHTTP = util.NewHTTPClient("cart", cfg.RequestTimeout)
	}
	carts := cartclient.NewClient(cfg.APIBaseURL, sessions, cartclient.WithHTTPClient(cartHTTP))

	a := &App{
		sessions: sessions,
		kv:       kv,
		auth:     authclient.NewClient(cfg.APIBaseURL, authHTTP),
		catalog:  catalogclient.NewClient(cfg.APIBaseURL, catalogHTTP),
		carts:    carts,
		cart:     cart.NewEngine(carts, sessions),
	}
	if sessions.IsAuthenticated() {
		a.cart.Load(ctx)
	}
	return a, nil
}

func newSessionKV(cfg Config) (session.KV, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.TokenStore)) {
	case config.TokenStoreMemory:
		return session.NewMemoryKV(), nil
	case config.TokenStoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("redis token store requires redisAddr")
		}
		return session.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisKeyPrefix), nil
	case "", config.TokenStoreFile:
		dir := cfg.DataDir
		if dir == "" {
			dir = ".kapee"
		}
		kv, err := session.NewFileKV(filepath.Join(dir, "session"))
		if err != nil {
			return nil, fmt.Errorf("init file token store: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown token store %q", cfg.TokenStore)
	}
}

// Close releases the session storage if it holds a connection.
func (a *App) Close() error {
	if c, ok := a.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Cart returns the reconciliation engine.
func (a *App) Cart() *cart.Engine {
	return a.cart
}

// Session returns the session store.
func (a *App) Session() *session.Store {
	return a.sessions
}

// Login exchanges credentials for a token, commits it, then replaces the
// local cart with the server cart. The token is readable by the gateway
// before the load starts.
func (a *App) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, token, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	if err := a.sessions.Login(token, user); err != nil {
		return domain.User{}, fmt.Errorf("store session: %w", err)
	}
	a.cart.Load(ctx)
	util.LoggerFromContext(ctx).Info("user logged in", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Register creates an account without logging in.
func (a *App) Register(ctx context.Context, username, email, password string) error {
	return a.auth.Register(ctx, username, email, password)
}

// Logout drops the session and empties the local cart. The server cart is
// left as is so it can be restored on the next login.
func (a *App) Logout(ctx context.Context) error {
	err := a.sessions.Logout()
	a.cart.Reset()
	if err != nil {
		return err
	}
	util.LoggerFromContext(ctx).Info("user logged out")
	return nil
}

// Products lists the catalog.
func (a *App) Products(ctx context.Context) ([]domain.Product, error) {
	return a.catalog.List(ctx)
}

// Product returns one catalog product.
func (a *App) Product(ctx context.Context, id string) (domain.Product, error) {
	return a.catalog.Get(ctx, id)
}

// AddProducts looks up each product and adds quantity of it to the cart.
// Lookup failures abort before the cart is touched.
func (a *App) AddProducts(ctx context.Context, ids []string, quantity int) ([]cart.Result, error) {
	if len(ids) == 0 {
		return nil, ErrNoProducts
	}
	products, err := a.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	results := make([]cart.Result, 0, len(products))
	for _, p := range products {
		results = append(results, a.cart.Add(ctx, p.Snapshot(), quantity))
	}
	return results, nil
}

// Checkout places an order for the server cart and resyncs, which leaves
// the local cart empty once the server has cleared it.
func (a *App) Checkout(ctx context.Context) (domain.Order, error) {
	if !a.sessions.IsAuthenticated() {
		return domain.Order{}, cartclient.ErrUnauthenticated
	}
	if len(a.cart.Lines()) == 0 {
		return domain.Order{}, ErrEmptyCart
	}
	order, err := a.carts.CreateOrder(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	a.cart.Load(ctx)
	util.LoggerFromContext(ctx).Info("order placed", "order_id", order.ID, "total", order.Total.String())
	return order, nil
}
