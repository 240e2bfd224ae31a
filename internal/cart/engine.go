package cart

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/Julie-03/Kapee/internal/cartclient"
	"github.com/Julie-03/Kapee/internal/util"
	"github.com/Julie-03/Kapee/pkg/domain"
	"github.com/shopspring/decimal"
)

// Gateway is the remote cart resource.
type Gateway interface {
	FetchAll(ctx context.Context) ([]domain.CartLine, error)
	Add(ctx context.Context, productID string, quantity int) error
	UpdateQuantity(ctx context.Context, productID string, quantity int) error
	Remove(ctx context.Context, productID string) error
	Clear(ctx context.Context) error
}

// Session reports the held bearer token; "" means no session.
type Session interface {
	Token() string
}

// Engine owns the in-memory cart and mediates every mutation through the
// gateway. Without a session the cart is local only. With one, the server
// is authoritative and every accepted mutation is followed by a full
// resync; failures fall back to applying the mutation locally.
//
// Mutations never fail outward: each returns a Result. Mutations are not
// serialized against each other. Resyncs are numbered when issued and a
// resync result is dropped if a later-issued one was already applied.
type Engine struct {
	gateway Gateway
	session Session

	mu      sync.Mutex
	lines   []domain.CartLine
	issued  uint64
	applied uint64
}

// NewEngine builds an engine with an empty cart.
func NewEngine(gateway Gateway, session Session) *Engine {
	return &Engine{gateway: gateway, session: session}
}

// Lines returns a copy of the cart lines in insertion order.
func (e *Engine) Lines() []domain.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CartLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// Line returns the line for productID.
func (e *Engine) Line(productID string) (domain.CartLine, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexLocked(productID); i >= 0 {
		return e.lines[i], true
	}
	return domain.CartLine{}, false
}

// TotalItemCount sums the quantities of all lines.
func (e *Engine) TotalItemCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, l := range e.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice sums unit price times quantity over all lines.
func (e *Engine) TotalPrice() decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := decimal.Zero
	for _, l := range e.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// Reset empties the local cart without touching the server. In-flight
// resyncs issued before the reset are discarded when they complete.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.issued++
	e.applied = e.issued
	e.lines = nil
	e.mu.Unlock()
}

// Load replaces the cart with the server cart. Without a token, or when
// the fetch fails, the cart becomes empty. Failures are logged only.
func (e *Engine) Load(ctx context.Context) {
	seq := e.nextSeq()
	if e.token() == "" {
		e.replace(seq, nil)
		return
	}
	lines, err := e.gateway.FetchAll(ctx)
	if err != nil {
		util.LoggerFromContext(ctx).Error("load cart failed, using empty cart", "err", err)
		e.replace(seq, nil)
		return
	}
	e.replace(seq, lines)
	util.LoggerFromContext(ctx).Debug("cart loaded", "lines", len(lines))
}

// Add puts quantity units of a product in the cart. A quantity below 1 is
// treated as 1.
func (e *Engine) Add(ctx context.Context, product domain.ProductSnapshot, quantity int) Result {
	product.ID = strings.TrimSpace(product.ID)
	if product.ID == "" {
		return rejected(OpAdd, "", errors.New("product id required"))
	}
	if quantity < 1 {
		quantity = 1
	}
	apply := func() { e.applyAdd(product, quantity) }

	if e.token() == "" {
		apply()
		return Result{Op: OpAdd, ProductID: product.ID, Outcome: LocalOnly, Reason: ReasonNotPersisted}
	}
	err := e.gateway.Add(ctx, product.ID, quantity)
	switch {
	case err == nil:
		return e.resync(ctx, OpAdd, product.ID, apply)
	case errors.Is(err, cartclient.ErrAlreadyInCart):
		existing := e.existingQuantity(ctx, product.ID)
		res := e.updateQuantity(ctx, product.ID, existing+quantity, &product)
		res.Op = OpAdd
		return res
	default:
		return e.degrade(ctx, OpAdd, product.ID, err, apply)
	}
}

// Remove deletes the line for productID.
func (e *Engine) Remove(ctx context.Context, productID string) Result {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return rejected(OpRemove, "", errors.New("product id required"))
	}
	apply := func() { e.applyRemove(productID) }

	if e.token() == "" {
		apply()
		return Result{Op: OpRemove, ProductID: productID, Outcome: LocalOnly, Reason: ReasonNotPersisted}
	}
	if err := e.gateway.Remove(ctx, productID); err != nil {
		return e.degrade(ctx, OpRemove, productID, err, apply)
	}
	return e.resync(ctx, OpRemove, productID, apply)
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero
// or less removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, quantity int) Result {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return rejected(OpUpdate, "", errors.New("product id required"))
	}
	if quantity <= 0 {
		return e.Remove(ctx, productID)
	}
	return e.updateQuantity(ctx, productID, quantity, nil)
}

// Clear empties the cart, remotely when a session is active.
func (e *Engine) Clear(ctx context.Context) Result {
	apply := e.applyClear
	if e.token() == "" {
		apply()
		return Result{Op: OpClear, Outcome: LocalOnly, Reason: ReasonNotPersisted}
	}
	if err := e.gateway.Clear(ctx); err != nil {
		return e.degrade(ctx, OpClear, "", err, apply)
	}
	return e.resync(ctx, OpClear, "", apply)
}

// updateQuantity sets quantity remotely then locally. When product is set
// a missing local line is created from it on the local path.
func (e *Engine) updateQuantity(ctx context.Context, productID string, quantity int, product *domain.ProductSnapshot) Result {
	apply := func() { e.applySet(productID, quantity, product) }

	if e.token() == "" {
		apply()
		return Result{Op: OpUpdate, ProductID: productID, Outcome: LocalOnly, Reason: ReasonNotPersisted}
	}
	if err := e.gateway.UpdateQuantity(ctx, productID, quantity); err != nil {
		return e.degrade(ctx, OpUpdate, productID, err, apply)
	}
	return e.resync(ctx, OpUpdate, productID, apply)
}

// existingQuantity returns the quantity already held for productID,
// resyncing first when the local cart does not know the line.
func (e *Engine) existingQuantity(ctx context.Context, productID string) int {
	if l, ok := e.Line(productID); ok {
		return l.Quantity
	}
	seq := e.nextSeq()
	lines, err := e.gateway.FetchAll(ctx)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("resync before quantity merge failed", "product_id", productID, "err", err)
		return 0
	}
	e.replace(seq, lines)
	for _, l := range lines {
		if l.ID == productID {
			return l.Quantity
		}
	}
	return 0
}

func (e *Engine) resync(ctx context.Context, op Op, productID string, apply func()) Result {
	seq := e.nextSeq()
	lines, err := e.gateway.FetchAll(ctx)
	if err != nil {
		res := e.degrade(ctx, op, productID, err, apply)
		if res.Reason == ReasonSyncFailed {
			res.Reason = ReasonResyncFailed
		}
		return res
	}
	if !e.replace(seq, lines) {
		util.LoggerFromContext(ctx).Debug("stale resync dropped", "op", op, "seq", seq)
	}
	return Result{Op: op, ProductID: productID, Outcome: Synced}
}

func (e *Engine) degrade(ctx context.Context, op Op, productID string, err error, apply func()) Result {
	apply()
	reason := ReasonSyncFailed
	if errors.Is(err, cartclient.ErrUnauthenticated) || errors.Is(err, cartclient.ErrUnauthorized) {
		reason = ReasonSessionExpired
	}
	util.LoggerFromContext(ctx).Warn("cart sync degraded, applied locally",
		"op", op, "product_id", productID, "reason", reason, "err", err)
	return Result{Op: op, ProductID: productID, Outcome: Degraded, Reason: reason, Err: err}
}

func rejected(op Op, productID string, err error) Result {
	return Result{Op: op, ProductID: productID, Outcome: Rejected, Reason: ReasonInvalid, Err: err}
}

func (e *Engine) token() string {
	if e.session == nil {
		return ""
	}
	return e.session.Token()
}

func (e *Engine) nextSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issued++
	return e.issued
}

// replace swaps in lines unless a later-issued resync was already applied.
func (e *Engine) replace(seq uint64, lines []domain.CartLine) bool {
	normalized := normalize(lines)
	e.mu.Lock()
	defer e.mu.Unlock()
	if seq <= e.applied {
		return false
	}
	e.applied = seq
	e.lines = normalized
	return true
}

// normalize enforces one line per product and quantity >= 1. Duplicate
// server entries are merged by summing quantities.
func normalize(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ID == "" || l.Quantity < 1 {
			continue
		}
		if i, ok := index[l.ID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	return out
}

func (e *Engine) indexLocked(productID string) int {
	for i, l := range e.lines {
		if l.ID == productID {
			return i
		}
	}
	return -1
}

func (e *Engine) applyAdd(product domain.ProductSnapshot, quantity int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexLocked(product.ID); i >= 0 {
		e.lines[i].Quantity += quantity
		return
	}
	e.lines = append(e.lines, domain.CartLine{ProductSnapshot: product, Quantity: quantity})
}

func (e *Engine) applySet(productID string, quantity int, product *domain.ProductSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexLocked(productID); i >= 0 {
		e.lines[i].Quantity = quantity
		return
	}
	if product != nil {
		e.lines = append(e.lines, domain.CartLine{ProductSnapshot: *product, Quantity: quantity})
	}
}

func (e *Engine) applyRemove(productID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i := e.indexLocked(productID); i >= 0 {
		e.lines = append(e.lines[:i:i], e.lines[i+1:]...)
	}
}

func (e *Engine) applyClear() {
	e.mu.Lock()
	e.lines = nil
	e.mu.Unlock()
}
