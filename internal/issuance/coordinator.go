// Package issuance orchestrates the vale issuance pipeline: validate the
// transition, derive completion quantities, persist, embed the verification
// code, render the copy and hand it to delivery.
package issuance

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/obralink/vales/internal/delivery"
	"github.com/obralink/vales/internal/document"
	"github.com/obralink/vales/internal/domain/entity"
	"github.com/obralink/vales/internal/domain/workflow"
	"github.com/obralink/vales/internal/rental"
)

// VoucherStore is the data collaborator surface the coordinator needs.
type VoucherStore interface {
	GetByID(ctx context.Context, id int64) (*entity.Voucher, error)
	GetRentalDetail(ctx context.Context, voucherID int64) (*entity.RentalDetail, error)
	GetMaterialDetail(ctx context.Context, voucherID int64) (*entity.MaterialDetail, error)
	CloseRental(ctx context.Context, voucherID int64, c rental.Closure, newState string) error
	UpdateState(ctx context.Context, voucherID int64, state string) error
}

// Embedder produces the verification image for a folio
type Embedder interface {
	Embed(ctx context.Context, folio string) ([]byte, error)
}

// Renderer turns a voucher snapshot into a copy-colored artifact
type Renderer interface {
	Render(v *entity.Voucher, rd *entity.RentalDetail, md *entity.MaterialDetail, copyColor entity.CopyColor, qrPNG []byte) (*document.Artifact, error)
}

// Inspector checks a rendered artifact before it leaves the pipeline
type Inspector interface {
	ConfirmFolio(artifact *document.Artifact, folio string) error
}

// Request carries one issuance invocation.
type Request struct {
	VoucherID int64
	Closure   *rental.CloseInput
	Copy      entity.CopyColor
}

// Result reports a completed issuance.
type Result struct {
	Folio    string
	State    string
	Filename string
	Bytes    int
}

// Coordinator drives the issuance pipeline. At most one issuance per voucher
// id runs at a time; this is a local re-entrancy guard against duplicate user
// action, not a distributed lock.
type Coordinator struct {
	store     VoucherStore
	embedder  Embedder
	renderer  Renderer
	inspector Inspector
	deliverer delivery.Deliverer
	logger    *zap.Logger

	mu       sync.Mutex
	inFlight map[int64]bool
}

// NewCoordinator creates an issuance coordinator
func NewCoordinator(
	store VoucherStore,
	embedder Embedder,
	renderer Renderer,
	inspector Inspector,
	deliverer delivery.Deliverer,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		store:     store,
		embedder:  embedder,
		renderer:  renderer,
		inspector: inspector,
		deliverer: deliverer,
		logger:    logger,
		inFlight:  make(map[int64]bool),
	}
}

// Issue runs the full pipeline for one voucher. Persistence is the single
// commit point: everything after it is regenerable from persisted data, so a
// failed issuance can be retried whole without leaving partial state behind.
func (c *Coordinator) Issue(ctx context.Context, req Request) (*Result, error) {
	if err := c.acquire(req.VoucherID); err != nil {
		return nil, err
	}
	defer c.release(req.VoucherID)

	c.logger.Info("Starting issuance",
		zap.Int64("voucher_id", req.VoucherID),
		zap.String("copy", string(req.Copy)),
		zap.Bool("closing", req.Closure != nil))

	voucher, rentalDetail, materialDetail, err := c.hydrate(ctx, req.VoucherID)
	if err != nil {
		return nil, err
	}

	if req.Closure != nil {
		if err := c.close(ctx, voucher, rentalDetail, *req.Closure); err != nil {
			return nil, err
		}
		// Read back what was written; the render step must never see a
		// stale snapshot.
		voucher, rentalDetail, materialDetail, err = c.hydrate(ctx, req.VoucherID)
		if err != nil {
			return nil, err
		}
	} else if err := c.issueDraft(ctx, voucher); err != nil {
		return nil, err
	} else if voucher.State == workflow.StateDraft.String() {
		voucher, rentalDetail, materialDetail, err = c.hydrate(ctx, req.VoucherID)
		if err != nil {
			return nil, err
		}
	}

	// Verification image first: issuance fails closed without it, no
	// placeholder is ever rendered.
	qrPNG, err := c.embedder.Embed(ctx, voucher.Folio)
	if err != nil {
		return nil, err
	}

	artifact, err := c.renderer.Render(voucher, rentalDetail, materialDetail, req.Copy, qrPNG)
	if err != nil {
		return nil, fmt.Errorf("failed to render document: %w", err)
	}

	if err := c.inspector.ConfirmFolio(artifact, voucher.Folio); err != nil {
		return nil, fmt.Errorf("rendered document rejected: %w", err)
	}

	if err := c.deliverer.Deliver(ctx, artifact.Filename, artifact.Content); err != nil {
		// Document generation is not repeated on retry of delivery alone;
		// re-running Issue re-renders deterministically from persisted data.
		return nil, err
	}

	c.logger.Info("Issuance completed",
		zap.String("folio", voucher.Folio),
		zap.String("state", voucher.State),
		zap.String("filename", artifact.Filename))

	return &Result{
		Folio:    voucher.Folio,
		State:    voucher.State,
		Filename: artifact.Filename,
		Bytes:    len(artifact.Content),
	}, nil
}

// Close validates and persists a rental closure without generating a
// document. Used when the capture happens ahead of printing.
func (c *Coordinator) Close(ctx context.Context, voucherID int64, in rental.CloseInput) error {
	if err := c.acquire(voucherID); err != nil {
		return err
	}
	defer c.release(voucherID)

	voucher, rentalDetail, _, err := c.hydrate(ctx, voucherID)
	if err != nil {
		return err
	}
	return c.close(ctx, voucher, rentalDetail, in)
}

func (c *Coordinator) hydrate(ctx context.Context, voucherID int64) (*entity.Voucher, *entity.RentalDetail, *entity.MaterialDetail, error) {
	voucher, err := c.store.GetByID(ctx, voucherID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if voucher == nil {
		return nil, nil, nil, fmt.Errorf("%w: id %d", ErrVoucherNotFound, voucherID)
	}

	var rentalDetail *entity.RentalDetail
	var materialDetail *entity.MaterialDetail
	switch voucher.Type {
	case entity.VoucherTypeRental:
		rentalDetail, err = c.store.GetRentalDetail(ctx, voucherID)
	case entity.VoucherTypeMaterial:
		materialDetail, err = c.store.GetMaterialDetail(ctx, voucherID)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return voucher, rentalDetail, materialDetail, nil
}

// close validates the transition and writes detail+state as one operation
func (c *Coordinator) close(ctx context.Context, voucher *entity.Voucher, detail *entity.RentalDetail, in rental.CloseInput) error {
	if voucher.Type != entity.VoucherTypeRental || detail == nil {
		return fmt.Errorf("%w: voucher %s is not a rental", rental.ErrInvalidCompletionInput, voucher.Folio)
	}

	// A re-triggered issuance carries the same closure that already committed;
	// the persist step is done, only the regenerable steps remain.
	if rental.Applied(detail, in) {
		c.logger.Info("Closure already persisted, skipping",
			zap.String("folio", voucher.Folio))
		return nil
	}

	// Calculator first: its rejection is surfaced verbatim, user-correctable.
	closure, err := rental.Close(detail, in)
	if err != nil {
		return err
	}

	state := workflow.EffectiveState(workflow.State(voucher.State), detail)
	machine, err := workflow.NewValeMachine(voucher.Type, state, workflow.ValeGuards{
		CloseAccepted: func(ctx context.Context) bool { return rental.Accepts(detail, in) },
	})
	if err != nil {
		return fmt.Errorf("voucher %s: %w", voucher.Folio, err)
	}
	if err := machine.Fire(ctx, workflow.TriggerClose); err != nil {
		return fmt.Errorf("voucher %s: %w", voucher.Folio, err)
	}

	if err := c.store.CloseRental(ctx, voucher.ID, closure, machine.State().String()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	c.logger.Info("Rental closed",
		zap.String("folio", voucher.Folio),
		zap.Float64("hours", closure.Hours),
		zap.Int("days", closure.Days))
	return nil
}

// issueDraft advances a draft voucher to ISSUED; anything past DRAFT is left
// untouched so re-issuing a completed voucher stays idempotent.
func (c *Coordinator) issueDraft(ctx context.Context, voucher *entity.Voucher) error {
	if voucher.State != workflow.StateDraft.String() {
		return nil
	}

	machine, err := workflow.NewValeMachine(voucher.Type, workflow.StateDraft, workflow.ValeGuards{})
	if err != nil {
		return fmt.Errorf("voucher %s: %w", voucher.Folio, err)
	}
	if err := machine.Fire(ctx, workflow.TriggerIssue); err != nil {
		return fmt.Errorf("voucher %s: %w", voucher.Folio, err)
	}

	if err := c.store.UpdateState(ctx, voucher.ID, machine.State().String()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return nil
}

func (c *Coordinator) acquire(voucherID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[voucherID] {
		return fmt.Errorf("%w: id %d", ErrIssuanceInFlight, voucherID)
	}
	c.inFlight[voucherID] = true
	return nil
}

func (c *Coordinator) release(voucherID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, voucherID)
}
