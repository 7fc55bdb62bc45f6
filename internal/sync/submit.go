package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bandungraya/gudang/internal/gateway"
	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/state"
	"github.com/shopspring/decimal"
)

// ErrEmptySession is returned when submitting a session without items
var ErrEmptySession = errors.New("session has no items")

// SubmitSession sends the active session of kind to the server. The
// session is cleared when the server accepts it or it is queued for later
// delivery; on any other outcome it stays active so the user can retry.
func (c *Coordinator) SubmitSession(ctx context.Context, kind models.SessionKind) gateway.Response {
	sess, ok := c.state.Session(kind)
	if !ok {
		return gateway.Response{Err: fmt.Errorf("%w: %s", state.ErrNoActiveSession, kind)}
	}
	if len(sess.Items) == 0 {
		return gateway.Response{Err: fmt.Errorf("%w: %s", ErrEmptySession, kind)}
	}

	var resp gateway.Response
	switch kind {
	case models.SessionNota:
		resp = c.api.ManageTransaction(ctx, IncomingGoodsFrom(sess))
	case models.SessionPO:
		if sess.Info[state.InfoOutlet] == "" {
			return gateway.Response{Err: fmt.Errorf("%w: outlet is required", state.ErrInvalidInput)}
		}
		resp = c.api.ManageTransaction(ctx, PurchaseOrderFrom(sess))
	case models.SessionReturn:
		if sess.Info[state.InfoOutlet] == "" {
			return gateway.Response{Err: fmt.Errorf("%w: outlet is required", state.ErrInvalidInput)}
		}
		resp = c.api.SubmitReturn(ctx, ReturnFrom(sess))
	default:
		return gateway.Response{Err: fmt.Errorf("%w: unknown session kind %q", state.ErrInvalidInput, kind)}
	}

	if resp.Err != nil {
		slog.Debug("sync: submit failed", "kind", kind, "err", resp.Err)
		return resp
	}
	c.state.ClearSession(kind)
	if resp.Queued {
		c.RequestBackgroundSync()
	}
	return resp
}

// IncomingGoodsFrom builds the nota payload of a session
func IncomingGoodsFrom(s *state.Session) models.IncomingGoods {
	a := models.IncomingGoods{
		Vendor:            models.VendorRef{NamaVendor: s.Info[state.InfoVendor]},
		NoNota:            s.Info[state.InfoNoNota],
		TanggalNota:       s.Info[state.InfoTanggalNota],
		TanggalJatuhTempo: s.Info[state.InfoTanggalJatuhTempo],
		Items:             make([]models.IncomingGoodsItem, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		a.Items = append(a.Items, models.IncomingGoodsItem{
			IDBarang: models.ID(it.ProductID),
			Qty:      it.Qty,
			Harga:    it.Price,
			Total:    it.Total,
		})
	}
	return a
}

// PurchaseOrderFrom builds the purchase order payload of a session
func PurchaseOrderFrom(s *state.Session) models.PurchaseOrder {
	a := models.PurchaseOrder{
		Outlet:       s.Info[state.InfoOutlet],
		TanggalKirim: s.Info[state.InfoTanggalKirim],
		Items:        make([]models.PurchaseOrderItem, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		stock := decimal.Zero
		if it.StockSnapshot != nil {
			stock = *it.StockSnapshot
		}
		a.Items = append(a.Items, models.PurchaseOrderItem{
			ProductID: models.ID(it.ProductID),
			Nama:      it.Nama,
			Unit:      it.Unit,
			HargaJual: it.Price,
			SisaStok:  stock,
			Qty:       it.Qty,
		})
	}
	return a
}

// ReturnFrom builds the return payload of a session
func ReturnFrom(s *state.Session) models.ReturnSubmission {
	r := models.ReturnSubmission{
		Header: models.ReturnHeader{
			Outlet:  s.Info[state.InfoOutlet],
			Tanggal: s.Info[state.InfoTanggal],
			Catatan: s.Info[state.InfoCatatan],
		},
		Items: make([]models.TransactionLine, 0, len(s.Items)),
	}
	for _, it := range s.Items {
		r.Items = append(r.Items, models.TransactionLine{
			ProductID:    models.ID(it.ProductID),
			Quantity:     it.Qty,
			PricePerUnit: it.Price,
		})
	}
	return r
}
