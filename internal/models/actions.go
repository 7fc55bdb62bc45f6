package models

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
)

// TransactionAction is a payload for the manage-transactions function.
// The set of implementations is closed; each marshals with its action tag.
type TransactionAction interface {
	Action() string
	// Method is the HTTP method the function expects for this action
	Method() string
	transactionAction()
}

// Action tags accepted by manage-transactions
const (
	ActionIncomingGoods         = "process-incoming-goods"
	ActionUpdateStatus          = "update-status"
	ActionCreatePurchaseOrder   = "create_purchase_order"
	ActionUpdateFullTransaction = "update-full-transaction"
	ActionReceivableFromCart    = "create_receivable_from_cart"
)

// IncomingGoods records a vendor delivery (nota) and raises a payable
type IncomingGoods struct {
	Items             []IncomingGoodsItem `json:"items"`
	Vendor            VendorRef           `json:"vendor"`
	NoNota            string              `json:"noNota"`
	TanggalNota       string              `json:"tanggalNota"`
	TanggalJatuhTempo string              `json:"tanggalJatuhTempo"`
}

// IncomingGoodsItem is one line of a vendor nota
type IncomingGoodsItem struct {
	IDBarang ID              `json:"id_barang"`
	Qty      decimal.Decimal `json:"qty"`
	Harga    decimal.Decimal `json:"harga"`
	Total    decimal.Decimal `json:"total"`
}

// VendorRef names a vendor
type VendorRef struct {
	NamaVendor string `json:"nama_vendor"`
}

func (IncomingGoods) Action() string { return ActionIncomingGoods }
func (IncomingGoods) Method() string { return http.MethodPost }
func (IncomingGoods) transactionAction() {}
func (a IncomingGoods) MarshalJSON() ([]byte, error) {
	type plain IncomingGoods
	return json.Marshal(struct {
		Action string `json:"action"`
		plain
	}{a.Action(), plain(a)})
}

// UpdateStatus flips a receivable or payable between Lunas and Belum Lunas
type UpdateStatus struct {
	Type      LedgerType `json:"type"`
	ID        ID         `json:"id"`
	NewStatus string     `json:"newStatus"`
	BuktiURL  *string    `json:"buktiUrl"`
}

func (UpdateStatus) Action() string { return ActionUpdateStatus }
func (UpdateStatus) Method() string { return http.MethodPut }
func (UpdateStatus) transactionAction() {}
func (a UpdateStatus) MarshalJSON() ([]byte, error) {
	type plain UpdateStatus
	return json.Marshal(struct {
		Action string `json:"action"`
		plain
	}{a.Action(), plain(a)})
}

// PurchaseOrder creates an outlet order (and its receivable) from a PO session
type PurchaseOrder struct {
	Outlet       string              `json:"outlet"`
	TanggalKirim string              `json:"tanggalKirim,omitempty"`
	Items        []PurchaseOrderItem `json:"items"`
}

// PurchaseOrderItem is one line of a purchase order
type PurchaseOrderItem struct {
	ProductID ID              `json:"product_id"`
	Nama      string          `json:"nama,omitempty"`
	Unit      string          `json:"unit,omitempty"`
	HargaJual decimal.Decimal `json:"harga_jual"`
	SisaStok  decimal.Decimal `json:"sisa_stok"`
	Qty       decimal.Decimal `json:"qty"`
}

func (PurchaseOrder) Action() string { return ActionCreatePurchaseOrder }
func (PurchaseOrder) Method() string { return http.MethodPost }
func (PurchaseOrder) transactionAction() {}
func (a PurchaseOrder) MarshalJSON() ([]byte, error) {
	type plain PurchaseOrder
	return json.Marshal(struct {
		Action string `json:"action"`
		plain
	}{a.Action(), plain(a)})
}

// UpdateFullTransaction rewrites the header and lines of an existing
// receivable or payable
type UpdateFullTransaction struct {
	TransactionID   ID                `json:"transactionId"`
	TransactionType LedgerType        `json:"transactionType"`
	NewHeaderData   map[string]any    `json:"newHeaderData"`
	NewItems        []TransactionLine `json:"newItems"`
}

// TransactionLine is an item line of an edited transaction or a return
type TransactionLine struct {
	ProductID    ID              `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"price_per_unit"`
}

func (UpdateFullTransaction) Action() string { return ActionUpdateFullTransaction }
func (UpdateFullTransaction) Method() string { return http.MethodPut }
func (UpdateFullTransaction) transactionAction() {}
func (a UpdateFullTransaction) MarshalJSON() ([]byte, error) {
	type plain UpdateFullTransaction
	return json.Marshal(struct {
		Action string `json:"action"`
		plain
	}{a.Action(), plain(a)})
}

// ReceivableFromCart creates a receivable from an outlet user's cart
type ReceivableFromCart struct {
	CartItems    []CartItem `json:"cart_items"`
	DeliveryDate string     `json:"delivery_date"`
}

// CartItem is one product line of a cart
type CartItem struct {
	ID  ID              `json:"id"`
	Qty decimal.Decimal `json:"qty"`
}

func (ReceivableFromCart) Action() string { return ActionReceivableFromCart }
func (ReceivableFromCart) Method() string { return http.MethodPost }
func (ReceivableFromCart) transactionAction() {}
func (a ReceivableFromCart) MarshalJSON() ([]byte, error) {
	type plain ReceivableFromCart
	return json.Marshal(struct {
		Action string `json:"action"`
		plain
	}{a.Action(), plain(a)})
}

// TransactionRef identifies a receivable or payable. Sent with DELETE it
// archives the transaction; sent with GET it fetches its details.
type TransactionRef struct {
	Type LedgerType `json:"type"`
	ID   ID         `json:"id"`
}

// LedgerSearch is the manage-transactions GET query for server-side search
type LedgerSearch struct {
	Type       LedgerType `json:"type"`
	SearchTerm string     `json:"search_term"`
}

// ProductUpdate patches a product (manage-products PUT)
type ProductUpdate struct {
	ProductID ID             `json:"productId"`
	Updates   map[string]any `json:"updates"`
}

// NewProduct creates a product (manage-products POST)
type NewProduct struct {
	Nama       string          `json:"nama"`
	KodeProduk string          `json:"kode_produk"`
	Unit       string          `json:"unit"`
	HargaBeli  decimal.Decimal `json:"harga_beli"`
	SisaStok   decimal.Decimal `json:"sisa_stok"`
	Foto       string          `json:"foto,omitempty"`
}

// ProductRef identifies a product to archive (manage-products DELETE)
type ProductRef struct {
	ProductID ID `json:"productId"`
}

// Actions accepted by manage-users and manage-vendors
const (
	ManageGet    = "get"
	ManageAdd    = "add"
	ManageUpdate = "update"
	ManageDelete = "delete"
)

// ManageRequest is the action envelope of manage-users and manage-vendors
type ManageRequest struct {
	Action  string `json:"action"`
	Payload any    `json:"payload,omitempty"`
}

// ReturnSubmission records goods returned by an outlet (manage-returns)
type ReturnSubmission struct {
	Header ReturnHeader      `json:"header"`
	Items  []TransactionLine `json:"items"`
}

// ReturnHeader carries the return's outlet, date and note
type ReturnHeader struct {
	Outlet  string `json:"outlet"`
	Tanggal string `json:"tanggal"`
	Catatan string `json:"catatan"`
}

// ProofRef identifies a payment proof to delete (manage-proofs DELETE)
type ProofRef struct {
	Type     LedgerType `json:"type"`
	ID       ID         `json:"id"`
	BuktiURL string     `json:"buktiUrl"`
}

// Actions accepted by manage-reports
const (
	ReportFinance      = "get-finance-report"
	ReportGetTemplate  = "get-template"
	ReportSaveTemplate = "save-template"
)

// FinanceReportRequest asks manage-reports for report rows
type FinanceReportRequest struct {
	Action       string `json:"action"`
	ReportType   string `json:"report_type"`
	StartDate    string `json:"start_date,omitempty"`
	EndDate      string `json:"end_date,omitempty"`
	OutletName   string `json:"outlet_name,omitempty"`
	StatusFilter string `json:"status_filter,omitempty"`
}

// TemplateRequest reads or saves a report template
type TemplateRequest struct {
	Action          string `json:"action"`
	TemplateName    string `json:"template_name"`
	TemplateContent string `json:"template_content,omitempty"`
}

// InvoiceCheck asks validate-invoice whether a vendor nota already exists
type InvoiceCheck struct {
	NoNota string `json:"noNota"`
	Vendor string `json:"vendor"`
}

// InvoiceValidation is the validate-invoice response
type InvoiceValidation struct {
	Exists bool `json:"exists"`
}

// StockHistoryQuery is the get-stock-history GET query
type StockHistoryQuery struct {
	ProductID ID `json:"product_id"`
}
