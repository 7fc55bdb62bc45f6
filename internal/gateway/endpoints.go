package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bandungraya/gudang/internal/models"
)

// Remote function names
const (
	FnAdminData        = "get-admin-data"
	FnArchivedData     = "get-archived-data"
	FnTransactions     = "manage-transactions"
	FnProducts         = "manage-products"
	FnVendors          = "manage-vendors"
	FnUsers            = "manage-users"
	FnReturns          = "manage-returns"
	FnProofs           = "manage-proofs"
	FnReports          = "manage-reports"
	FnOutlets          = "get-outlets"
	FnStockHistory     = "get-stock-history"
	FnValidateInvoice  = "validate-invoice"
	FnVerifySuperAdmin = "verify-super-admin"
)

// GetAdminData fetches the full snapshot of all collections
func (c *Client) GetAdminData(ctx context.Context) (models.Snapshot, error) {
	resp := c.Call(ctx, http.MethodGet, FnAdminData, nil)
	if resp.Err != nil {
		return nil, resp.Err
	}
	snap, err := models.DecodeSnapshot(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", FnAdminData, err)
	}
	return snap, nil
}

// ArchivedData fetches archived receivables and payables
func (c *Client) ArchivedData(ctx context.Context) (models.Snapshot, error) {
	resp := c.Call(ctx, http.MethodGet, FnArchivedData, nil)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return models.DecodeSnapshot(resp.Data)
}

// ManageTransaction sends a tagged transaction action with the method the
// action expects
func (c *Client) ManageTransaction(ctx context.Context, a models.TransactionAction) Response {
	return c.Call(ctx, a.Method(), FnTransactions, a)
}

// ArchiveTransaction archives (or, for an archived one, restores) a
// receivable or payable
func (c *Client) ArchiveTransaction(ctx context.Context, ref models.TransactionRef) Response {
	return c.Call(ctx, http.MethodDelete, FnTransactions, ref)
}

// TransactionDetails fetches a receivable or payable with its lines
func (c *Client) TransactionDetails(ctx context.Context, ref models.TransactionRef) (models.Record, error) {
	resp := c.Call(ctx, http.MethodGet, FnTransactions, ref)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return models.DecodeRecord(resp.Data)
}

// SearchLedger runs a server-side search over receivables or payables
func (c *Client) SearchLedger(ctx context.Context, q models.LedgerSearch) ([]models.Record, error) {
	resp := c.Call(ctx, http.MethodGet, FnTransactions, q)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return models.DecodeRecords(resp.Data)
}

// ProductPage is one page of the product catalog
type ProductPage struct {
	Products      []models.Record `json:"products"`
	TotalProducts int             `json:"total_products"`
}

// ListProducts fetches a page of products, optionally filtered by search
func (c *Client) ListProducts(ctx context.Context, page, limit int, search string) (*ProductPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if search != "" {
		q.Set("search", search)
	}
	var out ProductPage
	if err := c.Call(ctx, http.MethodGet, FnProducts, q).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct adds a product to the catalog
func (c *Client) CreateProduct(ctx context.Context, p models.NewProduct) Response {
	return c.Call(ctx, http.MethodPost, FnProducts, p)
}

// UpdateProduct patches product fields, including stock corrections
func (c *Client) UpdateProduct(ctx context.Context, u models.ProductUpdate) Response {
	return c.Call(ctx, http.MethodPut, FnProducts, u)
}

// DeleteProduct archives a product
func (c *Client) DeleteProduct(ctx context.Context, ref models.ProductRef) Response {
	return c.Call(ctx, http.MethodDelete, FnProducts, ref)
}

// ManageVendors sends a vendor action (get, add, update, delete). Only
// mutations are queued when offline.
func (c *Client) ManageVendors(ctx context.Context, r models.ManageRequest) Response {
	return c.manage(ctx, FnVendors, r)
}

// ManageUsers sends a user action (get, add, update, delete)
func (c *Client) ManageUsers(ctx context.Context, r models.ManageRequest) Response {
	return c.manage(ctx, FnUsers, r)
}

func (c *Client) manage(ctx context.Context, endpoint string, r models.ManageRequest) Response {
	if r.Action == models.ManageGet {
		return c.Fetch(ctx, http.MethodPost, endpoint, r)
	}
	return c.Call(ctx, http.MethodPost, endpoint, r)
}

// SubmitReturn records goods returned by an outlet
func (c *Client) SubmitReturn(ctx context.Context, r models.ReturnSubmission) Response {
	return c.Call(ctx, http.MethodPost, FnReturns, r)
}

// ProofUpload is the manage-proofs upload response
type ProofUpload struct {
	URL       string `json:"url"`
	NewStatus string `json:"newStatus"`
}

// UploadProof uploads a payment proof for a receivable or payable. The
// multipart body is never queued: when the server is unreachable the
// response carries ErrUnreachable.
func (c *Client) UploadProof(ctx context.Context, ledger models.LedgerType, id, filename string, file io.Reader) (*ProofUpload, Response) {
	resp := c.Upload(ctx, FnProofs, map[string]string{"id": id, "type": string(ledger)}, "file", filename, file)
	if resp.Err != nil {
		return nil, resp
	}
	var out ProofUpload
	if err := resp.Decode(&out); err != nil {
		resp.Err = err
		return nil, resp
	}
	return &out, resp
}

// DeleteProof removes a payment proof
func (c *Client) DeleteProof(ctx context.Context, ref models.ProofRef) Response {
	return c.Call(ctx, http.MethodDelete, FnProofs, ref)
}

// Upload posts a multipart form with one file part
func (c *Client) Upload(ctx context.Context, endpoint string, fields map[string]string, fileField, filename string, file io.Reader) Response {
	token, err := c.token(ctx)
	if err != nil {
		return Response{Err: err}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fileField, filename)
	if err != nil {
		return Response{Err: fmt.Errorf("create form file: %w", err)}
	}
	if _, err := io.Copy(part, file); err != nil {
		return Response{Err: fmt.Errorf("read upload: %w", err)}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return Response{Err: fmt.Errorf("write field %s: %w", k, err)}
		}
	}
	if err := w.Close(); err != nil {
		return Response{Err: fmt.Errorf("close form: %w", err)}
	}

	headers := c.headers(token)
	headers["Content-Type"] = w.FormDataContentType()
	target := c.BaseURL + "/" + strings.TrimLeft(endpoint, "/")
	return c.doRequest(ctx, http.MethodPost, target, headers, buf.Bytes())
}

// FinanceReport fetches report rows from manage-reports
func (c *Client) FinanceReport(ctx context.Context, r models.FinanceReportRequest) ([]models.Record, error) {
	r.Action = models.ReportFinance
	resp := c.Fetch(ctx, http.MethodPost, FnReports, r)
	if resp.Err != nil {
		return nil, resp.Err
	}
	return models.DecodeRecords(resp.Data)
}

// ReportTemplate reads a stored report template
func (c *Client) ReportTemplate(ctx context.Context, name string) (string, error) {
	var out struct {
		TemplateContent string `json:"template_content"`
	}
	req := models.TemplateRequest{Action: models.ReportGetTemplate, TemplateName: name}
	if err := c.Fetch(ctx, http.MethodPost, FnReports, req).Decode(&out); err != nil {
		return "", err
	}
	return out.TemplateContent, nil
}

// SaveReportTemplate stores a report template
func (c *Client) SaveReportTemplate(ctx context.Context, name, content string) Response {
	return c.Call(ctx, http.MethodPost, FnReports, models.TemplateRequest{
		Action:          models.ReportSaveTemplate,
		TemplateName:    name,
		TemplateContent: content,
	})
}

// Outlets lists outlet names
func (c *Client) Outlets(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.Call(ctx, http.MethodGet, FnOutlets, nil).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// StockHistory lists stock movements of a product
func (c *Client) StockHistory(ctx context.Context, productID string) ([]models.Record, error) {
	resp := c.Call(ctx, http.MethodGet, FnStockHistory, models.StockHistoryQuery{ProductID: models.ID(productID)})
	if resp.Err != nil {
		return nil, resp.Err
	}
	return models.DecodeRecords(resp.Data)
}

// ValidateInvoice reports whether a vendor nota number is already recorded
func (c *Client) ValidateInvoice(ctx context.Context, noNota, vendor string) (bool, error) {
	var out models.InvoiceValidation
	if err := c.Fetch(ctx, http.MethodPost, FnValidateInvoice, models.InvoiceCheck{NoNota: noNota, Vendor: vendor}).Decode(&out); err != nil {
		return false, err
	}
	return out.Exists, nil
}

// VerifySuperAdmin checks the super admin password
func (c *Client) VerifySuperAdmin(ctx context.Context, password string) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.Fetch(ctx, http.MethodPost, FnVerifySuperAdmin, map[string]string{"password": password}).Decode(&out); err != nil {
		return false, err
	}
	return out.Success, nil
}
