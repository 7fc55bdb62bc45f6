package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/state"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var productsCmd = &cobra.Command{
	Use:     "products",
	Aliases: []string{"produk"},
	Short:   "List and edit products",
	GroupID: "data",
}

var productsListCmd = &cobra.Command{
	Use:     "list [query]",
	Aliases: []string{"ls"},
	Short:   "List products, fuzzy matched on name and code",
	Long: `List products from the local data, fuzzy matched on name and code.

With --server the catalog is paged on the server using --page and
--limit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if server, _ := cmd.Flags().GetBool("server"); server {
			if err := a.requireServer(); err != nil {
				return err
			}
			pageNo, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			page, err := a.api.ListProducts(ctx, pageNo, limit, strings.Join(args, " "))
			if err != nil {
				return fail("list products: %v", err)
			}
			if err := printRecords(cmd, page.Products, output.FormatProductLine, "No products."); err != nil {
				return err
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); !jsonOut && limit > 0 {
				pages := (page.TotalProducts + limit - 1) / limit
				fmt.Printf("\nPage %d of %d, %d products\n", pageNo, max(pages, 1), page.TotalProducts)
			}
			return nil
		}

		a.hydrate(ctx)
		stock, _ := cmd.Flags().GetString("stock")
		rows := a.state.Search(models.Products, strings.Join(args, " "), state.Filter{Status: stock})
		return printRecords(cmd, rows, output.FormatProductLine, "No products.")
	},
}

// printRecords prints rows as JSON with --json, one line each otherwise
func printRecords(cmd *cobra.Command, rows []models.Record, line func(models.Record) string, empty string) error {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		if rows == nil {
			rows = []models.Record{}
		}
		return output.JSON(rows)
	}
	if len(rows) == 0 {
		fmt.Println(empty)
		return nil
	}
	for _, r := range rows {
		fmt.Println(line(r))
	}
	return nil
}

var productsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show every field of a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		p, ok := a.state.Find(models.Products, args[0])
		if !ok {
			return fmt.Errorf("product %s not found", args[0])
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(p)
		}
		printRecord(p)
		return nil
	},
}

func printRecord(r models.Record) {
	keys := r.SortedKeys()
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	for _, k := range keys {
		v := r[k]
		switch v.(type) {
		case map[string]any, []any:
			data, _ := json.Marshal(v)
			v = string(data)
		case nil:
			v = "-"
		}
		fmt.Printf("%-*s  %v\n", width, k, v)
	}
}

var productsStockCmd = &cobra.Command{
	Use:   "stock <id> <qty>",
	Short: "Reset a product's opening and remaining stock",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, err := parseQty(args[1])
		if err != nil {
			return err
		}
		if qty.IsNegative() {
			return fmt.Errorf("stock must not be negative")
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		id := args[0]
		n := json.Number(qty.String())
		resp := a.api.UpdateProduct(ctx, models.ProductUpdate{
			ProductID: models.ID(id),
			Updates:   map[string]any{"stok_awal": n, "sisa_stok": n},
		})
		if resp.Err == nil {
			a.state.UpdateProductStock(id, qty)
		}
		return reportResult(resp, fmt.Sprintf("Stock of product %s set to %s", id, qty))
	},
}

var productsAddCmd = &cobra.Command{
	Use:   "add <nama>",
	Short: "Create a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")
		unit, _ := cmd.Flags().GetString("unit")
		priceStr, _ := cmd.Flags().GetString("price")
		stockStr, _ := cmd.Flags().GetString("stock")

		price, err := parseQty(priceStr)
		if err != nil {
			return fmt.Errorf("--price: %w", err)
		}
		stock, err := parseQty(stockStr)
		if err != nil {
			return fmt.Errorf("--stock: %w", err)
		}
		nama := strings.TrimSpace(args[0])
		if nama == "" || strings.TrimSpace(code) == "" {
			return fmt.Errorf("name and --code are required")
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.api.CreateProduct(ctx, models.NewProduct{
			Nama:       nama,
			KodeProduk: code,
			Unit:       unit,
			HargaBeli:  price,
			SisaStok:   stock,
		})
		return reportResult(resp, fmt.Sprintf("Product %s created", nama))
	},
}

var productsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Archive a product",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.api.DeleteProduct(ctx, models.ProductRef{ProductID: models.ID(args[0])})
		return reportResult(resp, fmt.Sprintf("Product %s archived", args[0]))
	},
}

var productsHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show stock movements of a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireServer(); err != nil {
			return err
		}

		rows, err := a.api.StockHistory(ctx, args[0])
		if err != nil {
			return fail("stock history: %v", err)
		}
		return printRecords(cmd, rows, formatMovement, "No stock movements.")
	},
}

func formatMovement(r models.Record) string {
	when := r.String("tanggal")
	if when == "" {
		when = r.String("created_at")
	}
	if t, ok := r.Time("tanggal"); ok {
		when = t.Format("2006-01-02")
	}
	parts := []string{when}
	for _, f := range []string{"tipe", "type", "keterangan"} {
		if v := r.String(f); v != "" {
			parts = append(parts, v)
		}
	}
	if _, ok := r["qty"]; ok {
		parts = append(parts, output.FormatQty(r.Decimal("qty")))
	}
	return strings.Join(parts, "  ")
}

// parseQty parses a decimal amount. A comma is accepted as decimal mark.
func parseQty(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q", s)
	}
	return d, nil
}

func init() {
	productsListCmd.Flags().String("stock", "", "stock filter: all, habis, rendah")
	productsListCmd.Flags().Bool("json", false, "output JSON")
	productsListCmd.Flags().Bool("server", false, "page through the catalog on the server instead of the local data")
	productsListCmd.Flags().Int("page", 1, "page number with --server")
	productsListCmd.Flags().Int("limit", 20, "page size with --server")
	productsShowCmd.Flags().Bool("json", false, "output JSON")
	productsHistoryCmd.Flags().Bool("json", false, "output JSON")

	productsAddCmd.Flags().String("code", "", "product code")
	productsAddCmd.Flags().String("unit", "pcs", "unit of measure")
	productsAddCmd.Flags().String("price", "0", "purchase price")
	productsAddCmd.Flags().String("stock", "0", "opening stock")

	productsCmd.AddCommand(productsListCmd, productsShowCmd, productsStockCmd, productsAddCmd, productsDeleteCmd, productsHistoryCmd)
	rootCmd.AddCommand(productsCmd)
}
