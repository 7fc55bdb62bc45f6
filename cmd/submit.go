package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bandungraya/gudang/internal/dateparse"
	"github.com/bandungraya/gudang/internal/models"
	"github.com/bandungraya/gudang/internal/output"
	"github.com/bandungraya/gudang/internal/state"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// itemSpec is one --item flag value: "<product-id>:<qty>[:<price>]"
type itemSpec struct {
	ProductID string
	Qty       decimal.Decimal
	Price     *decimal.Decimal
}

// itemList collects repeated --item flags
type itemList []itemSpec

var _ pflag.Value = (*itemList)(nil)

func (l *itemList) String() string {
	parts := make([]string, len(*l))
	for i, it := range *l {
		parts[i] = it.ProductID + ":" + it.Qty.String()
		if it.Price != nil {
			parts[i] += ":" + it.Price.String()
		}
	}
	return strings.Join(parts, ",")
}

func (l *itemList) Set(v string) error {
	fields := strings.Split(v, ":")
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("item %q: want <product-id>:<qty>[:<price>]", v)
	}
	id := strings.TrimSpace(fields[0])
	if id == "" {
		return fmt.Errorf("item %q: product id is required", v)
	}
	qty, err := parseQty(fields[1])
	if err != nil {
		return fmt.Errorf("item %q: qty: %w", v, err)
	}
	spec := itemSpec{ProductID: id, Qty: qty}
	if len(fields) == 3 {
		price, err := parseQty(fields[2])
		if err != nil {
			return fmt.Errorf("item %q: price: %w", v, err)
		}
		spec.Price = &price
	}
	*l = append(*l, spec)
	return nil
}

func (l *itemList) Type() string { return "id:qty[:price]" }

// fillSession starts a session of kind and adds every item. Prices left out
// come from the product: purchase price for nota, selling price otherwise.
// Returns need a known product. On any error the session is discarded.
func fillSession(st *state.Store, kind models.SessionKind, info map[string]string, items itemList) error {
	if len(items) == 0 {
		return errors.New("at least one --item is required")
	}
	if err := st.StartSession(kind, info); err != nil {
		return err
	}
	priceField := "harga_jual"
	if kind == models.SessionNota {
		priceField = "harga_beli"
	}
	for _, spec := range items {
		item := state.SessionItem{ProductID: spec.ProductID, Qty: spec.Qty}
		p, known := st.Find(models.Products, spec.ProductID)
		if known {
			item.Nama = p.String("nama")
			item.Unit = p.String("unit")
			item.Price = p.Decimal(priceField)
			if _, has := p["sisa_stok"]; has && kind == models.SessionPO {
				stock := p.Decimal("sisa_stok")
				item.StockSnapshot = &stock
			}
		} else if kind == models.SessionReturn {
			st.ClearSession(kind)
			return fmt.Errorf("product %s not found", spec.ProductID)
		}
		if spec.Price != nil {
			item.Price = *spec.Price
		}
		if _, err := st.AddSessionItem(kind, item); err != nil {
			st.ClearSession(kind)
			return err
		}
	}
	return nil
}

// submit fills a session, prints it and sends it
func submit(ctx context.Context, a *app, kind models.SessionKind, info map[string]string, items itemList, what string) error {
	if err := fillSession(a.state, kind, info, items); err != nil {
		return err
	}
	sess, _ := a.state.Session(kind)
	for _, it := range sess.Items {
		name := it.Nama
		if name == "" {
			name = it.ProductID
		}
		fmt.Printf("  %-24s %8s x %-14s = %s\n", name, output.FormatQty(it.Qty), output.FormatRupiah(it.Price), output.FormatRupiah(it.Total))
	}
	fmt.Printf("  %-24s %27s %s\n", "Total", "", output.FormatRupiah(sess.Total()))

	return reportResult(a.sync.SubmitSession(ctx, kind), what)
}

func dateFlag(cmd *cobra.Command, name string) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return "", nil
	}
	d, err := dateparse.ParseDate(v)
	if err != nil {
		return "", fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

var (
	notaItems  itemList
	poItems    itemList
	returItems itemList
)

var notaCmd = &cobra.Command{
	Use:     "nota",
	Aliases: []string{"barang-masuk"},
	Short:   "Record goods received from a vendor",
	GroupID: "transactions",
	Example: `  gudang nota --vendor "CV Maju" --no-nota INV-0012 --item 12:50 --item 14:10:8500`,
	RunE: func(cmd *cobra.Command, args []string) error {
		vendor, _ := cmd.Flags().GetString("vendor")
		noNota, _ := cmd.Flags().GetString("no-nota")
		force, _ := cmd.Flags().GetBool("force")
		tanggal, err := dateFlag(cmd, "tanggal")
		if err != nil {
			return err
		}
		jatuhTempo, err := dateFlag(cmd, "jatuh-tempo")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		if !force && a.state.Online() {
			exists, err := a.api.ValidateInvoice(ctx, strings.TrimSpace(noNota), strings.TrimSpace(vendor))
			if err != nil {
				output.Warning("could not check for a duplicate nota: %v", err)
			} else if exists {
				return fmt.Errorf("nota %s from %s is already recorded (use --force to send anyway)", noNota, vendor)
			}
		}

		info := map[string]string{
			state.InfoVendor:            vendor,
			state.InfoNoNota:            noNota,
			state.InfoTanggalNota:       tanggal,
			state.InfoTanggalJatuhTempo: jatuhTempo,
		}
		return submit(ctx, a, models.SessionNota, info, notaItems, fmt.Sprintf("Nota %s from %s", noNota, vendor))
	},
}

var poCmd = &cobra.Command{
	Use:     "po",
	Aliases: []string{"purchase-order"},
	Short:   "Create an outlet purchase order and its receivable",
	GroupID: "transactions",
	Example: `  gudang po --outlet "Outlet Dago" --kirim besok --item 12:5 --item 14:2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outlet, _ := cmd.Flags().GetString("outlet")
		if strings.TrimSpace(outlet) == "" {
			return errors.New("--outlet is required")
		}
		kirim, err := dateFlag(cmd, "kirim")
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		info := map[string]string{state.InfoOutlet: outlet, state.InfoTanggalKirim: kirim}
		return submit(ctx, a, models.SessionPO, info, poItems, fmt.Sprintf("Purchase order for %s", outlet))
	},
}

var returCmd = &cobra.Command{
	Use:     "retur",
	Aliases: []string{"return"},
	Short:   "Record goods returned by an outlet",
	GroupID: "transactions",
	Example: `  gudang retur --outlet "Outlet Dago" --catatan "kemasan rusak" --item 12:1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outlet, _ := cmd.Flags().GetString("outlet")
		if strings.TrimSpace(outlet) == "" {
			return errors.New("--outlet is required")
		}
		catatan, _ := cmd.Flags().GetString("catatan")
		tanggal, err := dateFlag(cmd, "tanggal")
		if err != nil {
			return err
		}
		if tanggal == "" {
			tanggal = dateparse.FormatDate(time.Now())
		}

		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		a.hydrate(ctx)

		info := map[string]string{state.InfoOutlet: outlet, state.InfoTanggal: tanggal, state.InfoCatatan: catatan}
		return submit(ctx, a, models.SessionReturn, info, returItems, fmt.Sprintf("Return from %s", outlet))
	},
}

func init() {
	notaCmd.Flags().String("vendor", "", "vendor name")
	notaCmd.Flags().String("no-nota", "", "vendor nota number")
	notaCmd.Flags().String("tanggal", "today", "nota date")
	notaCmd.Flags().String("jatuh-tempo", "", "due date (e.g. 2025-04-30 or +30d)")
	notaCmd.Flags().Bool("force", false, "skip the duplicate nota check")
	notaCmd.Flags().Var(&notaItems, "item", "line item <product-id>:<qty>[:<price>], repeatable")

	poCmd.Flags().String("outlet", "", "outlet name")
	poCmd.Flags().String("kirim", "", "delivery date")
	poCmd.Flags().Var(&poItems, "item", "line item <product-id>:<qty>[:<price>], repeatable")

	returCmd.Flags().String("outlet", "", "outlet name")
	returCmd.Flags().String("tanggal", "", "return date (default today)")
	returCmd.Flags().String("catatan", "", "note")
	returCmd.Flags().Var(&returItems, "item", "line item <product-id>:<qty>[:<price>], repeatable")

	rootCmd.AddCommand(notaCmd, poCmd, returCmd)
}
