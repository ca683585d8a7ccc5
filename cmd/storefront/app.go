package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"tienda-barrio/internal/cart"
	"tienda-barrio/internal/catalog"
	"tienda-barrio/internal/checkout"
	"tienda-barrio/internal/domain"
	"tienda-barrio/internal/format"
	"tienda-barrio/internal/hours"
)

const usage = `uso: storefront <comando> [opciones]

comandos:
  categories
  products  [-category slug] [-search texto] [-all]
  product   -id ID
  add       -product ID [-variant ID] [-qty N]
  cart
  update    -product ID [-variant ID] -qty N
  remove    -product ID [-variant ID]
  clear
  hours     [-watch]
  checkout  -name NOMBRE -phone CELULAR [-mode pickup|delivery] [-address DIR] [-notes TEXTO]
`

var errUsage = errors.New("comando inválido")

type categoryLister interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

// app is one storefront client process: a single cart store shared by every
// command it runs.
type app struct {
	out        io.Writer
	provider   *cart.Provider
	fetcher    *catalog.Fetcher
	categories categoryLister
	gate       hours.Gate
	now        func() time.Time
	launcher   checkout.Launcher
	number     string
	logger     zerolog.Logger

	// watchInterval is how often "hours -watch" re-checks. Zero means hours.DefaultInterval.
	watchInterval time.Duration
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	store, err := a.provider.Store()
	if err != nil {
		return err
	}
	ctx = cart.NewContext(ctx, store)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "categories":
		return a.listCategories(ctx)
	case "products":
		return a.products(ctx, rest)
	case "product":
		return a.product(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "cart":
		a.printCart(cart.MustFromContext(ctx).Cart())
		return nil
	case "update":
		return a.update(ctx, rest)
	case "remove":
		return a.remove(ctx, rest)
	case "clear":
		cart.MustFromContext(ctx).Clear(ctx)
		fmt.Fprintln(a.out, "Carrito vacío.")
		return nil
	case "hours":
		return a.hours(ctx, rest)
	case "checkout":
		return a.checkout(ctx, rest)
	}
	fmt.Fprint(a.out, usage)
	return fmt.Errorf("%w: %s", errUsage, cmd)
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func (a *app) listCategories(ctx context.Context) error {
	cats, err := a.categories.ListCategories(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("storefront.categories_failed")
		return errors.New("No pudimos cargar las categorías. Intenta de nuevo.")
	}
	for _, c := range cats {
		fmt.Fprintf(a.out, "%s  %s\n", c.Slug, c.Name)
	}
	return nil
}

func (a *app) products(ctx context.Context, args []string) error {
	fs := a.flags("products")
	category := fs.String("category", "", "slug de categoría")
	search := fs.String("search", "", "texto a buscar")
	all := fs.Bool("all", false, "incluir productos agotados")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter := catalog.Filter{Category: *category, Search: *search}
	if *all {
		available := false
		filter.Available = &available
	}
	st := a.fetcher.Load(ctx, filter)
	if st.Err != "" {
		return errors.New(st.Err)
	}
	if len(st.Products) == 0 {
		fmt.Fprintln(a.out, "No hay productos.")
		return nil
	}
	for _, p := range st.Products {
		fmt.Fprintf(a.out, "%s  %s  %s\n", p.ID, p.Name, listingPrice(p))
	}
	return nil
}

func listingPrice(p domain.Product) string {
	price, ok := p.DisplayPrice()
	switch {
	case !p.IsAvailable || !ok:
		return "(agotado)"
	case p.HasVariants:
		return "desde " + format.Price(price)
	}
	return format.Price(price)
}

func (a *app) product(ctx context.Context, args []string) error {
	fs := a.flags("product")
	id := fs.String("id", "", "id del producto")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: falta -id", errUsage)
	}

	ps := a.fetcher.Product(ctx, *id)
	if ps.Err != "" {
		return errors.New(ps.Err)
	}
	p := ps.Product
	fmt.Fprintf(a.out, "%s  %s\n", p.Name, listingPrice(*p))
	if p.Description != "" {
		fmt.Fprintln(a.out, p.Description)
	}
	for _, v := range p.Variants {
		status := ""
		if !v.IsAvailable {
			status = " (agotado)"
		}
		fmt.Fprintf(a.out, "  %s  %s - %s%s\n", v.ID, v.Name, format.Price(v.Price), status)
	}
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := a.flags("add")
	productID := fs.String("product", "", "id del producto")
	variantID := fs.String("variant", "", "id de la presentación")
	qty := fs.Int("qty", 1, "cantidad")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productID == "" {
		return fmt.Errorf("%w: falta -product", errUsage)
	}
	if *qty < 1 {
		return errors.New("La cantidad debe ser al menos 1.")
	}

	ps := a.fetcher.Product(ctx, *productID)
	if ps.Err != "" {
		return errors.New(ps.Err)
	}
	p := ps.Product
	if err := p.Purchasable(*variantID); err != nil {
		return errors.New(selectionMessage(err))
	}
	price, err := p.PriceFor(*variantID)
	if err != nil {
		return errors.New(selectionMessage(err))
	}

	in := cart.AddInput{
		ProductID:   p.ID,
		VariantID:   *variantID,
		ProductName: p.Name,
		UnitPrice:   price,
		Quantity:    *qty,
		ImageURL:    p.ImageURL,
		UnitKind:    p.UnitKind,
	}
	if v, ok := p.Variant(*variantID); ok {
		in.VariantName = v.Name
	}
	c := cart.MustFromContext(ctx).AddItem(ctx, in)
	fmt.Fprintf(a.out, "Agregado: %dx %s\n", *qty, lineName(in.ProductName, in.VariantName))
	a.printCart(c)
	return nil
}

func selectionMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnavailable):
		return "Este producto no está disponible."
	case errors.Is(err, domain.ErrVariantRequired):
		return "Selecciona una presentación con -variant."
	case errors.Is(err, domain.ErrVariantNotAllowed):
		return "Este producto no tiene presentaciones."
	case errors.Is(err, domain.ErrNotFound):
		return "Presentación no encontrada."
	case errors.Is(err, domain.ErrNoPrice):
		return "Este producto no tiene precio."
	}
	return err.Error()
}

func (a *app) update(ctx context.Context, args []string) error {
	fs := a.flags("update")
	productID := fs.String("product", "", "id del producto")
	variantID := fs.String("variant", "", "id de la presentación")
	qty := fs.Int("qty", -1, "nueva cantidad (0 elimina)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productID == "" || *qty < 0 {
		return fmt.Errorf("%w: update requiere -product y -qty", errUsage)
	}
	a.printCart(cart.MustFromContext(ctx).UpdateQuantity(ctx, *productID, *variantID, *qty))
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	fs := a.flags("remove")
	productID := fs.String("product", "", "id del producto")
	variantID := fs.String("variant", "", "id de la presentación")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *productID == "" {
		return fmt.Errorf("%w: falta -product", errUsage)
	}
	a.printCart(cart.MustFromContext(ctx).RemoveItem(ctx, *productID, *variantID))
	return nil
}

func (a *app) printCart(c cart.Cart) {
	if c.Empty() {
		fmt.Fprintln(a.out, "Tu carrito está vacío.")
		return
	}
	for _, l := range c.Items {
		variant := ""
		if l.VariantName != nil {
			variant = *l.VariantName
		}
		fmt.Fprintf(a.out, "• %dx %s (%s) - %s\n", l.Quantity, lineName(l.ProductName, variant), l.UnitKind.Label(), format.Price(l.Subtotal()))
	}
	fmt.Fprintf(a.out, "Artículos: %d\nTotal: %s\n", c.ItemCount, format.Price(c.Total))
}

func lineName(product, variant string) string {
	if variant == "" {
		return product
	}
	return product + " - " + variant
}

func (a *app) hours(ctx context.Context, args []string) error {
	fs := a.flags("hours")
	watch := fs.Bool("watch", false, "seguir mostrando cambios hasta Ctrl-C")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*watch {
		a.printHours(a.gate.Evaluate(a.now()))
		return nil
	}

	w := hours.NewWatcher(a.gate, a.watchInterval, a.now, a.logger)
	var (
		last    hours.Status
		printed bool
	)
	unsubscribe := w.Subscribe(func(st hours.Status) {
		if printed && st.Open == last.Open && st.ClosingSoon == last.ClosingSoon {
			return
		}
		last, printed = st, true
		a.printHours(st)
	})
	defer unsubscribe()
	w.Run(ctx)
	return nil
}

func (a *app) printHours(st hours.Status) {
	switch {
	case !st.Open:
		fmt.Fprintf(a.out, "Cerrado. Recibimos pedidos hasta las %d:00.\n", st.ClosingHour)
	case st.ClosingSoon:
		fmt.Fprintf(a.out, "Abierto. Cerramos en %d minutos.\n", st.MinutesUntilClose)
	default:
		fmt.Fprintf(a.out, "Abierto hasta las %d:00.\n", st.ClosingHour)
	}
}

func (a *app) checkout(ctx context.Context, args []string) error {
	fs := a.flags("checkout")
	var form checkout.Form
	mode := fs.String("mode", string(checkout.ModePickup), "pickup o delivery")
	fs.StringVar(&form.Name, "name", "", "nombre")
	fs.StringVar(&form.Phone, "phone", "", "celular")
	fs.StringVar(&form.Address, "address", "", "dirección de entrega")
	fs.StringVar(&form.Notes, "notes", "", "notas")
	if err := fs.Parse(args); err != nil {
		return err
	}
	form.Mode = checkout.DeliveryMode(strings.ToLower(*mode))

	flow := checkout.NewFlow(checkout.FlowConfig{
		Store:          cart.MustFromContext(ctx),
		Gate:           a.gate,
		Launcher:       a.launcher,
		WhatsAppNumber: a.number,
		Now:            a.now,
		Logger:         a.logger,
	})
	v := flow.Start()
	if v.Step == checkout.StepCart {
		return errors.New("Tu carrito está vacío.")
	}
	if v.Hours.Open && v.Hours.ClosingSoon {
		a.printHours(v.Hours)
	}
	flow.Update(form)

	link, err := flow.Submit(ctx)
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		fields := make([]string, 0, len(verr.Fields))
		for f := range verr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(a.out, "%s: %s\n", f, verr.Fields[f])
		}
		return errors.New("Revisa los datos del pedido.")
	case errors.Is(err, checkout.ErrEmptyCart):
		return errors.New("Tu carrito está vacío.")
	case err != nil:
		if notice := flow.View().Notice; notice != "" {
			return errors.New(notice)
		}
		return err
	}
	fmt.Fprintf(a.out, "¡Pedido listo! Si WhatsApp no se abrió, usa este enlace:\n%s\n", link)
	return nil
}
