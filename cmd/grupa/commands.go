package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/mmynk/grouporder/internal/export"
	"github.com/mmynk/grouporder/internal/local"
	"github.com/mmynk/grouporder/internal/menu"
	"github.com/mmynk/grouporder/internal/models"
	"github.com/mmynk/grouporder/internal/session"
)

// stdoutClipboard "copies" by printing; a terminal has no clipboard to share.
type stdoutClipboard struct{ w io.Writer }

func (c stdoutClipboard) WriteText(ctx context.Context, text string) error {
	_, err := fmt.Fprintln(c.w, text)
	return err
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func (a *app) session() *session.Controller {
	return session.New(a.remote, session.Environment{Clipboard: stdoutClipboard{a.stdout}, CoarsePointer: true}, session.Options{})
}

// open enters the group named by args[0]. A missing group is an error.
func (a *app) open(ctx context.Context, args []string) (*session.Controller, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, errors.New("group id required")
	}
	s := a.session()
	if err := s.Enter(ctx, args[0]); err != nil {
		return nil, err
	}
	if s.View().State == session.NotFound {
		return nil, fmt.Errorf("group %s not found; create one with: grupa new", args[0])
	}
	return s, nil
}

func (a *app) newGroup(ctx context.Context) error {
	s := a.session()
	if err := s.Enter(ctx, ""); err != nil {
		return err
	}
	id, err := s.CreateNewGroup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, id)
	return s.CopyLink(ctx, a.baseURL)
}

func (a *app) show(ctx context.Context, args []string) error {
	s, err := a.open(ctx, args)
	if err != nil {
		return err
	}
	orders := s.View().Orders
	if len(orders) == 0 {
		fmt.Fprintln(a.stdout, "Još nema narudžbi.")
		return nil
	}
	for i, o := range orders {
		fmt.Fprintf(a.stdout, "[%s] %s\n", export.Initial(o), export.Line(i+1, o))
	}
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	s, err := a.open(ctx, args)
	if err != nil {
		return err
	}
	return s.CopyExport(ctx)
}

func (a *app) link(ctx context.Context, args []string) error {
	s, err := a.open(ctx, args)
	if err != nil {
		return err
	}
	return s.CopyLink(ctx, a.baseURL)
}

// draftFlags binds the order form to command-line flags.
type draftFlags struct {
	name, category, size, sauce, adds string
	cheese                            bool
}

func (d *draftFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.name, "name", "", "your name or nickname")
	fs.StringVar(&d.category, "category", "", "kebab type: "+strings.Join(menu.Categories(), ", "))
	fs.StringVar(&d.size, "size", "", "size: "+strings.Join(menu.Sizes(), ", "))
	fs.StringVar(&d.sauce, "sauce", "", "sauce: "+strings.Join(menu.Sauces(), ", "))
	fs.StringVar(&d.adds, "adds", "", "comma-separated add-ons, or "+export.AllAddOnsToken+" for all")
	fs.BoolVar(&d.cheese, "cheese", false, "add cheese (pecivo, tortilja)")
}

// apply writes the flags that were set onto draft.
func (d *draftFlags) apply(fs *flag.FlagSet, draft *menu.Draft) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "name":
			draft.Name = d.name
		case "category":
			draft.SetCategory(d.category)
		case "size":
			draft.Size = d.size
		case "sauce":
			draft.Sauce = d.sauce
		case "cheese":
			draft.HasCheese = d.cheese
		case "adds":
			draft.Adds = parseAdds(d.adds)
		}
	})
	draft.Normalize()
}

func parseAdds(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return []string{}
	}
	if s == export.AllAddOnsToken {
		return menu.AddOns()
	}
	var adds []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			adds = append(adds, a)
		}
	}
	return adds
}

func (a *app) add(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("group id required")
	}
	groupID := args[0]

	fs := newFlagSet("grupa add", a.stderr)
	var flags draftFlags
	flags.register(fs)
	preset := fs.String("preset", "", "start from a saved preset (name or id)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var draft menu.Draft
	if *preset != "" {
		p, ok := a.presets.Find(*preset)
		if !ok {
			return fmt.Errorf("preset %q not found", *preset)
		}
		draft = local.PresetDraft(p)
	}
	flags.apply(fs, &draft)

	s, err := a.open(ctx, []string{groupID})
	if err != nil {
		return err
	}
	orders, err := s.SubmitDraft(ctx, draft)
	if err != nil {
		var validationErr *menu.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("%s (%s)", validationErr.Message, validationErr.Field)
		}
		return err
	}
	fmt.Fprintln(a.stdout, "Narudžba dodana!")
	fmt.Fprintln(a.stdout, export.Format(orders))
	return nil
}

func (a *app) preset(args []string) error {
	if len(args) == 0 {
		return errors.New("preset command required: save, list or delete")
	}
	switch args[0] {
	case "list":
		for _, p := range a.presets.List() {
			fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", p.ID, p.Name, describe(local.PresetDraft(p)))
		}
		return nil
	case "save":
		if len(args) < 2 || strings.HasPrefix(args[1], "-") {
			return errors.New("preset name required")
		}
		fs := newFlagSet("grupa preset save", a.stderr)
		var flags draftFlags
		flags.register(fs)
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}
		var draft menu.Draft
		flags.apply(fs, &draft)
		if err := validatePreset(draft); err != nil {
			return err
		}
		p, ok := a.presets.Save(local.NewPreset(args[1], draft))
		if !ok {
			return errors.New("failed to save preset")
		}
		fmt.Fprintf(a.stdout, "Recept spremljen: %s (%s)\n", p.Name, p.ID)
		return nil
	case "delete":
		if len(args) < 2 {
			return errors.New("preset name or id required")
		}
		p, ok := a.presets.Find(args[1])
		if !ok {
			return fmt.Errorf("preset %q not found", args[1])
		}
		if !a.presets.Delete(p.ID) {
			return errors.New("failed to delete preset")
		}
		return nil
	default:
		return fmt.Errorf("unknown preset command %q", args[0])
	}
}

// validatePreset checks a preset like an order, except that the participant
// name may be left for later.
func validatePreset(d menu.Draft) error {
	if d.Name == "" {
		d.Name = "-"
	}
	if err := d.Validate(); err != nil {
		var validationErr *menu.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("%s (%s)", validationErr.Message, validationErr.Field)
		}
		return err
	}
	return nil
}

// describe renders a draft the way it would appear in the SMS, without number or name.
func describe(d menu.Draft) string {
	o := models.Order{Category: d.Category, Size: d.Size, Sauce: d.Sauce, Adds: d.Adds}
	if menu.AllowsCheese(d.Category) {
		o.HasCheese = &d.HasCheese
	}
	line := export.Line(1, o)
	return strings.TrimPrefix(line, "1. ")
}
