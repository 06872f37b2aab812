package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/jrsteele09/evcharge-client/apiclient"
	"github.com/jrsteele09/evcharge-client/auth"
	"github.com/jrsteele09/evcharge-client/chargers"
	internalerrors "github.com/jrsteele09/evcharge-client/internal/errors"
	"github.com/jrsteele09/evcharge-client/internal/utils"
	"github.com/jrsteele09/evcharge-client/routes"
	"github.com/jrsteele09/evcharge-client/users"
)

type command struct {
	name    string
	args    string
	summary string
	nargs   int
	flags   func(fs *pflag.FlagSet)
	run     func(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error
}

var commands = []command{
	{name: "login", summary: "Sign in and store the session", flags: loginFlags, run: runLogin},
	{name: "register", summary: "Create a USER or HOST account", flags: registerFlags, run: runRegister},
	{name: "logout", summary: "Forget the stored session", run: runLogout},
	{name: "whoami", summary: "Show the stored identity", run: runWhoami},
	{name: "profile", summary: "Fetch the account profile from the server", run: runProfile},
	{name: "open", args: "<path>", nargs: 1, summary: "Resolve a dashboard path for the current session", run: runOpen},
	{name: "chargers", summary: "List or search chargers", flags: searchFlags, run: runChargers},
	{name: "charger", args: "<id>", nargs: 1, summary: "Show one charger", run: runCharger},
	{name: "charger-add", summary: "Add a charger (hosts)", flags: chargerFormFlags, run: runChargerAdd},
	{name: "charger-edit", args: "<id>", nargs: 1, summary: "Edit a charger (hosts)", flags: chargerEditFlags, run: runChargerEdit},
	{name: "charger-delete", args: "<id>", nargs: 1, summary: "Delete a charger (hosts)", run: runChargerDelete},
	{name: "hosts-pending", summary: "List hosts awaiting approval (admins)", run: runHostsPending},
	{name: "host-approve", args: "<id>", nargs: 1, summary: "Approve a pending host (admins)", run: runHostApprove},
	{name: "host-reject", args: "<id>", nargs: 1, summary: "Reject a pending host (admins)", run: runHostReject},
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func (c command) execute(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet(c.name, pflag.ContinueOnError)
	if c.flags != nil {
		c.flags(fs)
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() != c.nargs {
		return fmt.Errorf("usage: evcharge %s %s", c.name, c.args)
	}

	if err := c.run(ctx, a, fs, fs.Args()); err != nil {
		if internalerrors.Is(err, apiclient.ErrAuthExpired) && a.redirectedTo != "" {
			return fmt.Errorf("not logged in, continue at %s", a.redirectedTo)
		}
		return errors.New(apiclient.UserMessage(err, err.Error()))
	}
	return nil
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: evcharge [global flags] <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	tw := newTable(w)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s %s\t%s\n", c.name, c.args, c.summary)
	}
	_ = tw.Flush()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fmt.Fprint(w, global.FlagUsages())
}

func loginFlags(fs *pflag.FlagSet) {
	fs.String("email", "", "account email")
	fs.String("password", "", "password, read from stdin when omitted")
}

func runLogin(ctx context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
	email, _ := fs.GetString("email")
	password, _ := fs.GetString("password")
	if password == "" {
		var err error
		if password, err = prompt(os.Stdin, a.out, "Password: "); err != nil {
			return err
		}
	}

	res, err := a.auth.Login(ctx, email, password)
	if err != nil {
		if internalerrors.Is(err, apiclient.ErrUnauthorized) {
			return errors.New(apiclient.UserMessage(err, auth.DefaultLoginFailure))
		}
		return err
	}
	if res.Status == auth.LoginPending {
		fmt.Fprintln(a.out, res.Message)
		return nil
	}

	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", res.Identity.FullName(), res.Identity.Role)
	return describeDashboard(a, res.Identity.Role, res.Redirect)
}

func registerFlags(fs *pflag.FlagSet) {
	fs.String("first-name", "", "first name")
	fs.String("last-name", "", "last name")
	fs.String("email", "", "email")
	fs.String("phone", "", "phone number")
	fs.String("password", "", "password, read from stdin when omitted")
	fs.String("role", string(users.RoleUser), "USER or HOST")
}

func runRegister(ctx context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
	reg := auth.Registration{}
	reg.FirstName, _ = fs.GetString("first-name")
	reg.LastName, _ = fs.GetString("last-name")
	reg.Email, _ = fs.GetString("email")
	reg.Phone, _ = fs.GetString("phone")
	reg.Password, _ = fs.GetString("password")
	role, _ := fs.GetString("role")
	reg.Role = users.Role(role)

	if reg.Password == "" {
		var err error
		if reg.Password, err = prompt(os.Stdin, a.out, "Password: "); err != nil {
			return err
		}
	}

	res, err := a.auth.Register(ctx, reg)
	if err != nil {
		return errors.New(apiclient.UserMessage(err, auth.DefaultRegisterFailure))
	}
	fmt.Fprintln(a.out, res.Message)
	return nil
}

func runLogout(ctx context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
	to, err := a.auth.Logout(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged out (%s)\n", to)
	return nil
}

func runWhoami(ctx context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
	s, err := a.auth.Current(ctx)
	if internalerrors.Is(err, internalerrors.ErrNoSession) {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}
	if err != nil {
		return err
	}

	id := s.Identity
	tw := newTable(a.out)
	fmt.Fprintf(tw, "Name\t%s\n", id.FullName())
	fmt.Fprintf(tw, "Email\t%s\n", id.Email)
	fmt.Fprintf(tw, "Phone\t%s\n", id.Phone)
	fmt.Fprintf(tw, "Role\t%s\n", id.Role)
	if created, ok := id.Created(); ok {
		fmt.Fprintf(tw, "Member since\t%s\n", created.Format("2 Jan 2006"))
	}
	return tw.Flush()
}

func runProfile(ctx context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
	p, err := a.auth.Profile(ctx)
	if err != nil {
		return err
	}
	tw := newTable(a.out)
	fmt.Fprintf(tw, "ID\t%d\n", p.ID)
	fmt.Fprintf(tw, "Name\t%s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(tw, "Email\t%s\n", p.Email)
	fmt.Fprintf(tw, "Phone\t%s\n", p.Phone)
	fmt.Fprintf(tw, "Role\t%s\n", p.Role)
	fmt.Fprintf(tw, "Created\t%s\n", p.CreatedAt)
	return tw.Flush()
}

func runOpen(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
	d, err := a.guard.Navigate(ctx, args[0])
	if err != nil {
		return err
	}
	if !d.Allowed {
		fmt.Fprintf(a.out, "Redirected to %s\n", d.Redirect)
	}
	if d.Session.Identity.Role == "" {
		fmt.Fprintf(a.out, "Opened %s\n", d.Target())
		return nil
	}
	return describeDashboard(a, d.Session.Identity.Role, d.Target())
}

func describeDashboard(a *app, role users.Role, path string) error {
	section, param := routes.SectionForPath(role, path)
	if section == "" {
		fmt.Fprintf(a.out, "Opened %s\n", path)
		return nil
	}
	fmt.Fprintf(a.out, "Opened %s, section %s", path, section)
	if param != "" {
		fmt.Fprintf(a.out, " (%s)", param)
	}
	fmt.Fprintln(a.out)

	names := make([]string, 0)
	for _, s := range routes.Sections(role) {
		names = append(names, string(s))
	}
	fmt.Fprintf(a.out, "Sections: %s\n", strings.Join(names, ", "))
	return nil
}

func searchFlags(fs *pflag.FlagSet) {
	fs.String("brand", "", "brand contains")
	fs.String("location", "", "location contains")
	fs.String("min-price", "", "minimum price per kWh")
	fs.String("max-price", "", "maximum price per kWh")
}

func runChargers(ctx context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
	var f chargers.Filter
	f.Brand, _ = fs.GetString("brand")
	f.Location, _ = fs.GetString("location")

	var err error
	minPrice, _ := fs.GetString("min-price")
	if f.MinPrice, err = utils.ParseOptionalFloat(minPrice); err != nil {
		return fmt.Errorf("--min-price: %w", err)
	}
	maxPrice, _ := fs.GetString("max-price")
	if f.MaxPrice, err = utils.ParseOptionalFloat(maxPrice); err != nil {
		return fmt.Errorf("--max-price: %w", err)
	}

	list, err := a.chargers.Search(ctx, f)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No chargers found")
		return nil
	}

	tw := newTable(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tLOCATION\tPRICE/KWH\tIMAGES")
	for _, c := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", c.ID, c.Name, c.Brand, c.Location, formatPrice(c.PricePerKwh), len(c.Images))
	}
	return tw.Flush()
}

func runCharger(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	c, err := a.chargers.Get(ctx, id)
	if err != nil {
		return err
	}

	tw := newTable(a.out)
	fmt.Fprintf(tw, "Name\t%s\n", c.Name)
	fmt.Fprintf(tw, "Brand\t%s\n", c.Brand)
	fmt.Fprintf(tw, "Location\t%s\n", c.Location)
	fmt.Fprintf(tw, "Price per kWh\t%s\n", formatPrice(c.PricePerKwh))
	if c.HasCoordinates() {
		fmt.Fprintf(tw, "Coordinates\t%s, %s\n", utils.FormatOptionalFloat(c.Latitude), utils.FormatOptionalFloat(c.Longitude))
	}
	images := c.Images
	if len(images) == 0 {
		images = []string{""}
	}
	for _, img := range images {
		fmt.Fprintf(tw, "Image\t%s\n", chargers.ImageURL(a.cfg.GetOrigin(), img))
	}
	return tw.Flush()
}

func chargerFormFlags(fs *pflag.FlagSet) {
	fs.String("name", "", "charger name")
	fs.String("brand", "", "brand")
	fs.String("location", "", "full address")
	fs.String("price", "", "price per kWh")
	fs.StringArray("image", nil, "image file, repeatable (jpeg, png, webp, max 5MB)")
}

func chargerEditFlags(fs *pflag.FlagSet) {
	chargerFormFlags(fs)
	fs.Bool("keep-images", true, "add the new images to the existing ones instead of replacing them")
}

func readForm(fs *pflag.FlagSet, form *chargers.Form) error {
	set := func(flag string, dst *string) {
		if fs.Changed(flag) {
			*dst, _ = fs.GetString(flag)
		}
	}
	set("name", &form.Name)
	set("brand", &form.Brand)
	set("location", &form.Location)
	set("price", &form.PricePerKwh)

	paths, _ := fs.GetStringArray("image")
	for _, p := range paths {
		img, err := chargers.ReadImage(p)
		if err != nil {
			return err
		}
		form.Images = append(form.Images, img)
	}
	return nil
}

func runChargerAdd(ctx context.Context, a *app, fs *pflag.FlagSet, _ []string) error {
	var form chargers.Form
	if err := readForm(fs, &form); err != nil {
		return err
	}
	c, err := a.chargers.Create(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Charger added successfully (id %d)\n", c.ID)
	return nil
}

// runChargerEdit starts from the stored listing so only the given flags change.
func runChargerEdit(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	current, err := a.chargers.Get(ctx, id)
	if err != nil {
		return err
	}

	form := chargers.Form{
		Name:        current.Name,
		Brand:       current.Brand,
		Location:    current.Location,
		PricePerKwh: formatPrice(current.PricePerKwh),
	}
	if err := readForm(fs, &form); err != nil {
		return err
	}
	keep, _ := fs.GetBool("keep-images")

	c, err := a.chargers.Update(ctx, id, form, keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Charger updated successfully (%d images)\n", len(c.Images))
	return nil
}

func runChargerDelete(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	msg, err := a.chargers.Delete(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, messageOr(msg, "Charger deleted"))
	return nil
}

func runHostsPending(ctx context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
	hosts, err := a.admin.PendingHosts(ctx)
	if err != nil {
		return err
	}
	if len(hosts) == 0 {
		fmt.Fprintln(a.out, "No pending hosts")
		return nil
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].UserID < hosts[j].UserID })

	tw := newTable(a.out)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE")
	for _, h := range hosts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", h.UserID, h.FullName(), h.Email, h.Phone)
	}
	return tw.Flush()
}

func runHostApprove(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
	return hostDecision(ctx, a, args[0], a.admin.ApproveHost, "Host approved")
}

func runHostReject(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
	return hostDecision(ctx, a, args[0], a.admin.RejectHost, "Host rejected")
}

func hostDecision(ctx context.Context, a *app, rawID string, decide func(context.Context, int64) (string, error), fallback string) error {
	id, err := parseID(rawID)
	if err != nil {
		return err
	}
	msg, err := decide(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, messageOr(msg, fallback))
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func prompt(in io.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}
