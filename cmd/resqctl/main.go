package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/resq/internal/auth"
	"github.com/matheus3301/resq/internal/config"
	"github.com/matheus3301/resq/internal/profile"
	"github.com/matheus3301/resq/internal/qr"
	"github.com/matheus3301/resq/internal/rest"
	"github.com/matheus3301/resq/internal/store"
	"golang.org/x/term"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(profile.ConfigPath())
	if err != nil {
		cfg = &config.Config{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch args[0] {
	case "login":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: resqctl login <email>")
			os.Exit(1)
		}
		cmdLogin(ctx, cfg, profileName, args[1])
	case "logout":
		cmdLogout(profileName)
	case "status":
		cmdStatus(cfg, profileName, *jsonFlag)
	case "lots":
		cmdLots(ctx, cfg, profileName, *jsonFlag)
	case "reservations":
		cmdReservations(ctx, cfg, profileName, *jsonFlag)
	case "cancel":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: resqctl cancel <orderId>")
			os.Exit(1)
		}
		cmdCancel(ctx, cfg, profileName, args[1])
	case "qr":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: resqctl qr <orderId>")
			os.Exit(1)
		}
		cmdQR(ctx, cfg, profileName, args[1])
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: resqctl search <query>")
			os.Exit(1)
		}
		cmdSearch(profileName, args[1], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: resqctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  login <email>     Log in and store the token for this profile")
	fmt.Fprintln(os.Stderr, "  logout            Remove the stored token")
	fmt.Fprintln(os.Stderr, "  status            Show profile and login state")
	fmt.Fprintln(os.Stderr, "  lots              List available food lots")
	fmt.Fprintln(os.Stderr, "  reservations      List your reservations")
	fmt.Fprintln(os.Stderr, "  cancel <orderId>  Cancel a reservation")
	fmt.Fprintln(os.Stderr, "  qr <orderId>      Show the pickup code as a QR")
	fmt.Fprintln(os.Stderr, "  search <query>    Search the local message archive")
}

// restClient builds an authenticated client, failing when not logged in.
func restClient(cfg *config.Config, profileName string) *rest.Client {
	token, err := auth.LoadToken(profile.TokenPath(profileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if token == "" {
		fmt.Fprintf(os.Stderr, "error: not logged in, run: resqctl login <email>\n")
		os.Exit(1)
	}
	return rest.NewClient(cfg.ResolveAPIURL(), token)
}

func cmdLogin(ctx context.Context, cfg *config.Config, profileName, email string) {
	fmt.Fprint(os.Stderr, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: read password: %v\n", err)
		os.Exit(1)
	}

	token, err := rest.NewClient(cfg.ResolveAPIURL(), "").Login(ctx, email, string(pw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	identity, err := auth.ParseIdentity(token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := auth.SaveToken(profile.TokenPath(profileName), token); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Logged in as %s (%s)\n", identity.ID, identity.Role)
}

func cmdLogout(profileName string) {
	if err := auth.ClearToken(profile.TokenPath(profileName)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Logged out.")
}

func cmdStatus(cfg *config.Config, profileName string, jsonOut bool) {
	token, _ := auth.LoadToken(profile.TokenPath(profileName))

	out := map[string]string{
		"profile":   profileName,
		"api_url":   cfg.ResolveAPIURL(),
		"relay_url": cfg.ResolveRelayURL(),
		"login":     "logged out",
	}
	if token != "" {
		if identity, err := auth.ParseIdentity(token); err == nil {
			out["login"] = "logged in"
			out["user_id"] = identity.ID
			out["role"] = string(identity.Role)
		} else {
			out["login"] = "invalid token: " + err.Error()
		}
	}

	if jsonOut {
		outputJSON(out)
		return
	}
	fmt.Printf("Profile: %s\n", out["profile"])
	fmt.Printf("API:     %s\n", out["api_url"])
	fmt.Printf("Relay:   %s\n", out["relay_url"])
	if out["user_id"] != "" {
		fmt.Printf("Login:   %s as %s (%s)\n", out["login"], out["user_id"], out["role"])
	} else {
		fmt.Printf("Login:   %s\n", out["login"])
	}
}

func cmdLots(ctx context.Context, cfg *config.Config, profileName string, jsonOut bool) {
	lots, err := restClient(cfg, profileName).ListLots(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(lots)
		return
	}
	if len(lots) == 0 {
		fmt.Println("No lots available.")
		return
	}
	for _, l := range lots {
		fmt.Printf("%-12s %-25s x%-3d %s (expires %s)\n", l.ID, l.Title, l.Quantity, l.StoreName, l.ExpiresAt)
	}
}

func cmdReservations(ctx context.Context, cfg *config.Config, profileName string, jsonOut bool) {
	rs, err := restClient(cfg, profileName).ListReservations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(rs)
		return
	}
	if len(rs) == 0 {
		fmt.Println("No reservations.")
		return
	}
	for _, r := range rs {
		fmt.Printf("%-12s %-25s %-12s %s\n", r.OrderID, r.LotTitle, r.Status, r.StoreName)
	}
}

func cmdCancel(ctx context.Context, cfg *config.Config, profileName, orderID string) {
	if err := restClient(cfg, profileName).CancelReservation(ctx, orderID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reservation %s cancelled.\n", orderID)
}

func cmdQR(ctx context.Context, cfg *config.Config, profileName, orderID string) {
	rs, err := restClient(cfg, profileName).ListReservations(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	for _, r := range rs {
		if r.OrderID != orderID {
			continue
		}
		block, err := qr.Render(r.PickupCode)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Pickup code for %s (%s):\n\n%s\n%s\n", r.LotTitle, r.StoreName, block, r.PickupCode)
		return
	}
	fmt.Fprintf(os.Stderr, "error: no reservation for order %q\n", orderID)
	os.Exit(1)
}

// cmdSearch queries the local archive directly. WAL mode allows reading
// while a resqtui instance holds the profile.
func cmdSearch(profileName, query string, jsonOut bool) {
	db, err := store.Open(profile.ArchiveDBPath(profileName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	results, err := db.SearchMessages(query, "", 50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(results)
		return
	}
	if len(results) == 0 {
		fmt.Println("No matches.")
		return
	}
	for _, r := range results {
		fmt.Printf("%-12s %s\n", r.Message.OrderID, r.Snippet)
	}
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
