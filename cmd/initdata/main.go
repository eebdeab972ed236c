package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	"mind-scribe/internal/apiclient"
	"mind-scribe/internal/services/auth"
	"mind-scribe/internal/services/notes"

	"github.com/brianvoe/gofakeit/v6"
)

// ----------------------------------------------------------------------------
// Config ---------------------------------------------------------------------
var (
	baseURL   = flag.String("url", env("API_BASE_URL", "http://localhost:4000"), "Server base URL")
	email     = flag.String("email", env("EMAIL", "demo@example.com"), "Owner e-mail")
	pass      = flag.String("pass", env("PASSWORD", "Password123"), "Password for every seeded account")
	nNotes    = flag.Int("n", envInt("COUNT", 200), "How many notes to create")
	nFriends  = flag.Int("friends", envInt("FRIENDS", 3), "How many collaborator accounts to create")
	centerLon = flag.Float64("lon", envFloat("CENTER_LON", -122.4194), "Longitude notes are scattered around")
	centerLat = flag.Float64("lat", envFloat("CENTER_LAT", 37.7749), "Latitude notes are scattered around")
	spreadM   = flag.Float64("spread", envFloat("SPREAD_M", 2000), "Max distance from the centre in metres")
)

var categories = []string{"errands", "work", "travel", "ideas", "home"}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if i, err := strconv.Atoi(os.Getenv(key)); err == nil && i > 0 {
		return i
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return def
}

// ----------------------------------------------------------------------------
// Main -----------------------------------------------------------------------
func main() {
	flag.Parse()
	gofakeit.Seed(time.Now().UnixNano())

	ctx := context.Background()
	api := apiclient.New(*baseURL)

	fmt.Printf("Init account %s (notes=%d, friends=%d) on %s\n", *email, *nNotes, *nFriends, api.BaseURL())

	token, err := ensureUser(ctx, api, gofakeit.Name(), *email)
	if err != nil {
		fatal(err)
	}

	friends := make([]string, 0, *nFriends)
	for i := 1; i <= *nFriends; i++ {
		friend := fmt.Sprintf("friend%d.%s", i, *email)
		if _, err := ensureUser(ctx, api, gofakeit.Name(), friend); err != nil {
			fatal(err)
		}
		friends = append(friends, friend)
	}

	if err := createNotes(ctx, api, token, *nNotes, friends); err != nil {
		fatal(err)
	}

	fmt.Println("✔ done")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "FATAL:", err)
	os.Exit(1)
}

// ----------------------------------------------------------------------------
// Step 1 – make sure the accounts exist --------------------------------------
func ensureUser(ctx context.Context, api *apiclient.Client, fullname, addr string) (string, error) {
	err := api.Register(ctx, auth.RegisterRequest{Fullname: fullname, Email: addr, Password: *pass})
	switch {
	case err == nil:
		fmt.Println("• registered", addr)
	case apiclient.IsStatus(err, http.StatusBadRequest):
		fmt.Println("• reusing", addr)
	default:
		return "", fmt.Errorf("register %s: %w", addr, err)
	}

	token, err := api.Login(ctx, auth.LoginRequest{Email: addr, Password: *pass})
	if err != nil {
		return "", fmt.Errorf("login %s: %w", addr, err)
	}
	return token, nil
}

// ----------------------------------------------------------------------------
// Step 2 – create notes, some geotagged and some shared ----------------------
func createNotes(ctx context.Context, api *apiclient.Client, token string, total int, friends []string) error {
	for i := 1; i <= total; i++ {
		note, err := api.CreateNote(ctx, token, fakeNote())
		if err != nil {
			return fmt.Errorf("create note %d: %w", i, err)
		}

		if len(friends) > 0 && gofakeit.Number(1, 4) == 1 {
			friend := friends[gofakeit.Number(0, len(friends)-1)]
			if _, err := api.AddCollaborator(ctx, token, note.ID.Hex(), friend); err != nil {
				return fmt.Errorf("share note %d with %s: %w", i, friend, err)
			}
		}

		if i%50 == 0 || i == total {
			fmt.Printf("  … %d/%d\n", i, total)
		}
	}
	return nil
}

func fakeNote() notes.NoteRequest {
	req := notes.NoteRequest{
		Title:    gofakeit.Sentence(3),
		Content:  []notes.Block{{Type: notes.BlockText, Text: gofakeit.Paragraph(1, 3, 40, " ")}},
		Category: categories[gofakeit.Number(0, len(categories)-1)],
	}

	for range gofakeit.Number(0, 3) {
		req.Content = append(req.Content, notes.Block{
			Type:    notes.BlockCheckbox,
			Text:    gofakeit.Verb() + " " + gofakeit.Noun(),
			Checked: gofakeit.Bool(),
		})
	}
	for range gofakeit.Number(0, 4) {
		req.Checklist = append(req.Checklist, notes.ChecklistItem{Text: gofakeit.Noun(), Checked: gofakeit.Bool()})
	}

	if gofakeit.Bool() {
		lon, lat := scatter(*centerLon, *centerLat, *spreadM)
		req.Location = notes.NewPoint(lon, lat)
	}
	return req
}

// scatter returns a point at most spread metres from the centre.
func scatter(lon, lat, spread float64) (float64, float64) {
	const metresPerDegree = 111_320.0
	d := gofakeit.Float64Range(0, spread)
	bearing := gofakeit.Float64Range(0, 2*math.Pi)

	dLat := d * math.Cos(bearing) / metresPerDegree
	dLon := d * math.Sin(bearing) / (metresPerDegree * math.Cos(lat*math.Pi/180))
	return lon + dLon, lat + dLat
}
