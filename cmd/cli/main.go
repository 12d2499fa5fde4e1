package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"estatehub/pkg/models"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type listingPage struct {
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
	Items  []models.Listing `json:"items"`
}

func main() {
	global := flag.NewFlagSet("estatehub", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	if len(args) > 1 {
		sub = args[1]
	}
	rest := []string{}
	if len(args) > 2 {
		rest = args[2:]
	}

	client := &http.Client{Timeout: 60 * time.Second}

	switch cmd {
	case "auth":
		handleAuth(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "listings":
		handleListings(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "categories":
		handleCategories(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "data":
		handleData(ctx, client, *baseURL, *tokenPath, sub, rest)
	case "watch":
		handleWatch(*baseURL, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		password := fs.String("password", os.Getenv("ESTATEHUB_ADMIN_PASSWORD"), "admin password")
		_ = fs.Parse(args)

		if *password == "" {
			log.Fatal("password is required")
		}

		var resp loginResponse
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/auth/login", "", map[string]string{"password": *password}, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Printf("✅ logged in until %s\n", resp.ExpiresAt.Local().Format(time.RFC1123))
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("✅ logged out")
	default:
		log.Fatal("usage: estatehub auth <login|logout>")
	}
}

func handleListings(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "search":
		fs := flag.NewFlagSet("listings search", flag.ExitOnError)
		query := fs.String("q", "", "text in title or description")
		typ := fs.String("type", "", "type filter")
		minPrice := fs.String("min", "", "minimum price")
		maxPrice := fs.String("max", "", "maximum price")
		sort := fs.String("sort", "new", "new|old|priceAsc|priceDesc")
		limit := fs.Int("limit", 24, "page size")
		offset := fs.Int("offset", 0, "offset")
		_ = fs.Parse(args)

		u, err := url.Parse(baseURL + "/listings")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		qv := u.Query()
		setIf(qv, "q", *query)
		setIf(qv, "type", *typ)
		setIf(qv, "minPrice", *minPrice)
		setIf(qv, "maxPrice", *maxPrice)
		qv.Set("sort", *sort)
		qv.Set("limit", fmt.Sprintf("%d", *limit))
		qv.Set("offset", fmt.Sprintf("%d", *offset))
		u.RawQuery = qv.Encode()

		var resp listingPage
		if err := doJSON(ctx, client, http.MethodGet, u.String(), "", nil, &resp); err != nil {
			log.Fatalf("search failed: %v", err)
		}
		printJSON(resp)
	case "show":
		fs := flag.NewFlagSet("listings show", flag.ExitOnError)
		id := fs.Int64("id", 0, "listing id")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("listing id is required")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, fmt.Sprintf("%s/listings/%d", baseURL, *id), "", nil, &resp); err != nil {
			log.Fatalf("show failed: %v", err)
		}
		printJSON(resp)
	case "create", "update":
		token := mustToken(tokenPath)
		fs := flag.NewFlagSet("listings "+sub, flag.ExitOnError)
		id := fs.Int64("id", 0, "listing id (update only)")
		title := fs.String("title", "", "title")
		desc := fs.String("description", "", "description")
		typ := fs.String("type", "", "type")
		price := fs.String("price", "", "price")
		unit := fs.String("unit", "", "price unit")
		fb := fs.String("facebook", "", "facebook post url")
		lat := fs.String("lat", "", "latitude")
		lng := fs.String("lng", "", "longitude")
		images := fs.String("images", "", "comma-separated image files")
		_ = fs.Parse(args)

		method, endpoint := http.MethodPost, baseURL+"/admin/listings"
		if sub == "update" {
			if *id <= 0 {
				log.Fatal("listing id is required")
			}
			method, endpoint = http.MethodPut, fmt.Sprintf("%s/admin/listings/%d", baseURL, *id)
		}

		fields := map[string]string{
			"title":       *title,
			"description": *desc,
			"type":        *typ,
			"price":       *price,
			"priceUnit":   *unit,
			"facebookUrl": *fb,
			"latitude":    *lat,
			"longitude":   *lng,
		}
		var files []string
		if *images != "" {
			files = strings.Split(*images, ",")
		}

		var resp map[string]any
		if err := doMultipart(ctx, client, method, endpoint, token, fields, files, &resp); err != nil {
			log.Fatalf("%s failed: %v", sub, err)
		}
		printJSON(resp)
	case "delete":
		token := mustToken(tokenPath)
		fs := flag.NewFlagSet("listings delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "listing id")
		image := fs.String("image", "", "only remove this image id")
		_ = fs.Parse(args)
		if *id <= 0 {
			log.Fatal("listing id is required")
		}

		endpoint := fmt.Sprintf("%s/admin/listings/%d", baseURL, *id)
		if *image != "" {
			endpoint += "/images/" + url.PathEscape(*image)
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodDelete, endpoint, token, nil, &resp); err != nil {
			log.Fatalf("delete failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: estatehub listings <search|show|create|update|delete>")
	}
}

func handleCategories(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	switch sub {
	case "list":
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/categories", "", nil, &resp); err != nil {
			log.Fatalf("list failed: %v", err)
		}
		printJSON(resp)
	case "add", "remove":
		token := mustToken(tokenPath)
		fs := flag.NewFlagSet("categories "+sub, flag.ExitOnError)
		name := fs.String("name", "", "category label")
		_ = fs.Parse(args)
		if strings.TrimSpace(*name) == "" {
			log.Fatal("name is required")
		}

		var resp map[string]any
		var err error
		if sub == "add" {
			err = doJSON(ctx, client, http.MethodPost, baseURL+"/admin/categories", token, map[string]string{"name": *name}, &resp)
		} else {
			err = doJSON(ctx, client, http.MethodDelete, baseURL+"/admin/categories/"+url.PathEscape(*name), token, nil, &resp)
		}
		if err != nil {
			log.Fatalf("%s failed: %v", sub, err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: estatehub categories <list|add|remove>")
	}
}

func handleData(ctx context.Context, client *http.Client, baseURL, tokenPath, sub string, args []string) {
	token := mustToken(tokenPath)
	switch sub {
	case "export":
		fs := flag.NewFlagSet("data export", flag.ExitOnError)
		out := fs.String("out", "data/listings.json", "output JSON path")
		_ = fs.Parse(args)

		var payload json.RawMessage
		if err := doJSON(ctx, client, http.MethodGet, baseURL+"/admin/export", token, nil, &payload); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		if err := writeFile(*out, payload); err != nil {
			log.Fatalf("write export: %v", err)
		}
		log.Printf("✅ exported catalog to %s", *out)
	case "import":
		fs := flag.NewFlagSet("data import", flag.ExitOnError)
		in := fs.String("in", "data/listings.json", "input JSON path")
		_ = fs.Parse(args)

		b, err := os.ReadFile(*in)
		if err != nil {
			log.Fatalf("read import: %v", err)
		}
		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/import", token, json.RawMessage(b), &resp); err != nil {
			log.Fatalf("import failed: %v", err)
		}
		printJSON(resp)
	case "reset":
		fs := flag.NewFlagSet("data reset", flag.ExitOnError)
		yes := fs.Bool("yes", false, "confirm deleting every listing and image")
		_ = fs.Parse(args)
		if !*yes {
			log.Fatal("refusing to reset without -yes")
		}

		var resp map[string]any
		if err := doJSON(ctx, client, http.MethodPost, baseURL+"/admin/reset", token, nil, &resp); err != nil {
			log.Fatalf("reset failed: %v", err)
		}
		printJSON(resp)
	default:
		log.Fatal("usage: estatehub data <export|import|reset>")
	}
}

func handleWatch(baseURL string, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	wsURL := fs.String("ws", "", "WebSocket URL (defaults to /ws on API host)")
	_ = fs.Parse(args)

	endpoint := *wsURL
	if endpoint == "" {
		var err error
		endpoint, err = websocketURL(baseURL, "/ws")
		if err != nil {
			log.Fatalf("ws url: %v", err)
		}
	}
	if err := runWebSocket(endpoint); err != nil {
		log.Fatalf("watch failed: %v", err)
	}
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	log.Printf("[watch] connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(client, req, token, out)
}

// doMultipart sends form fields plus image files the way the admin form does.
// Blank fields are still sent so an update can clear them.
func doMultipart(ctx context.Context, client *http.Client, method, endpoint, token string, fields map[string]string, files []string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, path := range files {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		part, err := w.CreateFormFile("images", filepath.Base(path))
		if err != nil {
			return err
		}
		if _, err := part.Write(data); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("X-Submission-Id", fmt.Sprintf("cli-%d", time.Now().UnixNano()))
	return send(client, req, token, out)
}

func send(client *http.Client, req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", req.Method, req.URL, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func setIf(qv url.Values, key, value string) {
	if strings.TrimSpace(value) != "" {
		qv.Set(key, value)
	}
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Println(string(b))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.estatehub-token.json"
	}
	return filepath.Join(home, ".estatehub", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func mustToken(path string) string {
	token, err := readToken(path)
	if err != nil {
		log.Fatalf("token not found, please login: %v", err)
	}
	if token == "" {
		log.Fatal("token empty, please login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}

func printUsage() {
	fmt.Println("estatehub [-api URL] [-token PATH] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|logout")
	fmt.Println("  listings search|show|create|update|delete")
	fmt.Println("  categories list|add|remove")
	fmt.Println("  data export|import|reset")
	fmt.Println("  watch")
}
