package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "room":
		handleRoom(args)
	case "tenant":
		handleTenant(args)
	case "payment":
		handlePayment(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: roomdesk auth <register|login|logout|who>")
		return
	}

	switch args[0] {
	case "register":
		registerUser(args[1:])
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", args[0])
	}
}

func handleRoom(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: roomdesk room <list|assign|vacate>")
		return
	}

	switch args[0] {
	case "list":
		listRooms(args[1:])
	case "assign":
		assignRoom(args[1:])
	case "vacate":
		vacateRoom(args[1:])
	default:
		fmt.Printf("unknown room command: %s\n", args[0])
	}
}

func handleTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: roomdesk tenant <list>")
		return
	}

	switch args[0] {
	case "list":
		listTenants(args[1:])
	default:
		fmt.Printf("unknown tenant command: %s\n", args[0])
	}
}

func handlePayment(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: roomdesk payment <list|record|totals>")
		return
	}

	switch args[0] {
	case "list":
		listPayments(args[1:])
	case "record":
		recordPayment(args[1:])
	case "totals":
		paymentTotals(args[1:])
	default:
		fmt.Printf("unknown payment command: %s\n", args[0])
	}
}

// Auth commands
func registerUser(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	property := fs.String("property", "", "default property ID (optional)")

	fs.Parse(args)

	if *email == "" || *username == "" || *password == "" {
		fmt.Println("Error: email, username, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"email":    *email,
		"username": *username,
		"password": *password,
	}
	if *property != "" {
		payload["defaultPropertyId"] = *property
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/register", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ User registered: %s\n", *email)
	} else {
		fmt.Printf("✗ Registration failed: %v\n", result)
	}
}

func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "user email")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *email == "" || *password == "" {
		fmt.Println("Error: email and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"email": *email, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *email)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	req, _ := http.NewRequest("POST", getAPIURL()+"/auth/logout", nil)
	addAuthHeader(req)
	if resp, err := http.DefaultClient.Do(req); err == nil {
		resp.Body.Close()
	}
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/auth/me", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		fmt.Println("Not logged in")
		return
	}
	var me map[string]string
	json.NewDecoder(resp.Body).Decode(&me)
	fmt.Printf("✓ Logged in as %s (%s), property %s\n", me["email"], me["role"], me["propertyId"])
}

// Room commands
func listRooms(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/rooms", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var rooms []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&rooms)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFLOOR\tSTATUS\tTENANT")
	for _, room := range rooms {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			room["id"], room["name"], room["floor"], room["status"], room["tenantId"])
	}
	w.Flush()
}

func assignRoom(args []string) {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	room := fs.String("room", "", "room ID")
	tenant := fs.String("tenant", "", "tenant ID")
	fs.Parse(args)

	if *room == "" || *tenant == "" {
		fmt.Println("Error: room and tenant are required")
		fs.PrintDefaults()
		return
	}

	data, _ := json.Marshal(map[string]string{"tenantId": *tenant})
	req, _ := http.NewRequest("POST", getAPIURL()+"/rooms/"+*room+"/assign", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Tenant %s assigned to room %s\n", *tenant, *room)
	} else {
		fmt.Printf("✗ Assign failed: %v\n", result)
	}
}

func vacateRoom(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: roomdesk room vacate <room-id>")
		return
	}

	req, _ := http.NewRequest("POST", getAPIURL()+"/rooms/"+args[0]+"/vacate", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Room %s vacated\n", args[0])
	} else {
		fmt.Printf("✗ Vacate failed: %v\n", result)
	}
}

// Tenant commands
func listTenants(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/tenants", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var tenants []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&tenants)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROOM\tSTATUS\tPAYMENT")
	for _, t := range tenants {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n",
			t["id"], t["name"], t["roomId"], t["status"], t["paymentStatus"])
	}
	w.Flush()
}

// Payment commands
func listPayments(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	status := fs.String("status", "", "filter by status (pending, overdue, paid)")
	sort := fs.String("sort", "", "sort field (tenant, room, amount, dueDate, paidDate)")
	fs.Parse(args)

	url := getAPIURL() + "/payments"
	sep := "?"
	if *status != "" {
		url += sep + "status=" + *status
		sep = "&"
	}
	if *sort != "" {
		url += sep + "sort=" + *sort
	}

	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var payments []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&payments)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTENANT\tROOM\tAMOUNT\tDUE\tSTATUS")
	for _, p := range payments {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			p["id"], p["tenantName"], p["roomName"], p["amount"], p["dueDate"], p["status"])
	}
	w.Flush()
}

func recordPayment(args []string) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	id := fs.String("id", "", "payment ID")
	method := fs.String("method", "cash", "payment method")
	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	data, _ := json.Marshal(map[string]string{"method": *method})
	req, _ := http.NewRequest("POST", getAPIURL()+"/payments/"+*id+"/record", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Payment %s recorded (%s)\n", *id, *method)
	} else {
		fmt.Printf("✗ Record failed: %v\n", result)
	}
}

func paymentTotals(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/payments/aggregate", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var totals map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&totals)
	fmt.Printf("Paid:    %v\nPending: %v\nOverdue: %v\nTotal:   %v\n",
		totals["totalPaid"], totals["totalPending"], totals["totalOverdue"], totals["total"])
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("ROOMDESK_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.roomdesk/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.roomdesk", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`Roomdesk CLI

Usage:
  roomdesk <command> [options]

Commands:
  auth     User authentication (register, login, logout, who)
  room     Room operations (list, assign, vacate)
  tenant   Tenant operations (list)
  payment  Payment operations (list, record, totals)
  help     Show this help message

Environment Variables:
  ROOMDESK_API    API endpoint (default: http://localhost:8080/api)

Examples:
  roomdesk auth login -email admin@example.com -password pass
  roomdesk room list
  roomdesk room assign -room <room-id> -tenant <tenant-id>
  roomdesk payment record -id <payment-id> -method transfer
`)
}
