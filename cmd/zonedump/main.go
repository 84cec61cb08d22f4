// Command zonedump prints a zone's records from the durable store, for
// inspecting what's actually being served without going through the
// control-plane API.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/authdns/authdns/internal/store"
)

func main() {
	dbPath := flag.String("db", "authdns.db", "Path to the SQLite database")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: zonedump -db path/to.db <zone-name>\n")
		os.Exit(2)
	}
	zoneName := flag.Arg(0)

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	z, err := st.GetZone(zoneName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load zone: %v\n", err)
		os.Exit(1)
	}

	records, err := st.ListRecords(z.ID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list records: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("ORIGIN: %s\n", z.Name)
	fmt.Printf("SOA: %s %s %d %d %d %d %d\n",
		z.SOAMName, z.SOARName, z.SOASerial, z.SOARefresh, z.SOARetry, z.SOAExpire, z.SOAMinimum)
	fmt.Println("RECORDS:")

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.ID < b.ID
	})

	for _, r := range records {
		health := ""
		if r.HealthURL != "" {
			health = fmt.Sprintf(" health=%s healthy=%t", r.HealthURL, r.Healthy)
		}
		geo := ""
		if r.GeoCIDR != "" {
			geo = " geo=" + r.GeoCIDR
		}
		fmt.Printf("  %s %d IN %s %s weight=%d%s%s\n", r.Name, r.TTL, r.Type, r.Value, r.Weight, geo, health)
	}
}
