// Command seed loads alert rules, recipients, templates, and settings from a
// JSON file into the service database. Existing rows are left alone; seeding
// only appends, so it is safe to run against a live database.
//
// Usage:
//
//	go run ./cmd/seed -db weather-alert.db -file seed.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-alert-service/internal/domain"
	"github.com/couchcryptid/weather-alert-service/internal/store"
)

// seedFile is the on-disk shape consumed by this command.
type seedFile struct {
	Rules      []domain.AlertRule `json:"rules"`
	Recipients []domain.Recipient `json:"recipients"`
	Templates  []domain.Template  `json:"templates"`
	Settings   *domain.Settings   `json:"settings,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "weather-alert.db", "path to the SQLite database")
	file := flag.String("file", "", "path to the seed JSON file")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -file")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	st, err := store.Open(*dbPath, clockwork.NewRealClock())
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := context.Background()

	for i, r := range seed.Rules {
		created, err := st.AddRule(ctx, r)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
		fmt.Printf("rule %d -> id %d (%s)\n", i, created.ID, created.ConditionText())
	}

	for i, r := range seed.Recipients {
		created, err := st.AddRecipient(ctx, r)
		if err != nil {
			return fmt.Errorf("recipient %d: %w", i, err)
		}
		fmt.Printf("recipient %d -> id %d (%s, %s)\n", i, created.ID, created.Name, created.Region)
	}

	for i, t := range seed.Templates {
		created, err := st.AddTemplate(ctx, t)
		if err != nil {
			return fmt.Errorf("template %d: %w", i, err)
		}
		fmt.Printf("template %d -> id %d (%s)\n", i, created.ID, created.Name)
	}

	if seed.Settings != nil {
		if err := st.SaveSettings(ctx, *seed.Settings); err != nil {
			return fmt.Errorf("settings: %w", err)
		}
		fmt.Println("settings saved")
	}

	return nil
}
