// Command ledger-init prepares a booking ledger: a new workbook with Seats
// and Whitelist sheets, or the MySQL tables, filled with a generated seat
// grid and optional whitelist rows. It can also print the bcrypt hash for
// ADMIN_PASSWORD_HASH.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/utils"
)

type options struct {
	backend   string
	out       string
	sections  []string
	whitelist string
	sheet     string
	sample    bool
	hashAdmin string
	cost      int
	db        config.DBConfig
}

func main() {
	_ = godotenv.Load()

	var o options
	flag.StringVar(&o.backend, "backend", config.BackendXLSX, "ledger backend: xlsx or mysql")
	flag.StringVarP(&o.out, "out", "o", "data/ledger.xlsx", "workbook to create (xlsx backend)")
	flag.StringArrayVarP(&o.sections, "section", "s", []string{"Stalls:10x20"}, "seat block as Name:ROWSxCOLS, repeatable")
	flag.StringVar(&o.whitelist, "whitelist", "", "workbook whose rows are copied into the Whitelist table")
	flag.StringVar(&o.sheet, "whitelist-sheet", "", "sheet to read from --whitelist (default: first sheet)")
	flag.BoolVar(&o.sample, "sample", false, "add two demo whitelist rows")
	flag.StringVar(&o.hashAdmin, "hash-admin", "", "print the bcrypt hash of this password and exit")
	flag.IntVar(&o.cost, "cost", 12, "bcrypt cost for --hash-admin")
	flag.StringVar(&o.db.User, "db-user", os.Getenv("DB_USER"), "mysql user")
	flag.StringVar(&o.db.Pass, "db-pass", os.Getenv("DB_PASS"), "mysql password")
	flag.StringVar(&o.db.Host, "db-host", envOr("DB_HOST", "127.0.0.1"), "mysql host")
	flag.StringVar(&o.db.Port, "db-port", envOr("DB_PORT", "3306"), "mysql port")
	flag.StringVar(&o.db.Name, "db-name", os.Getenv("DB_NAME"), "mysql database")
	flag.Parse()

	if o.hashAdmin != "" {
		hash, err := utils.HashPassword(o.hashAdmin, o.cost)
		if err != nil {
			log.Fatalf("hash: %v", err)
		}
		fmt.Println(hash)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := run(ctx, o); err != nil {
		log.Fatalf("ledger-init: %v", err)
	}
}

func run(ctx context.Context, o options) error {
	specs := make([]ledger.SectionSpec, 0, len(o.sections))
	for _, s := range o.sections {
		spec, err := ledger.ParseSectionSpec(s)
		if err != nil {
			return err
		}
		specs = append(specs, spec)
	}
	seats := ledger.SeatGrid(specs)
	buyers, err := whitelistRows(o)
	if err != nil {
		return err
	}

	switch o.backend {
	case config.BackendXLSX:
		s, err := ledger.CreateXLSX(o.out)
		if err != nil {
			return err
		}
		if err := s.AppendRows(ledger.TableSeats, seats); err != nil {
			return err
		}
		if err := s.AppendRows(ledger.TableWhitelist, buyers); err != nil {
			return err
		}
		log.Printf("ledger-init: wrote %s with %d seats and %d whitelist rows", o.out, len(seats), len(buyers))
	case config.BackendMySQL:
		db, err := database.Open(o.db)
		if err != nil {
			return fmt.Errorf("connect mysql: %w", err)
		}
		defer func() { _ = db.Close() }()
		s := ledger.NewMySQLStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := s.AppendRows(ctx, ledger.TableSeats, seats); err != nil {
			return err
		}
		if err := s.AppendRows(ctx, ledger.TableWhitelist, buyers); err != nil {
			return err
		}
		log.Printf("ledger-init: loaded %d seats and %d whitelist rows into %s", len(seats), len(buyers), o.db.Name)
	default:
		return fmt.Errorf("unknown backend %q", o.backend)
	}
	return nil
}

func whitelistRows(o options) ([]map[string]string, error) {
	var rows []map[string]string
	if o.whitelist != "" {
		imported, err := ledger.ImportRows(o.whitelist, o.sheet)
		if err != nil {
			return nil, err
		}
		rows = append(rows, imported...)
	}
	if o.sample {
		rows = append(rows,
			map[string]string{ledger.ColName: "Tan Mei/Tan Wei", ledger.ColReceiptNo: "SR-1001", ledger.ColTicketsAllowed: "4", ledger.ColTicketsUsed: "0", ledger.ColContact: "0123456789"},
			map[string]string{ledger.ColName: "Alex Lim", ledger.ColReceiptNo: "SR-1002", ledger.ColTicketsAllowed: "2", ledger.ColTicketsUsed: "0", ledger.ColContact: "0198765432"},
		)
	}
	return rows, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
