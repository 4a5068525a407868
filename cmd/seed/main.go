package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*sql.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *sql.DB {
	db, _ := c.Context.Value(dbKey).(*sql.DB)
	return db
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Seed the database with demand history and the SKU catalog",
		Commands: []*cli.Command{
			{
				Name:   "demand",
				Usage:  "Load daily demand observations from a CSV export",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag("location_id,item_id,item_name,date,quantity_sold,revenue,order_count")},
				Before: initDB,
				After:  closeDB,
				Action: seedDemand,
			},
			{
				Name:   "catalog",
				Usage:  "Load SKUs from a CSV export",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag("id,title,quantity_on_hand,low_stock_threshold,unit,kind,item_id")},
				Before: initDB,
				After:  closeDB,
				Action: seedCatalog,
			},
			{
				Name:   "bom",
				Usage:  "Load bill-of-materials edges from a CSV export",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag("parent_sku_id,child_sku_id,quantity_per_unit")},
				Before: initDB,
				After:  closeDB,
				Action: seedBOM,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newFileFlag(columns string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Usage:    "CSV file with columns: " + columns,
		Required: true,
	}
}

// openCSV returns a reader positioned after the header row.
func openCSV(path string) (*csv.Reader, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	return r, f, nil
}

func seedDemand(c *cli.Context) error {
	r, f, err := openCSV(c.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()

	db := dbFrom(c)
	query := `
		INSERT INTO daily_demand (location_id, item_id, item_name, date, quantity_sold, revenue, order_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (location_id, item_id, date)
		DO UPDATE SET
			item_name = EXCLUDED.item_name,
			quantity_sold = EXCLUDED.quantity_sold,
			revenue = EXCLUDED.revenue,
			order_count = EXCLUDED.order_count
	`

	count := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		if len(record) < 7 {
			return fmt.Errorf("record %d: expected 7 columns, got %d", count+1, len(record))
		}

		locationID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("record %d: invalid location_id %q", count+1, record[0])
		}
		date, err := time.Parse("2006-01-02", record[3])
		if err != nil {
			return fmt.Errorf("record %d: invalid date %q", count+1, record[3])
		}
		quantity, _ := strconv.ParseFloat(record[4], 64)
		revenue, _ := strconv.ParseFloat(record[5], 64)
		orders, _ := strconv.Atoi(record[6])

		if _, err := db.ExecContext(c.Context, query,
			locationID, record[1], record[2], date, quantity, revenue, orders); err != nil {
			return fmt.Errorf("record %d: insert failed: %w", count+1, err)
		}
		count++
	}

	log.Printf("seeded %d demand observations", count)
	return nil
}

func seedCatalog(c *cli.Context) error {
	r, f, err := openCSV(c.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()

	db := dbFrom(c)
	query := `
		INSERT INTO skus (id, title, quantity_on_hand, low_stock_threshold, unit, kind, item_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		ON CONFLICT (id)
		DO UPDATE SET
			title = EXCLUDED.title,
			quantity_on_hand = EXCLUDED.quantity_on_hand,
			low_stock_threshold = EXCLUDED.low_stock_threshold,
			unit = EXCLUDED.unit,
			kind = EXCLUDED.kind,
			item_id = EXCLUDED.item_id
	`

	count := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		if len(record) < 7 {
			return fmt.Errorf("record %d: expected 7 columns, got %d", count+1, len(record))
		}

		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("record %d: invalid sku id %q", count+1, record[0])
		}
		quantity, _ := strconv.ParseFloat(record[2], 64)
		threshold, _ := strconv.ParseFloat(record[3], 64)

		if _, err := db.ExecContext(c.Context, query,
			id, record[1], quantity, threshold, record[4], record[5], record[6]); err != nil {
			return fmt.Errorf("record %d: insert failed: %w", count+1, err)
		}
		count++
	}

	log.Printf("seeded %d skus", count)
	return nil
}

func seedBOM(c *cli.Context) error {
	r, f, err := openCSV(c.String("file"))
	if err != nil {
		return err
	}
	defer f.Close()

	db := dbFrom(c)
	query := `
		INSERT INTO bom_edges (parent_sku_id, child_sku_id, quantity_per_unit)
		VALUES ($1, $2, $3)
		ON CONFLICT (parent_sku_id, child_sku_id)
		DO UPDATE SET quantity_per_unit = EXCLUDED.quantity_per_unit
	`

	count := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read record: %w", err)
		}
		if len(record) < 3 {
			return fmt.Errorf("record %d: expected 3 columns, got %d", count+1, len(record))
		}

		parentID, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			return fmt.Errorf("record %d: invalid parent_sku_id %q", count+1, record[0])
		}
		childID, err := strconv.ParseInt(record[1], 10, 64)
		if err != nil {
			return fmt.Errorf("record %d: invalid child_sku_id %q", count+1, record[1])
		}
		qty, _ := strconv.ParseFloat(record[2], 64)

		if _, err := db.ExecContext(c.Context, query, parentID, childID, qty); err != nil {
			return fmt.Errorf("record %d: insert failed: %w", count+1, err)
		}
		count++
	}

	log.Printf("seeded %d bom edges", count)
	return nil
}
