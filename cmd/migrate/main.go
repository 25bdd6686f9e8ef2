package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"deview/adapters/catalog"
	"deview/adapters/tabular"
	"deview/internal/config"
	"deview/internal/metrics"
	"deview/internal/session"
	"deview/internal/storage"

	"github.com/joho/godotenv"
)

var resultExtensions = map[string]bool{".csv": true, ".tsv": true, ".txt": true, ".xlsx": true}

func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <results_dir>")
	}
	databaseURL := os.Args[1]
	resultsDir := os.Args[2]

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	driver, dsn, err := config.ParseDatabaseURL(databaseURL)
	if err != nil {
		log.Fatalf("Invalid database URL: %v", err)
	}
	if driver == config.DriverMemory {
		log.Fatal("An in-memory catalog would be lost on exit; pass a postgres:// or sqlite:// URL")
	}

	log.Printf("Starting import from %s into %s catalog", resultsDir, driver)

	ctx := context.Background()
	cat, err := catalog.Open(ctx, config.DatabaseConfig{URL: databaseURL, Driver: driver, DSN: dsn})
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer cat.Close()

	store, err := storage.Open(ctx, appConfig.Storage)
	if err != nil {
		log.Fatalf("Failed to open upload storage: %v", err)
	}

	readerConfig := tabular.DefaultConfig()
	readerConfig.Mapping = appConfig.Analysis.Mapping
	service := session.NewService(tabular.NewReader(readerConfig), store, cat.Uploads, metrics.New())

	files, err := findResultFiles(resultsDir)
	if err != nil {
		log.Fatalf("Failed to find results files: %v", err)
	}
	log.Printf("Found %d results files to import", len(files))

	imported, skipped := 0, 0
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Printf("Failed to read %s: %v", file, err)
			skipped++
			continue
		}
		id, rows, err := service.Import(ctx, filepath.Base(file), content)
		if err != nil {
			log.Printf("Skipping %s: %v", file, err)
			skipped++
			continue
		}
		log.Printf("Imported %s as %s (%d genes)", file, id, rows)
		imported++
	}

	log.Printf("Import complete: %d imported, %d skipped", imported, skipped)
	if skipped > 0 {
		cat.Close()
		os.Exit(1)
	}
}

// findResultFiles returns every results table under dir in walk order.
func findResultFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && resultExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
