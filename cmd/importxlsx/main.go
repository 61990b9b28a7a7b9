package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ptrj.com/venus/core"
	"ptrj.com/venus/importer"
)

// Imports an attendance export file (xlsx or csv) into the staging store.
func main() {
	dbPath := flag.String("db", "staging.db", "path to the staging database")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: importxlsx [-db staging.db] <file.xlsx|file.csv>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	file, err := os.Open(path)
	if err != nil {
		log.Fatalf("open file: %v", err)
	}
	defer file.Close()

	var records []core.StagingRecord
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		records, err = importer.FromXLSX(file)
	case ".csv":
		records, err = importer.FromCSV(file)
	default:
		log.Fatalf("unsupported file type %s", ext)
	}
	if err != nil {
		log.Fatalf("parse %s: %v", path, err)
	}

	store, err := core.OpenStore(*dbPath, zap.NewNop())
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	if err := store.InsertStaging(records); err != nil {
		log.Fatalf("insert records: %v", err)
	}

	fmt.Printf("imported %d records from %s into %s\n", len(records), path, *dbPath)
}
