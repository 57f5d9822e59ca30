// Command novasql is a thin REPL boundary over the engine facade: it
// starts an engine.Engine, dispatches a handful of named shell commands,
// and sends everything else through as SQL text.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ghiloufibg/nova-sql/config"
	"github.com/ghiloufibg/nova-sql/engine"
	"github.com/ghiloufibg/nova-sql/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	dbName := flag.String("db", "default", "database name")
	dataDir := flag.String("data-dir", "./data", "data directory")
	configPath := flag.String("config", "", "path to a .properties config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}

	log, err := logging.New(cfg.LogLevel, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		return 1
	}

	eng := engine.New(cfg, log)
	if err := eng.Start(*dbName, *dataDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start engine: %v\n", err)
		return 1
	}
	defer eng.Stop()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("novasql> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case lower == "exit" || lower == "quit":
			return 0
		case lower == "help":
			printHelp()
		case lower == "status":
			printStatus(eng)
		case lower == "tables":
			printTables(eng)
		case strings.HasPrefix(lower, "desc "):
			printDesc(eng, strings.TrimSpace(line[len("desc "):]))
		case strings.HasPrefix(lower, "import "):
			runImport(eng, strings.Fields(line)[1:])
		case strings.HasPrefix(lower, "export "):
			runExport(eng, strings.Fields(line)[1:])
		case strings.HasPrefix(lower, "backup "):
			runBackup(eng, strings.TrimSpace(line[len("backup "):]))
		case strings.HasPrefix(lower, "restore "):
			runRestore(eng, strings.TrimSpace(line[len("restore "):]))
		default:
			runSQL(eng, line)
		}
	}
	return 0
}

func printHelp() {
	fmt.Println("commands: help, status, tables, desc <table>, import <table> <file>,")
	fmt.Println("          export <table> <file>, backup <file>, restore <file>, exit, quit")
	fmt.Println("anything else is executed as a SQL statement")
}

func runImport(eng *engine.Engine, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: import <table> <file>")
		return
	}
	f, err := os.Open(args[1])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer f.Close()

	n, err := eng.ImportCSV(f, args[0])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("imported %d row(s) into %s\n", n, args[0])
}

func runExport(eng *engine.Engine, args []string) {
	if len(args) != 2 {
		fmt.Println("usage: export <table> <file>")
		return
	}
	f, err := os.Create(args[1])
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer f.Close()

	if err := eng.ExportCSV(f, args[0]); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("exported %s to %s\n", args[0], args[1])
}

func runBackup(eng *engine.Engine, path string) {
	f, err := os.Create(path)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer f.Close()

	if err := eng.Backup(f, time.Now()); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("backup written to %s\n", path)
}

func runRestore(eng *engine.Engine, path string) {
	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer f.Close()

	n, err := eng.Restore(f)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	fmt.Printf("restored %d statement(s) from %s\n", n, path)
}

func printStatus(eng *engine.Engine) {
	count, avg, slowest := eng.StatsSummary()
	fmt.Printf("database: %s\n", eng.Name())
	fmt.Printf("statements recorded: %d, average duration: %s\n", count, avg)
	if slowest != nil {
		fmt.Printf("slowest: %q (%s)\n", slowest.SQL, slowest.Duration)
	}
}

func printTables(eng *engine.Engine) {
	for _, name := range eng.Database().TableNames() {
		fmt.Println(name)
	}
}

func printDesc(eng *engine.Engine, table string) {
	t, err := eng.Database().Table(table)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for _, c := range t.Columns() {
		fmt.Println(c.String())
	}
}

func runSQL(eng *engine.Engine, sql string) {
	result, err := eng.ExecuteSQL(sql)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	if result.Message != "" {
		fmt.Println(result.Message)
	}
	if len(result.Records) > 0 {
		for _, r := range result.Records {
			fmt.Printf("%v\n", r.Values)
		}
	}
	if result.AffectedRows > 0 {
		fmt.Printf("(%d row(s) affected)\n", result.AffectedRows)
	}
}
