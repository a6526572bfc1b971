package main

import (
	"fmt"
	"os"

	"github.com/dvloznov/ledgr/internal/logger"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		runImport(log)
	case "transactions":
		runTransactions(log)
	case "stats":
		runStats(log)
	case "untagged":
		runUntagged(log)
	case "tag":
		runTag(log)
	case "categories":
		runCategories(log)
	case "accounts":
		runAccounts(log)
	case "export":
		runExport(log)
	case "sync":
		runSync(log)
	case "mirror":
		runMirror(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("ledgr CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  import        Import bank statements into an account")
	fmt.Println("  transactions  List transactions with their cash flow")
	fmt.Println("  stats         Show monthly and per-category cash flow")
	fmt.Println("  untagged      Show untagged transactions grouped by description")
	fmt.Println("  tag           Set the category of one or more transactions")
	fmt.Println("  categories    List, add or delete categories")
	fmt.Println("  accounts      List or create accounts")
	fmt.Println("  export        Write the ledger snapshot as JSON")
	fmt.Println("  sync          Sync the ledger with the sync server once")
	fmt.Println("  mirror        Mirror the ledger into BigQuery")
	fmt.Println("  help          Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}
