package main

import (
	"fmt"
	"os"

	"kandibot/services"
)

// content-lint validates the JSON content files under ./data without
// starting the bot. Useful before deploying edited catalogs.
func main() {
	dir := services.DataDirectory
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	exitCode := 0

	catalog, err := services.LoadCatalog(dir)
	if err != nil {
		fmt.Println("achievements:", err)
		exitCode = 1
	} else {
		fmt.Printf("achievements: OK (%d definitions)\n", catalog.Len())
	}

	items, err := services.LoadShopItems(dir)
	if err != nil {
		fmt.Println("shop items:", err)
		exitCode = 1
	} else {
		fmt.Printf("shop items: OK (%d items)\n", len(items))
	}

	questions, err := services.LoadQuestions(dir)
	if err != nil {
		fmt.Println("questions:", err)
		exitCode = 1
	} else {
		fmt.Printf("questions: OK (%d questions)\n", len(questions))
	}

	os.Exit(exitCode)
}
