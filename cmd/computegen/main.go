package main

import (
	"os"

	"github.com/pterm/pterm"

	"computegen/internal/errors"
	"computegen/internal/logger"
)

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		pterm.Error.Println(err.Error())
		for _, hint := range errors.GetAllHints(err) {
			pterm.Info.Println(hint)
		}
		os.Exit(1)
	}
}
