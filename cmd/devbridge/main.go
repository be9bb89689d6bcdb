package main

import (
	"fmt"
	"os"

	"devbridge/cli/internal/command"
	"devbridge/cli/internal/config"
)

func main() {
	app := command.BuildApp(command.Deps{
		LoadConfig:     config.LoadConfig,
		SendPrompt:     runSendPrompt,
		ShowHealth:     runShowHealth,
		ShowQueue:      runShowQueue,
		TestConnection: runTestConnection,
		Watch:          runWatch,
		ListActions:    runListActions,
		RetryAction:    runRetryAction,
		ClearActions:   runClearActions,
		NewPersona:     runNewPersona,
		NextAutofill:   runNextAutofill,
		MigrateUp:      runMigrateUp,
	})
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
