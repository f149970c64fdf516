package main

import (
	"carpulse-backend/cmd/collector/commands"
	"carpulse-backend/lib/serviceutil"
	"carpulse-backend/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "collector-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(ctx)
}
