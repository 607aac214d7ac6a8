package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fieldkeeper/internal/client/models"
	syncx "github.com/dmitrijs2005/fieldkeeper/internal/client/sync"
)

func (a *App) status() string {
	if a.monitor.Reachable() {
		return "online"
	}
	return "offline"
}

func (a *App) repl(ctx context.Context) {
	fmt.Println("fieldkeeper client (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("fk (%s)> ", a.status())
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)

		switch parts[0] {
		case "help":
			fmt.Println("commands: sync, status, list, toggle <id>, report <sr|mp> <report-id> <workorder-id> [field=value ...], outbox, dead, exit")
		case "sync":
			a.cmdSync(ctx)
		case "status":
			a.cmdStatus(ctx)
		case "list":
			a.cmdList(ctx)
		case "toggle":
			if len(parts) != 2 {
				fmt.Println("usage: toggle <workorder-id>")
				continue
			}
			a.cmdToggle(ctx, parts[1])
		case "report":
			if len(parts) < 4 {
				fmt.Println("usage: report <sr|mp> <report-id> <workorder-id> [field=value ...]")
				continue
			}
			a.cmdReport(ctx, parts[1], parts[2], parts[3], parts[4:])
		case "outbox":
			a.cmdOutbox(ctx)
		case "dead":
			a.cmdDead(ctx)
		case "exit", "quit":
			return
		default:
			fmt.Printf("unknown command: %s\n", parts[0])
		}
	}
}

func (a *App) cmdSync(ctx context.Context) {
	outcome, err := a.orchestrator.RunCycle(ctx, syncx.Options{Force: true})
	switch {
	case errors.Is(err, syncx.ErrSyncInProgress):
		fmt.Println("sync already running")
	case errors.Is(err, syncx.ErrUnreachable):
		fmt.Println("SYNC failed: server unreachable")
	case err != nil:
		fmt.Printf("SYNC failed: %v\n", err)
	default:
		fmt.Printf("SYNC OK: %d sites, %d systems, %d workorders, %d replayed\n",
			outcome.Sites, outcome.Systems, outcome.WorkOrders, outcome.Replay.Replayed)
	}
}

func (a *App) cmdStatus(ctx context.Context) {
	reachable := a.monitor.ProbeBackground(ctx)
	fmt.Printf("server: %s\n", map[bool]string{true: "online", false: "offline"}[reachable])

	if last, ok, err := a.orchestrator.LastSync(ctx); err == nil && ok {
		fmt.Printf("last sync: %s\n", last.Format("02.01.2006 15:04:05"))
	} else {
		fmt.Println("last sync: never")
	}

	if n, err := a.orchestrator.Notifications(ctx); err == nil && n > 0 {
		fmt.Printf("new active workorders: %d\n", n)
	}
}

func (a *App) cmdList(ctx context.Context) {
	orders, err := a.store.WorkOrders.All(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(orders) == 0 {
		fmt.Println("no workorders in local store, run 'sync'")
		return
	}
	for _, w := range orders {
		fmt.Printf("%5d  [%s]  %s — %s %s\n",
			w.ID, w.StatusLabel, w.Title, w.Site.Name, w.PlannedDate)
	}
	// Opening the list clears the new-active badge.
	if err := a.orchestrator.ResetNotifications(ctx); err != nil {
		a.log.Warn(ctx, "failed to reset notification counter", "error", err)
	}
}

func (a *App) cmdToggle(ctx context.Context, arg string) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		fmt.Printf("invalid workorder id: %s\n", arg)
		return
	}
	result, err := a.workOrders.ToggleStatus(ctx, id)
	if err != nil {
		fmt.Printf("toggle failed: %v\n", err)
		return
	}
	if result.Queued {
		fmt.Printf("workorder %d -> %s (queued for sync)\n", id, result.StatusLabel)
	} else {
		fmt.Printf("workorder %d -> %s\n", id, result.StatusLabel)
	}
}

func (a *App) cmdReport(ctx context.Context, kindArg, reportArg, woArg string, fieldArgs []string) {
	var kind models.DraftKind
	switch kindArg {
	case "sr":
		kind = models.DraftServiceReport
	case "mp":
		kind = models.DraftMaintenanceProtocol
	default:
		fmt.Printf("unknown report kind %q, expected sr or mp\n", kindArg)
		return
	}

	reportID, err := strconv.ParseInt(reportArg, 10, 64)
	if err != nil {
		fmt.Printf("invalid report id: %s\n", reportArg)
		return
	}
	woID, err := strconv.ParseInt(woArg, 10, 64)
	if err != nil {
		fmt.Printf("invalid workorder id: %s\n", woArg)
		return
	}

	fields := map[string]any{}
	for _, arg := range fieldArgs {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			fmt.Printf("invalid field %q, expected key=value\n", arg)
			return
		}
		fields[key] = value
	}

	queued, err := a.reports.Submit(ctx, kind, reportID, woID, fields)
	if err != nil {
		fmt.Printf("report save failed: %v\n", err)
		return
	}
	if queued {
		fmt.Printf("report %d saved locally, queued for sync\n", reportID)
	} else {
		fmt.Printf("report %d saved\n", reportID)
	}
}

func (a *App) cmdOutbox(ctx context.Context) {
	entries, err := a.store.Outbox.ListPending(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("outbox empty")
		return
	}
	for _, e := range entries {
		fmt.Printf("%5d  %-26s  attempts=%d\n", e.ID, e.Kind, e.Attempts)
	}
}

func (a *App) cmdDead(ctx context.Context) {
	entries, err := a.store.Outbox.ListDead(ctx)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("no dead letters")
		return
	}
	for _, e := range entries {
		fmt.Printf("%5d  %-26s  %s\n", e.ID, e.Kind, e.Reason)
	}
}
