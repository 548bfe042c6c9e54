package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"jmdev.ca/glade-room-bot/internal/ledger"
	"jmdev.ca/glade-room-bot/internal/timer"
)

func main() {
	csvPath := flag.String("csv", "", "ledger CSV to inspect")
	room := flag.Int("room", 0, "room to report on (0 = all rooms)")
	verbose := flag.Bool("v", false, "list every account, not just the summary")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "missing -csv: ledger file is required")
		flag.Usage()
		os.Exit(2)
	}
	if *room < 0 || *room > ledger.NumRooms {
		fmt.Fprintf(os.Stderr, "invalid -room %d: must be 0-%d\n", *room, ledger.NumRooms)
		os.Exit(2)
	}

	accounts, err := ledger.Read(*csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load ledger: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Accounts: %d\n", len(accounts))

	now := time.Now()
	if *room > 0 {
		reportRoom(accounts, *room, now, *verbose)
		return
	}
	for n := 1; n <= ledger.NumRooms; n++ {
		reportRoom(accounts, n, now, *verbose)
	}
}

func reportRoom(accounts []*ledger.Account, room int, now time.Time, verbose bool) {
	ready := timer.FilterReady(accounts, room, now)
	fmt.Printf("\nRoom %d: %d of %d ready\n", room, len(ready), len(accounts))

	if !verbose {
		printSoonest(accounts, room, now)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tSTATE\tWAIT")
	for _, account := range accounts {
		trace := timer.Evaluate(account, room, now)
		state := "waiting"
		if trace.Ready {
			state = "ready"
		} else if account.Room(room).Played {
			state = "played"
		}

		remaining, ok := timer.TimeUntilReady(account, room, now)
		wait := "-"
		if !trace.Ready && !account.Room(room).Played {
			wait = timer.FormatRemaining(remaining, ok)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", account.Email, state, wait)
	}
	w.Flush()
}

// printSoonest reports the shortest wait among accounts that are not ready
// and not already done with the room.
func printSoonest(accounts []*ledger.Account, room int, now time.Time) {
	var soonest time.Duration
	found := false
	for _, account := range accounts {
		trace := timer.Evaluate(account, room, now)
		if trace.Ready || account.Room(room).Played {
			continue
		}
		remaining, ok := timer.TimeUntilReady(account, room, now)
		if !ok {
			continue
		}
		if !found || remaining < soonest {
			soonest = remaining
			found = true
		}
	}
	if found {
		fmt.Printf("Next available: %s\n", timer.FormatRemaining(soonest, true))
	}
}
