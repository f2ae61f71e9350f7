// Command duocodes prints the current code for every account in the
// credential store, without any orchestration: the external application must
// have populated the store at some point already.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ericfisherdev/duopanel/internal/adapter/driven/playchain"
	"github.com/ericfisherdev/duopanel/internal/config"
	"github.com/ericfisherdev/duopanel/internal/totp"
)

func main() {
	storePath := flag.String("store", "", "path to the PlayChain database (default: DUOPANEL_STORE_PATH or the PlayCover location)")
	watch := flag.Bool("watch", false, "keep printing codes every second")
	flag.Parse()

	if err := run(*storePath, *watch); err != nil {
		fmt.Fprintf(os.Stderr, "duocodes: %v\n", err)
		os.Exit(1)
	}
}

func run(storePath string, watch bool) error {
	if storePath == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		storePath = cfg.StorePath
	}

	reader := playchain.NewReader(storePath, playchain.DefaultAccessGroup)
	accounts, err := reader.LoadAccounts(context.Background())
	if err != nil {
		return err
	}

	for {
		now := time.Now()
		for _, account := range accounts {
			snap, err := totp.Snapshot(account, now)
			if err != nil {
				fmt.Printf("%-24s <unusable secret>\n", account.Label)
				continue
			}
			// Split for readability, matching the authenticator's display.
			code := snap.Code[:3] + " " + snap.Code[3:]
			fmt.Printf("%-24s %s  (%2ds left)\n", account.Label, code, snap.SecondsRemaining(now))
		}

		if !watch {
			return nil
		}
		fmt.Println()
		time.Sleep(time.Second)
	}
}
