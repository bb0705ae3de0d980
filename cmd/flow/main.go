// Command flow is an interactive terminal client for the transfer
// validation workflow. It drives the flow controller against a running
// server: form, verification countdown, code entry, progress polling.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/abensaid/lendify/pkg/flow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	baseURL := flag.String("url", "http://localhost:3000", "server base URL")
	token := flag.String("token", "", "JWT bearer token (from POST /auth/login)")
	resume := flag.String("resume", "", "transfer id to resume instead of starting a new one")
	flag.Parse()

	if *token == "" {
		return fmt.Errorf("a token is required; log in first and pass -token")
	}

	logger := slog.New(slog.DiscardHandler)
	client := flow.NewClient(*baseURL, *token)
	ctrl := flow.NewController(client, flow.Options{}, logger)
	defer ctrl.Close()

	ctx := context.Background()
	stdin := bufio.NewScanner(os.Stdin)

	go renderUpdates(ctrl)

	var snap flow.Snapshot
	var err error
	if *resume != "" {
		id, parseErr := uuid.Parse(*resume)
		if parseErr != nil {
			return fmt.Errorf("invalid transfer id %q: %w", *resume, parseErr)
		}
		snap, err = ctrl.Resume(ctx, id)
	} else {
		req, formErr := readForm(stdin)
		if formErr != nil {
			return formErr
		}
		snap, err = ctrl.Start(ctx, req)
	}
	if err != nil && snap.State == flow.StateFailed {
		return err
	}
	if err != nil {
		fmt.Println("!!", err)
	}

	return interact(ctx, ctrl, stdin)
}

// readForm collects the transfer form from stdin.
func readForm(stdin *bufio.Scanner) (flow.InitiateRequest, error) {
	var req flow.InitiateRequest
	var err error

	req.Amount, err = prompt(stdin, "Amount")
	if err != nil {
		return req, err
	}
	req.Recipient, err = prompt(stdin, "Recipient")
	if err != nil {
		return req, err
	}
	loanRaw, err := prompt(stdin, "Loan ID")
	if err != nil {
		return req, err
	}
	req.LoanID, err = uuid.Parse(loanRaw)
	if err != nil {
		return req, fmt.Errorf("invalid loan id: %w", err)
	}
	return req, nil
}

// interact reads commands until the flow reaches a terminal state.
// In the validation step a bare line is treated as a code entry.
func interact(ctx context.Context, ctrl *flow.Controller, stdin *bufio.Scanner) error {
	fmt.Println(`commands: <code> to validate, "resend", "skip", "quit"`)
	for {
		snap := ctrl.Snapshot()
		if snap.State == flow.StateComplete {
			fmt.Println("Transfer completed.")
			return nil
		}
		if snap.State == flow.StateFailed {
			return fmt.Errorf("transfer failed: %s", snap.LastError)
		}

		if !stdin.Scan() {
			return stdin.Err()
		}
		line := strings.TrimSpace(stdin.Text())
		switch line {
		case "":
			continue
		case "quit":
			return nil
		case "skip":
			ctrl.SkipCountdown()
		case "resend":
			issue, err := ctrl.RequestCode(ctx, "email")
			if err != nil {
				fmt.Println("!!", err)
				continue
			}
			fmt.Printf("Code re-sent for step %d.\n", issue.Sequence)
			if issue.DemoCode != "" {
				fmt.Printf("   demo code: %s\n", issue.DemoCode)
			}
		default:
			var err error
			if snap.Paused {
				_, err = ctrl.SubmitPauseCode(ctx, line)
			} else {
				_, err = ctrl.SubmitCode(ctx, line)
			}
			if err != nil {
				fmt.Println("!!", err)
			}
		}
	}
}

// renderUpdates prints each snapshot frame as the controller publishes
// them.
func renderUpdates(ctrl *flow.Controller) {
	var last flow.Snapshot
	for snap := range ctrl.Updates() {
		switch {
		case snap.State == flow.StateVerification:
			fmt.Printf("\rVerifying transfer... %2ds (type \"skip\" to continue)   ", snap.CountdownSeconds)
		case snap.State == flow.StateValidation &&
			(snap.State != last.State || snap.CodesValidated != last.CodesValidated):
			if snap.Paused {
				fmt.Printf("\nTransfer is paused at %d%%. Enter the pause code to resume.\n", snap.Progress)
			} else {
				fmt.Printf("\nEnter code %d of %d:\n", snap.CodesValidated+1, snap.RequiredCodes)
				if snap.DemoCode != "" {
					fmt.Printf("   demo code: %s\n", snap.DemoCode)
				}
			}
		case snap.State == flow.StateProgress:
			notice := ""
			if snap.ApprovedNotice && !last.ApprovedNotice {
				notice = "  [transfer approved]"
			}
			fmt.Printf("\rProcessing... %d%%%s", snap.Progress, notice)
		case snap.State != last.State && snap.State == flow.StateComplete:
			fmt.Printf("\nDone: transfer %s completed at 100%%.\n", snap.TransferID)
		}
		last = snap
	}
}

func prompt(stdin *bufio.Scanner, label string) (string, error) {
	fmt.Printf("%s: ", label)
	if !stdin.Scan() {
		if err := stdin.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("input closed")
	}
	return strings.TrimSpace(stdin.Text()), nil
}
