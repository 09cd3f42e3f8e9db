package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/hegylabs/wlr089/lora"
)

// runConsole drives an interactive prompt that passes raw commands to the
// module and prints whatever it answers. Useful for poking at a module
// without writing code.
func runConsole(session *lora.Session) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Printf("Connected to %s. Type commands, 'exit' to quit.\n", session.Port())

	for {
		input, err := line.Prompt("> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			return nil
		}
		line.AppendHistory(input)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		resp, err := session.Exec(ctx, input)
		cancel()
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if resp == "" {
			fmt.Println("(no response)")
			continue
		}
		fmt.Println(resp)
	}
}
