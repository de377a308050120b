package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/feather-lang/vmbench"
	"github.com/feather-lang/vmbench/contract"
	"github.com/feather-lang/vmbench/suite"
)

func newConsoleCmd(a *app) *cobra.Command {
	var recursionLimit int

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Evaluate expressions against the suite contracts",
		Long: `Open a contract session with the suite contracts deployed and evaluate
expressions read from stdin, for example:

  ` + vmbench.AddCall(vmbench.AddLeft, vmbench.AddRight) + `

When stdin is not a terminal the input is run as a script and the first
error aborts it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := suite.NewContractSession(
				contract.WithLogger(a.logger),
				contract.WithRecursionLimit(recursionLimit),
			)
			if err != nil {
				return err
			}
			defer s.Close()

			interactive := term.IsTerminal(int(os.Stdin.Fd())) && cmd.InOrStdin() == os.Stdin
			return runConsole(s, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), interactive)
		},
	}

	cmd.Flags().IntVar(&recursionLimit, "recursion-limit", 0,
		"maximum procedure call depth (0 keeps the interpreter default)")
	return cmd
}

// runConsole reads complete expressions from in and evaluates them. In
// interactive mode it prompts and keeps going after errors.
func runConsole(s *contract.Session, in io.Reader, out, errOut io.Writer, interactive bool) error {
	if interactive {
		fmt.Fprintf(out, "contracts: %s\n", strings.Join(s.Contracts(), ", "))
	}

	scanner := bufio.NewScanner(in)
	var inputBuffer string

	for {
		if interactive {
			if inputBuffer == "" {
				fmt.Fprint(out, "% ")
			} else {
				fmt.Fprint(out, "> ")
			}
		}

		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		if inputBuffer != "" {
			inputBuffer += "\n" + line
		} else {
			inputBuffer = line
		}

		if !s.Complete(inputBuffer) {
			continue
		}
		if strings.TrimSpace(inputBuffer) == "" {
			inputBuffer = ""
			continue
		}

		result, err := s.Eval(inputBuffer)
		inputBuffer = ""
		if err != nil {
			if !interactive {
				return err
			}
			fmt.Fprintf(errOut, "error: %v\n", err)
			continue
		}
		if result != "" {
			fmt.Fprintln(out, result)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if inputBuffer != "" {
		return errors.New("incomplete input at end of file")
	}
	return nil
}
