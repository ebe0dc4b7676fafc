package main

import (
	"strings"

	"github.com/spf13/cobra"

	"swapPay/internal/intent"
	"swapPay/internal/model"
)

func newIntentCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "intent <code>",
		Short:   "Parse a scanned payment code",
		Example: `swapd intent "ethereum:0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913@8453/transfer?address=0xabCDeF0123456789AbcdEf0123456789aBCDEF01&uint256=1e7"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, ok := intent.Parse(strings.Join(args, " ")).Intent()
			if !ok {
				return model.ErrMalformedIntent
			}
			return printJSON(cmd, in)
		},
	}
}
