package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbtools/modpoll/internal/cliconfig"
	"github.com/mbtools/modpoll/pkg/modpoll"
)

// newSendCommand builds the one-shot transaction subcommand.
func newSendCommand(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	var (
		function int
		start    int
		count    int
		slave    int
		values   []int
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Execute one Modbus transaction and print the result",
		Example: `  modpoll send --port /dev/ttyUSB0 --function 3 --start 156 --count 1 --slave 1
  modpoll send --mode tcp --address 10.0.0.5 --function 6 --start 5 --slave 1 --values 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolveConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}

			spec := modpoll.RequestSpec{
				ID:           "send",
				Name:         "send",
				Function:     modpoll.FunctionCode(function),
				StartAddress: uint16(start),
				Count:        uint16(count),
				SlaveID:      uint8(slave),
			}
			for _, v := range values {
				spec.Values = append(spec.Values, uint16(v))
			}

			client := modpoll.New(cfg.ToConnectionConfig())
			if err := client.Connect(context.Background()); err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer client.Close()

			res := client.SendOnce(context.Background(), spec)
			fmt.Printf("request:  %s\n", res.RequestHex)
			if res.ResponseHex != "" {
				fmt.Printf("response: %s\n", res.ResponseHex)
			}
			if res.Err != nil {
				return res.Err
			}

			r := modpoll.Format(res.Values)
			for i := range r.Decimal {
				fmt.Printf("[%d] %s  %s  %s\n", i, r.Decimal[i], r.Hex[i], r.Binary[i])
			}
			fmt.Printf("elapsed: %s\n", res.Elapsed)
			return nil
		},
	}

	cmd.Flags().IntVar(&function, "function", 3, "function code (1-6, 15, 16)")
	cmd.Flags().IntVar(&start, "start", 0, "start address")
	cmd.Flags().IntVar(&count, "count", 1, "number of coils or registers")
	cmd.Flags().IntVar(&slave, "slave", 1, "slave id (0 broadcasts a write)")
	cmd.Flags().IntSliceVar(&values, "values", nil, "write payload values")

	return cmd
}
