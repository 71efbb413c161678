package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/ownercache"
)

type sized struct {
	ownercache.Slot
	Size int
}

type step struct {
	Op       string `json:"op"`
	Value    int    `json:"value"`
	Computes int    `json:"computes"`
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run the get/put/remove walkthrough on a single owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		zl, log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = zl.Sync() }()

		steps, err := runScenario(log)
		if err != nil {
			return err
		}
		if IsJSONOutput() {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(steps)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.Header("#", "Operation", "Value", "Computes")
		for i, s := range steps {
			table.Append([]string{strconv.Itoa(i + 1), s.Op, strconv.Itoa(s.Value), strconv.Itoa(s.Computes)})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

// runScenario: compute Size*2, override with Put, then Remove to force a
// recompute.
func runScenario(log ownercache.Logger) ([]step, error) {
	computes := 0
	c, err := ownercache.New(ownercache.Options[*sized, int]{
		Name: "size2",
		Compute: func(o *sized) (int, error) {
			computes++
			return o.Size * 2, nil
		},
		Logger: log,
	})
	if err != nil {
		return nil, err
	}
	o := &sized{Size: 5}

	var steps []step
	get := func(label string) error {
		v, err := c.Get(o)
		if err != nil {
			return err
		}
		steps = append(steps, step{Op: label, Value: v, Computes: computes})
		return nil
	}

	if err := get("get"); err != nil {
		return nil, err
	}
	if err := get("get"); err != nil {
		return nil, err
	}
	if err := c.Put(o, 99); err != nil {
		return nil, fmt.Errorf("put: %w", err)
	}
	if err := get("put 99, get"); err != nil {
		return nil, err
	}
	if err := c.Remove(o); err != nil {
		return nil, fmt.Errorf("remove: %w", err)
	}
	if err := get("remove, get"); err != nil {
		return nil, err
	}
	return steps, nil
}
