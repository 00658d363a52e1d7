package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Dan9191/fee-service/internal/models"
	"github.com/Dan9191/fee-service/internal/service"
	"github.com/Dan9191/fee-service/internal/utils/email"
	"github.com/spf13/cobra"
)

type commandLine struct {
	svc         *service.Service
	institution string
	out         io.Writer
	now         func() time.Time // mockable
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "feectl",
		Short:         "Fee arrears and reminder tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(cli.remindCmd(), cli.arrearsCmd(), cli.dashboardCmd())
	return root
}

func (cli *commandLine) remindCmd() *cobra.Command {
	var className string
	var ids []string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send reminders to overdue students or to the given ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc := cli.svc
			if dryRun {
				svc = svc.DryRun()
			}
			var (
				outcome models.DispatchOutcome
				err     error
			)
			if len(ids) > 0 {
				outcome, err = svc.SendRemindersTo(cmd.Context(), ids, cli.now())
			} else {
				outcome, err = svc.SendOverdueReminders(cmd.Context(), className, cli.now())
			}
			if len(outcome.Results) > 0 {
				fmt.Fprint(cli.out, email.SummaryText(cli.institution, outcome))
			}
			return err
		},
	}
	cmd.Flags().StringVar(&className, "class", "", "only remind students of this class")
	cmd.Flags().StringSliceVar(&ids, "id", nil, "remind only these students (repeatable), overdue or not")
	cmd.MarkFlagsMutuallyExclusive("class", "id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log messages instead of sending them")
	return cmd
}

func (cli *commandLine) arrearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "arrears STUDENT_ID",
		Short: "Show the arrears assessment of one student",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cli.svc.StudentArrears(cmd.Context(), args[0], cli.now())
			if err != nil {
				return err
			}
			return cli.printJSON(a)
		},
	}
}

func (cli *commandLine) dashboardCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show collection figures and the risk banner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := models.Role(role)
			if r != models.RoleAdmin && r != models.RoleStaff {
				return &models.ValidationError{Field: "role", Reason: "must be admin or staff"}
			}
			d, err := cli.svc.Dashboard(cmd.Context(), r, cli.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "%s %s\n\n", d.Risk.Icon, d.Risk.Message)
			fmt.Fprintf(cli.out, "Total:     %.2f\nCollected: %.2f (%.1f%%)\nPending:   %.2f (%.1f%%)\n",
				d.Stats.TotalFees, d.Stats.CollectedFees, d.Stats.CollectionRatePercent,
				d.Stats.PendingFees, d.Stats.PendingPercent)
			fmt.Fprintf(cli.out, "Overdue: %d  Clear: %d  Paid: %d  Undetermined: %d\n",
				d.OverdueCount, d.ClearCount, d.PaidCount, d.UndeterminedCount)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", string(models.RoleAdmin), "admin or staff")
	return cmd
}

func (cli *commandLine) printJSON(v any) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
