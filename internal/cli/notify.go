package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/caseflow/caseflow/internal/planner"
)

var notifyFlags struct {
	notificationType string
	title            string
	description      string
	structures       []string
	push             bool
	batchSize        int
	minutesBetween   int
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Schedule a batched notification campaign",
	Long: `Schedules the first batch of a notification campaign. Each batch,
once processed, schedules its successor until the audience is exhausted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if notifyFlags.notificationType == "" {
			return fmt.Errorf("--type is required")
		}

		svc, closeDeps, err := openService()
		if err != nil {
			return err
		}
		defer closeDeps()

		identity, err := svc.ScheduleNotificationCampaign(cmd.Context(), planner.NotifyBeneficiariesPayload{
			NotificationType: notifyFlags.notificationType,
			Title:            notifyFlags.title,
			Description:      notifyFlags.description,
			Structures:       notifyFlags.structures,
			Push:             notifyFlags.push,
			BatchSize:        notifyFlags.batchSize,
			MinutesBetween:   notifyFlags.minutesBetween,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Campaign scheduled: %s\n", identity)
		return nil
	},
}

func init() {
	notifyCmd.Flags().StringVar(&notifyFlags.notificationType, "type", "", "notification type sent to beneficiaries")
	notifyCmd.Flags().StringVar(&notifyFlags.title, "title", "", "notification title")
	notifyCmd.Flags().StringVar(&notifyFlags.description, "description", "", "notification body")
	notifyCmd.Flags().StringSliceVar(&notifyFlags.structures, "structure", nil, "limit the audience to these structures")
	notifyCmd.Flags().BoolVar(&notifyFlags.push, "push", true, "send as push notification")
	notifyCmd.Flags().IntVar(&notifyFlags.batchSize, "batch-size", 0, "beneficiaries per batch (0 uses the campaign default)")
	notifyCmd.Flags().IntVar(&notifyFlags.minutesBetween, "minutes-between", 0, "minutes between batches (0 uses the campaign default)")

	rootCmd.AddCommand(notifyCmd)
}
