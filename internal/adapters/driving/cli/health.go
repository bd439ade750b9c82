package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// errUnhealthy makes the command exit non-zero when the store is down.
var errUnhealthy = errors.New("complyqa is unhealthy")

var healthJSON bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the chunk store and model backends",
	Long: `Probes the chunk store, the embedding provider and the answer generator.

Status is healthy when every backend responds, degraded when the store
works but a model backend does not, and unhealthy when the store is down.
The command exits non-zero only when unhealthy.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if healthService == nil {
		return notConfigured("health")
	}

	report := healthService.Check(cmd.Context())

	if healthJSON {
		if err := printJSON(cmd, report); err != nil {
			return err
		}
	} else {
		printHealth(cmd, report)
	}

	if report.Status == domain.HealthUnhealthy {
		return errUnhealthy
	}
	return nil
}

func printHealth(cmd *cobra.Command, report domain.HealthReport) {
	cmd.Printf("Status: %s (profile %s)\n", renderHealth(report.Status), report.Profile)
	cmd.Println()
	for _, c := range report.Components {
		mark := "ok"
		if !c.Healthy {
			mark = errorStyle.Render("FAIL")
		}
		cmd.Printf("  %-10s %-4s %s\n", c.Name, mark, mutedStyle.Render(c.Detail))
	}
}

func renderHealth(status domain.HealthStatus) string {
	switch status {
	case domain.HealthHealthy:
		return confidenceStyles[domain.ConfidenceHigh].Render(string(status))
	case domain.HealthDegraded:
		return confidenceStyles[domain.ConfidenceMedium].Render(string(status))
	default:
		return errorStyle.Render(string(status))
	}
}
